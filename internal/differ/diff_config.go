package differ

import (
	"fmt"

	"github.com/aleister1102/designdiff/internal/common"
)

// DiffConfig holds configuration for markup diffing
type DiffConfig struct {
	// MaxSizeMB bounds each side of a diff; 0 disables the limit
	MaxSizeMB int
}

func DefaultDiffConfig() DiffConfig {
	return DiffConfig{MaxSizeMB: 5}
}

func (c DiffConfig) maxBytes() int {
	return c.MaxSizeMB * 1024 * 1024
}

// checkSize rejects either side of a diff that exceeds the configured limit
func (c DiffConfig) checkSize(sides map[string]string) error {
	limit := c.maxBytes()
	if limit <= 0 {
		return nil
	}
	for field, content := range sides {
		if len(content) > limit {
			return common.NewValidationError(field, len(content),
				fmt.Sprintf("markup exceeds %d byte limit", limit))
		}
	}
	return nil
}
