package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

// LogFormat selects the console encoder
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatConsole
	FormatText
)

var formatNames = map[LogFormat]string{
	FormatJSON:    "json",
	FormatConsole: "console",
	FormatText:    "text",
}

func (lf LogFormat) String() string {
	if name, ok := formatNames[lf]; ok {
		return name
	}
	return formatNames[FormatConsole]
}

// ParseFormat maps a configured format name to a LogFormat; unknown names mean console
func ParseFormat(formatStr string) LogFormat {
	name := strings.ToLower(strings.TrimSpace(formatStr))
	for format, candidate := range formatNames {
		if candidate == name {
			return format
		}
	}
	return FormatConsole
}

// LoggerConfig is the resolved logger setup. With UseSubdirs and a RunID the
// log file lands in <dir>/runs/<run id>/.
type LoggerConfig struct {
	Level         zerolog.Level
	Format        LogFormat
	EnableConsole bool
	EnableFile    bool
	FilePath      string
	MaxSizeMB     int
	MaxBackups    int
	RunID         string
	UseSubdirs    bool
}

func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:         zerolog.InfoLevel,
		Format:        FormatConsole,
		EnableConsole: true,
		MaxSizeMB:     100,
		MaxBackups:    3,
		UseSubdirs:    true,
	}
}
