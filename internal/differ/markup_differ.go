package differ

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
)

const maxSnapshotSize = 16 << 20

// MarkupDiffer detects drift of a rendered region's markup between runs
type MarkupDiffer struct {
	processor   *DiffProcessor
	config      DiffConfig
	fileManager *common.FileManager
	logger      zerolog.Logger
}

// MarkupOutcome is the result of comparing current markup with its stored snapshot
type MarkupOutcome struct {
	Summary      models.MarkupDiffSummary
	Result       *models.MarkupDiffResult
	SnapshotPath string
	// ArtifactPath is the rendered HTML diff, set only when the markup changed
	ArtifactPath string
}

// NewMarkupDiffer creates a new MarkupDiffer
func NewMarkupDiffer(cfg DiffConfig, logger zerolog.Logger) *MarkupDiffer {
	return &MarkupDiffer{
		processor:   NewDiffProcessor(),
		config:      cfg,
		fileManager: common.NewFileManager(logger),
		logger:      logger.With().Str("component", "MarkupDiffer").Logger(),
	}
}

// SnapshotPath is where the markup snapshot for a scenario is stored
func SnapshotPath(dir, name string) string {
	return filepath.Join(dir, name+".markup.html")
}

// DiffArtifactPath is where the rendered markup diff for a scenario is written
func DiffArtifactPath(dir, name string) string {
	return filepath.Join(dir, name+"-markup-diff.html")
}

// Diff compares two normalized markup texts line by line
func (d *MarkupDiffer) Diff(previous, current string) *models.MarkupDiffResult {
	startTime := time.Now()

	if err := d.config.checkSize(map[string]string{"previous_markup": previous, "current_markup": current}); err != nil {
		return NewMarkupDiffResultBuilder().
			WithError(fmt.Sprintf("markup too large for a detailed diff (limit: %dMB): %v", d.config.MaxSizeMB, err)).
			WithProcessingTime(time.Since(startTime)).
			Build()
	}

	diffs := d.processor.ProcessDiff(previous, current)
	return NewMarkupDiffResultBuilder().
		WithDiffs(diffs, CalculateStats(diffs)).
		WithProcessingTime(time.Since(startTime)).
		Build()
}

// CompareWithSnapshot diffs current against the snapshot at snapshotPath. A
// missing snapshot is created from current. The snapshot itself is never
// overwritten once it exists.
func (d *MarkupDiffer) CompareWithSnapshot(ctx context.Context, snapshotPath, current, artifactDir, name string) (MarkupOutcome, error) {
	outcome := MarkupOutcome{SnapshotPath: snapshotPath}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	if !d.fileManager.FileExists(snapshotPath) {
		if err := d.fileManager.WriteBytesAtomic(snapshotPath, []byte(current)); err != nil {
			return outcome, common.WrapError(err, "failed to write markup snapshot")
		}
		d.logger.Warn().Str("snapshot", snapshotPath).Msg("Markup snapshot missing, stored current markup")
		outcome.Summary = models.MarkupDiffSummary{Bootstrapped: true}
		outcome.Result = &models.MarkupDiffResult{IsIdentical: true}
		return outcome, nil
	}

	previous, err := d.fileManager.ReadFile(snapshotPath, maxSnapshotSize)
	if err != nil {
		return outcome, err
	}

	result := d.Diff(string(previous), current)
	outcome.Result = result
	outcome.Summary = result.Summary()
	if result.IsIdentical {
		return outcome, nil
	}

	if artifactDir == "" {
		artifactDir = filepath.Dir(snapshotPath)
	}
	artifact := DiffArtifactPath(artifactDir, name)
	page := renderDiffPage(name, d.processor.PrettyHTML(toDMP(result.Segments)))
	if err := d.fileManager.WriteBytesAtomic(artifact, []byte(page)); err != nil {
		return outcome, common.WrapError(err, "failed to write markup diff")
	}
	outcome.ArtifactPath = artifact

	d.logger.Info().
		Str("name", name).
		Int("insertions", result.LinesAdded).
		Int("deletions", result.LinesDeleted).
		Msg("Markup drift detected")
	return outcome, nil
}
