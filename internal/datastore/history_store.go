package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/models"
	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	base_url     TEXT NOT NULL,
	design_url   TEXT NOT NULL DEFAULT '',
	started_at   INTEGER NOT NULL,
	finished_at  INTEGER NOT NULL,
	passed       INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	inconclusive INTEGER NOT NULL,
	report_path  TEXT NOT NULL DEFAULT '',
	warnings     TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS scenario_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	attempts    INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	diff_pixels INTEGER NOT NULL DEFAULT 0,
	diff_ratio  REAL NOT NULL DEFAULT 0,
	result_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scenario_results_name ON scenario_results(name, run_id);
`

// HistoryStore persists suite runs in a SQLite database
type HistoryStore struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// NewHistoryStore opens (and migrates) the history database at cfg.HistoryDBPath
func NewHistoryStore(cfg config.StorageConfig, logger zerolog.Logger) (*HistoryStore, error) {
	path := cfg.HistoryDBPath
	if path == "" {
		path = config.DefaultHistoryDBPath
	}
	if path != ":memory:" {
		if err := common.NewFileManager(logger).EnsureDirectory(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	db, err := openDB(path)
	if err != nil {
		return nil, common.WrapError(err, "failed to open history database "+path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "failed to migrate history database")
	}

	return &HistoryStore{
		db:     db,
		path:   path,
		logger: logger.With().Str("component", "HistoryStore").Logger(),
	}, nil
}

// Close closes the database
func (hs *HistoryStore) Close() error {
	return hs.db.Close()
}

// Name identifies the store in logs
func (hs *HistoryStore) Name() string { return "history" }

// Publish records the report
func (hs *HistoryStore) Publish(ctx context.Context, report *models.SuiteReport) error {
	return hs.RecordRun(ctx, report)
}

// RecordRun stores a run and all its scenario results. Recording the same run
// id again replaces the earlier rows.
func (hs *HistoryStore) RecordRun(ctx context.Context, report *models.SuiteReport) error {
	if report == nil || report.RunID == "" {
		return common.NewValidationError("run_id", "", "report must have a run id")
	}
	warnings, err := json.Marshal(report.SetupWarning)
	if err != nil {
		return err
	}

	err = runTransaction(ctx, hs.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, report.RunID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO runs
			(run_id, base_url, design_url, started_at, finished_at, passed, failed, inconclusive, report_path, warnings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, report.BaseURL, report.DesignURL,
			report.StartedAt.UnixMilli(), report.FinishedAt.UnixMilli(),
			report.Passed, report.Failed, report.Inconclusive, report.ReportPath, string(warnings),
		); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO scenario_results
			(run_id, name, kind, status, error, attempts, duration_ms, diff_pixels, diff_ratio, result_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range report.Results {
			resultJSON, err := json.Marshal(r)
			if err != nil {
				return err
			}
			var diffPixels int
			var diffRatio float64
			if r.Comparison != nil {
				diffPixels, diffRatio = r.Comparison.DiffPixels, r.Comparison.DiffRatio
			}
			if _, err := stmt.ExecContext(ctx,
				report.RunID, r.Name, r.Kind, string(r.Status), r.Error, r.Attempts,
				r.Duration.Milliseconds(), diffPixels, diffRatio, string(resultJSON),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return common.WrapError(err, "failed to record run "+report.RunID)
	}

	hs.logger.Debug().Str("run_id", report.RunID).Int("scenarios", len(report.Results)).Msg("Run recorded")
	return nil
}

// ListRuns returns the most recent runs first
func (hs *HistoryStore) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := hs.db.QueryContext(ctx, `SELECT run_id, base_url, design_url, started_at, finished_at,
		passed, failed, inconclusive, report_path, warnings
		FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, common.WrapError(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var (
			run               models.RunSummary
			started, finished int64
			warnings          string
		)
		if err := rows.Scan(&run.RunID, &run.BaseURL, &run.DesignURL, &started, &finished,
			&run.Passed, &run.Failed, &run.Inconclusive, &run.ReportPath, &warnings); err != nil {
			return nil, err
		}
		run.StartedAt = time.UnixMilli(started)
		run.FinishedAt = time.UnixMilli(finished)
		if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
			hs.logger.Debug().Err(err).Str("run_id", run.RunID).Msg("Ignoring malformed warnings column")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the full report of a stored run
func (hs *HistoryStore) GetRun(ctx context.Context, runID string) (*models.SuiteReport, error) {
	run, err := hs.queryRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &models.SuiteReport{
		RunID:        run.RunID,
		BaseURL:      run.BaseURL,
		DesignURL:    run.DesignURL,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		SetupWarning: run.Warnings,
		ReportPath:   run.ReportPath,
	}

	rows, err := hs.db.QueryContext(ctx, `SELECT result_json FROM scenario_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var result models.ScenarioResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, common.WrapError(err, "corrupt scenario result in run "+runID)
		}
		report.Results = append(report.Results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	report.Tally()
	return report, nil
}

func (hs *HistoryStore) queryRun(ctx context.Context, runID string) (models.RunSummary, error) {
	var (
		run               models.RunSummary
		started, finished int64
		warnings          string
	)
	err := hs.db.QueryRowContext(ctx, `SELECT run_id, base_url, design_url, started_at, finished_at,
		passed, failed, inconclusive, report_path, warnings FROM runs WHERE run_id = ?`, runID).
		Scan(&run.RunID, &run.BaseURL, &run.DesignURL, &started, &finished,
			&run.Passed, &run.Failed, &run.Inconclusive, &run.ReportPath, &warnings)
	if err == sql.ErrNoRows {
		return run, common.WrapError(common.ErrNotFound, "run "+runID)
	}
	if err != nil {
		return run, err
	}
	run.StartedAt = time.UnixMilli(started)
	run.FinishedAt = time.UnixMilli(finished)
	_ = json.Unmarshal([]byte(warnings), &run.Warnings)
	return run, nil
}

// ScenarioHistory returns the most recent outcomes of one scenario
func (hs *HistoryStore) ScenarioHistory(ctx context.Context, name string, limit int) ([]models.ScenarioRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := hs.db.QueryContext(ctx, `SELECT s.run_id, s.name, s.kind, s.status, s.error, s.attempts,
		s.duration_ms, s.diff_pixels, s.diff_ratio, r.started_at
		FROM scenario_results s JOIN runs r ON r.run_id = s.run_id
		WHERE s.name = ? ORDER BY r.started_at DESC, s.id DESC LIMIT ?`, name, limit)
	if err != nil {
		return nil, common.WrapError(err, "failed to query scenario history")
	}
	defer rows.Close()

	var records []models.ScenarioRecord
	for rows.Next() {
		var (
			rec        models.ScenarioRecord
			status     string
			durationMs int64
			started    int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Name, &rec.Kind, &status, &rec.Error, &rec.Attempts,
			&durationMs, &rec.DiffPixels, &rec.DiffRatio, &started); err != nil {
			return nil, err
		}
		rec.Status = models.ScenarioStatus(status)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.StartedAt = time.UnixMilli(started)
		records = append(records, rec)
	}
	return records, rows.Err()
}
