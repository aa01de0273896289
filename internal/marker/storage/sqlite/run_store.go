package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gaitworks/markerlab/internal/marker"
	"github.com/gaitworks/markerlab/internal/marker/pipeline"
	"github.com/gaitworks/markerlab/internal/marker/s4assign"
)

// RunRecord is the stored summary row for one labeling run.
type RunRecord struct {
	RunID            string
	Trial            string
	CreatedUnixNanos int64
	SegmentCount     int
	WarningCount     int
}

// RunStore persists labeling runs: the run row itself, the per-segment
// label assignments, the raw per-window votes, and the warnings. It
// satisfies pipeline.ResultSink so the runtime can write results as a
// final stage.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

var _ pipeline.ResultSink = (*RunStore)(nil)

// PersistRun writes the complete result of one labeling run in a single
// transaction. Re-persisting the same run ID replaces its rows, so a
// retried run does not accumulate duplicates.
func (s *RunStore) PersistRun(res *pipeline.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin persist run tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO label_runs (run_id, trial_name, created_unix_nanos)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			trial_name = excluded.trial_name,
			created_unix_nanos = excluded.created_unix_nanos
	`, res.RunID, res.Trial, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	// Replace child rows wholesale; upserting per row would leave stale
	// segments behind when a retry produced a different segmentation.
	for _, table := range []string{"label_segments", "label_window_votes", "label_warnings"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run_id = ?", res.RunID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, a := range res.Assignments {
		_, err := tx.Exec(`
			INSERT INTO label_segments (
				run_id, seg_id, slot, start_frame, end_frame, label, confidence
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`, res.RunID, a.SegID, a.Slot, a.StartFrame, a.EndFrame, nullString(a.Label), a.Confidence)
		if err != nil {
			return fmt.Errorf("insert segment label: %w", err)
		}
	}

	for _, wa := range res.WindowAssignments {
		_, err := tx.Exec(`
			INSERT INTO label_window_votes (run_id, window_index, seg_id, label, prob)
			VALUES (?, ?, ?, ?, ?)
		`, res.RunID, wa.WindowIndex, wa.SegID, nullString(wa.Label), wa.Prob)
		if err != nil {
			return fmt.Errorf("insert window vote: %w", err)
		}
	}

	for _, w := range res.Warnings {
		_, err := tx.Exec(`
			INSERT INTO label_warnings (run_id, kind, seg_id, label, frame, detail)
			VALUES (?, ?, ?, ?, ?, ?)
		`, res.RunID, string(w.Kind), w.SegID, nullString(w.Label), w.Frame, w.Detail)
		if err != nil {
			return fmt.Errorf("insert warning: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit persist run tx: %w", err)
	}

	return nil
}

// GetRun returns the summary row for one run.
func (s *RunStore) GetRun(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT r.run_id, r.trial_name, r.created_unix_nanos,
			(SELECT COUNT(*) FROM label_segments s WHERE s.run_id = r.run_id),
			(SELECT COUNT(*) FROM label_warnings w WHERE w.run_id = r.run_id)
		FROM label_runs r
		WHERE r.run_id = ?
	`, runID)

	rec := &RunRecord{}
	err := row.Scan(&rec.RunID, &rec.Trial, &rec.CreatedUnixNanos, &rec.SegmentCount, &rec.WarningCount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return rec, nil
}

// ListRuns returns recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT r.run_id, r.trial_name, r.created_unix_nanos,
			(SELECT COUNT(*) FROM label_segments s WHERE s.run_id = r.run_id),
			(SELECT COUNT(*) FROM label_warnings w WHERE w.run_id = r.run_id)
		FROM label_runs r
		ORDER BY r.created_unix_nanos DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var recs []*RunRecord
	for rows.Next() {
		rec := &RunRecord{}
		if err := rows.Scan(&rec.RunID, &rec.Trial, &rec.CreatedUnixNanos, &rec.SegmentCount, &rec.WarningCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return recs, nil
}

// GetAssignments returns the stored per-segment labels for a run,
// ordered by segment ID.
func (s *RunStore) GetAssignments(runID string) ([]marker.LabelAssignment, error) {
	rows, err := s.db.Query(`
		SELECT seg_id, slot, start_frame, end_frame, label, confidence
		FROM label_segments
		WHERE run_id = ?
		ORDER BY seg_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query segment labels: %w", err)
	}
	defer rows.Close()

	var out []marker.LabelAssignment
	for rows.Next() {
		var a marker.LabelAssignment
		var label sql.NullString
		if err := rows.Scan(&a.SegID, &a.Slot, &a.StartFrame, &a.EndFrame, &label, &a.Confidence); err != nil {
			return nil, fmt.Errorf("scan segment label: %w", err)
		}
		if label.Valid {
			a.Label = label.String
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segment labels: %w", err)
	}
	return out, nil
}

// GetWindowVotes returns the stored per-window decisions for a run,
// ordered by window then segment.
func (s *RunStore) GetWindowVotes(runID string) ([]s4assign.Assignment, error) {
	rows, err := s.db.Query(`
		SELECT window_index, seg_id, label, prob
		FROM label_window_votes
		WHERE run_id = ?
		ORDER BY window_index ASC, seg_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query window votes: %w", err)
	}
	defer rows.Close()

	var out []s4assign.Assignment
	for rows.Next() {
		var a s4assign.Assignment
		var label sql.NullString
		if err := rows.Scan(&a.WindowIndex, &a.SegID, &label, &a.Prob); err != nil {
			return nil, fmt.Errorf("scan window vote: %w", err)
		}
		if label.Valid {
			a.Label = label.String
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window votes: %w", err)
	}
	return out, nil
}

// GetWarnings returns the stored warnings for a run in insertion order.
func (s *RunStore) GetWarnings(runID string) ([]marker.Warning, error) {
	rows, err := s.db.Query(`
		SELECT kind, seg_id, label, frame, detail
		FROM label_warnings
		WHERE run_id = ?
		ORDER BY warning_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}
	defer rows.Close()

	var out []marker.Warning
	for rows.Next() {
		var w marker.Warning
		var kind string
		var label sql.NullString
		if err := rows.Scan(&kind, &w.SegID, &label, &w.Frame, &w.Detail); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		w.Kind = marker.WarningKind(kind)
		if label.Valid {
			w.Label = label.String
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warnings: %w", err)
	}
	return out, nil
}

// Helper for nullable text columns.

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
