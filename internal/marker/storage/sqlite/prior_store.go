package sqlite

import (
	"fmt"

	"github.com/gaitworks/markerlab/internal/marker/s6verify"
)

// PriorStore persists learned anatomical distance priors so that priors
// learned from labeled trials can be reused across labeling runs.
type PriorStore struct {
	db *DB
}

// NewPriorStore creates a PriorStore backed by the given database.
func NewPriorStore(db *DB) *PriorStore {
	return &PriorStore{db: db}
}

// Save writes every pair in the table, replacing any existing prior for
// the same pair. Pairs absent from the table are left untouched.
func (s *PriorStore) Save(t *s6verify.PriorTable) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save priors tx: %w", err)
	}
	defer tx.Rollback()

	for _, pp := range t.Pairs() {
		_, err := tx.Exec(`
			INSERT INTO marker_priors (label_a, label_b, mean_dist, std_dist, sample_count)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(label_a, label_b) DO UPDATE SET
				mean_dist = excluded.mean_dist,
				std_dist = excluded.std_dist,
				sample_count = excluded.sample_count
		`, pp.A, pp.B, pp.Prior.Mean, pp.Prior.Std, pp.Prior.N)
		if err != nil {
			return fmt.Errorf("upsert prior %s/%s: %w", pp.A, pp.B, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save priors tx: %w", err)
	}
	return nil
}

// Load reads the full prior table from the database.
func (s *PriorStore) Load() (*s6verify.PriorTable, error) {
	rows, err := s.db.Query(`
		SELECT label_a, label_b, mean_dist, std_dist, sample_count
		FROM marker_priors
		ORDER BY label_a ASC, label_b ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query priors: %w", err)
	}
	defer rows.Close()

	t := s6verify.NewPriorTable()
	for rows.Next() {
		var a, b string
		var p s6verify.Prior
		if err := rows.Scan(&a, &b, &p.Mean, &p.Std, &p.N); err != nil {
			return nil, fmt.Errorf("scan prior: %w", err)
		}
		t.Put(a, b, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate priors: %w", err)
	}
	return t, nil
}
