package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/bhtraj/internal/monitoring"
	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// LabelSummary describes all stored runs sharing one label.
type LabelSummary struct {
	Label           string  `json:"label"`
	Runs            int     `json:"runs"`
	BestFinalEnergy float64 `json:"best_final_energy"`
}

const selectTrajectories = `
	SELECT trajectory_id, label, final_best_energy, trajectory_length, created_at
	FROM bh_trajectories`

// Append validates and durably stores one completed run under label and
// returns its new id. The header row and every step are committed in a single
// transaction, so readers see either the whole record or nothing.
func (db *DB) Append(label string, best, accepted []float64) (string, error) {
	if label == "" {
		return "", fmt.Errorf("%w: empty label", trajectory.ErrInvalidRecord)
	}
	rec, err := trajectory.New(label, best, accepted)
	if err != nil {
		return "", err
	}

	release, err := db.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	id := uuid.New().String()
	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO bh_trajectories (
			trajectory_id, label, final_best_energy, trajectory_length, created_at
		) VALUES (?, ?, ?, ?, ?)`,
		id, rec.Label, rec.FinalBestEnergy, rec.Length, time.Now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("insert trajectory: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO bh_trajectory_steps (trajectory_id, step, best_energy, accepted_energy)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare step insert: %w", err)
	}
	defer stmt.Close()

	for i := range rec.BestEnergies {
		if _, err := stmt.Exec(id, i, rec.BestEnergies[i], rec.AcceptedEnergies[i]); err != nil {
			return "", fmt.Errorf("insert step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit trajectory: %w", err)
	}

	monitoring.Logf("stored trajectory %s: label=%s steps=%d final_best=%g", id, rec.Label, rec.Length, rec.FinalBestEnergy)
	return id, nil
}

// Query returns every record whose label matches exactly, in insertion order.
// It returns an empty slice when nothing matches.
func (db *DB) Query(label string) ([]*trajectory.Record, error) {
	release, err := db.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return db.queryRecords(`WHERE label = ?`, label)
}

// Get returns the record with the given id, or ErrRecordNotFound.
func (db *DB) Get(id string) (*trajectory.Record, error) {
	release, err := db.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	recs, err := db.queryRecords(`WHERE trajectory_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return recs[0], nil
}

// Count returns the number of records stored under label.
func (db *DB) Count(label string) (int, error) {
	release, err := db.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM bh_trajectories WHERE label = ?`, label).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trajectories: %w", err)
	}
	return n, nil
}

// Labels returns one summary per distinct label, ordered by label.
func (db *DB) Labels() ([]LabelSummary, error) {
	release, err := db.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.DB.Query(`
		SELECT label, COUNT(*), MIN(final_best_energy)
		FROM bh_trajectories
		GROUP BY label
		ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	labels := []LabelSummary{}
	for rows.Next() {
		var s LabelSummary
		if err := rows.Scan(&s.Label, &s.Runs, &s.BestFinalEnergy); err != nil {
			return nil, fmt.Errorf("scan label row: %w", err)
		}
		labels = append(labels, s)
	}
	return labels, rows.Err()
}

// queryRecords loads the header rows matching where and then their steps.
// Both reads share one transaction so a concurrent append is either fully
// visible or not at all.
func (db *DB) queryRecords(where string, arg any) ([]*trajectory.Record, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin query: %w", err)
	}
	defer tx.Rollback()

	records, err := scanHeaders(tx, selectTrajectories+" "+where+" ORDER BY rowid", arg)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	byID := make(map[string]*trajectory.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	rows, err := tx.Query(`
		SELECT trajectory_id, step, best_energy, accepted_energy
		FROM bh_trajectory_steps
		WHERE trajectory_id IN (SELECT trajectory_id FROM bh_trajectories `+where+`)
		ORDER BY trajectory_id, step`, arg)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       string
			step     int
			best     float64
			accepted float64
		)
		if err := rows.Scan(&id, &step, &best, &accepted); err != nil {
			return nil, fmt.Errorf("scan step row: %w", err)
		}
		r, ok := byID[id]
		if !ok {
			continue
		}
		if step != len(r.BestEnergies) {
			return nil, fmt.Errorf("trajectory %s: step %d out of sequence", id, step)
		}
		r.BestEnergies = append(r.BestEnergies, best)
		r.AcceptedEnergies = append(r.AcceptedEnergies, accepted)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("trajectory %s is corrupt: %w", r.ID, err)
		}
	}
	return records, nil
}

func scanHeaders(tx *sql.Tx, query string, arg any) ([]*trajectory.Record, error) {
	rows, err := tx.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("query trajectories: %w", err)
	}
	defer rows.Close()

	records := []*trajectory.Record{}
	for rows.Next() {
		var (
			r         trajectory.Record
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.Label, &r.FinalBestEnergy, &r.Length, &createdAt); err != nil {
			return nil, fmt.Errorf("scan trajectory row: %w", err)
		}
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		r.BestEnergies = make([]float64, 0, r.Length)
		r.AcceptedEnergies = make([]float64, 0, r.Length)
		records = append(records, &r)
	}
	return records, rows.Err()
}
