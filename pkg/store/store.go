// Package store keeps a SQLite history of deconvolution runs.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Sumatoshi-tech/civu/pkg/deconv"
)

// ErrRunNotFound is returned when a run id is absent.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed width so that start times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

//go:embed schema.sql
var schemaSQL string

// Store is a run history backed by a SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, schemaSQL)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("apply history schema: %w", err), db.Close())
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID           string
	Dataset      string
	Started      time.Time
	Cycles       int
	Means        string
	AverageError float64
	Traces       int
}

// TraceFit is a stored ATD fit with its peaks.
type TraceFit struct {
	Key      string
	Method   string
	MinError float64
	Peaks    []deconv.PeakResult
}

// SaveRun stores a run, its traces and their peaks in one transaction.
func (s *Store) SaveRun(ctx context.Context, run deconv.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	err = insertRun(ctx, tx, run)
	if err != nil {
		return errors.Join(err, tx.Rollback())
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}

	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, run deconv.RunResult) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, dataset, started_at, cycles, threshold, means, average_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Dataset, run.Started.UTC().Format(timeLayout),
		run.Settings.Cycles, run.Settings.Threshold, run.Settings.Means.String(), run.AverageError,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for pos, tr := range run.Traces {
		res, execErr := tx.ExecContext(ctx, `
			INSERT INTO atd_fits (run_id, atd_key, position, method, min_error, norm_factor, duration_us)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID.String(), tr.Key, pos, tr.Method.String(), tr.MinError, tr.Fit.NormFactor,
			tr.Duration.Microseconds(),
		)
		if execErr != nil {
			return fmt.Errorf("insert atd %s: %w", tr.Key, execErr)
		}

		fitID, idErr := res.LastInsertId()
		if idErr != nil {
			return fmt.Errorf("atd %s id: %w", tr.Key, idErr)
		}

		for _, p := range tr.Peaks {
			_, execErr = tx.ExecContext(ctx, `
				INSERT INTO peaks (atd_fit_id, peak_index, height, center, spread, fwhm, area_percent)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				fitID, p.Index, p.Height, p.Center, p.Spread, p.FWHM, p.AreaPercent,
			)
			if execErr != nil {
				return fmt.Errorf("insert atd %s peak %d: %w", tr.Key, p.Index, execErr)
			}
		}
	}

	return nil
}

// Runs lists stored runs, newest first. An empty dataset lists all.
func (s *Store) Runs(ctx context.Context, dataset string) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.dataset, r.started_at, r.cycles, r.means, r.average_error, COUNT(f.id)
		FROM runs r LEFT JOIN atd_fits f ON f.run_id = r.id
		WHERE ? = '' OR r.dataset = ?
		GROUP BY r.id
		ORDER BY r.started_at DESC`, dataset, dataset)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary

	for rows.Next() {
		var (
			rs      RunSummary
			started string
		)

		scanErr := rows.Scan(&rs.ID, &rs.Dataset, &started, &rs.Cycles, &rs.Means, &rs.AverageError, &rs.Traces)
		if scanErr != nil {
			return nil, fmt.Errorf("scan run: %w", scanErr)
		}

		rs.Started, scanErr = time.Parse(timeLayout, started)
		if scanErr != nil {
			return nil, fmt.Errorf("run %s start time: %w", rs.ID, scanErr)
		}

		out = append(out, rs)
	}

	return out, rows.Err()
}

// TraceFits returns the ATD fits of a run in their original order.
func (s *Store) TraceFits(ctx context.Context, runID string) ([]TraceFit, error) {
	var exists int

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup run %s: %w", runID, err)
	}

	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.atd_key, f.method, f.min_error,
		       p.peak_index, p.height, p.center, p.spread, p.fwhm, p.area_percent
		FROM atd_fits f JOIN peaks p ON p.atd_fit_id = f.id
		WHERE f.run_id = ?
		ORDER BY f.position, p.peak_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query fits of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []TraceFit

	for rows.Next() {
		var (
			key, method string
			minErr      float64
			p           deconv.PeakResult
		)

		scanErr := rows.Scan(&key, &method, &minErr,
			&p.Index, &p.Height, &p.Center, &p.Spread, &p.FWHM, &p.AreaPercent)
		if scanErr != nil {
			return nil, fmt.Errorf("scan fit: %w", scanErr)
		}

		if len(out) == 0 || out[len(out)-1].Key != key {
			out = append(out, TraceFit{Key: key, Method: method, MinError: minErr})
		}

		last := &out[len(out)-1]
		last.Peaks = append(last.Peaks, p)
	}

	return out, rows.Err()
}

// DeleteRun removes a run and everything recorded under it.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return nil
}
