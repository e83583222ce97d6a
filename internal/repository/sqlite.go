package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/geo-impact-monitor/internal/engine"
	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			fallback_active INTEGER NOT NULL,
			total_points INTEGER NOT NULL,
			at_risk INTEGER NOT NULL,
			unassessed INTEGER NOT NULL,
			details BLOB
		);

		CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			point_id TEXT NOT NULL,
			lat REAL,
			lon REAL,
			city TEXT,
			region TEXT,
			status TEXT NOT NULL,
			is_at_risk INTEGER NOT NULL,
			hazards TEXT NOT NULL,
			check_method TEXT NOT NULL,
			reason TEXT,
			customers_out INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, seq),
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
		CREATE INDEX IF NOT EXISTS idx_records_point_id ON records(point_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// databases created before customers_out was tracked
	_, err := s.db.Exec(`ALTER TABLE records ADD COLUMN customers_out INTEGER NOT NULL DEFAULT 0`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column") {
		return err
	}
	return nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// runDetails is everything in a Report that is not a column or a record.
type runDetails struct {
	Stats   map[models.Category]models.GeometryStats `json:"stats"`
	Merges  map[models.Category]engine.MergeSummary  `json:"merges"`
	Skips   map[models.Category]map[string]int       `json:"skips"`
	Sources []models.SourceStatus                    `json:"sources"`
	Summary engine.Summary                           `json:"summary"`
}

func (s *SQLiteDB) SaveRun(ctx context.Context, r *engine.Report) error {
	details, err := json.Marshal(runDetails{
		Stats:   r.Stats,
		Merges:  r.Merges,
		Skips:   r.Skips,
		Sources: r.Sources,
		Summary: r.Summary,
	})
	if err != nil {
		return fmt.Errorf("error encoding run details: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, fallback_active, total_points, at_risk, unassessed, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.FallbackActive,
		r.Summary.TotalPoints, r.Summary.AtRisk, r.Summary.Unassessed, details,
	)
	if err != nil {
		return fmt.Errorf("error inserting run %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (run_id, seq, point_id, lat, lon, city, region, status, is_at_risk, hazards, check_method, reason, customers_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing record insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range r.Records {
		hazards, err := json.Marshal(rec.Hazards)
		if err != nil {
			return fmt.Errorf("error encoding hazards: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			r.RunID, i, rec.PointID, nullFloat(rec.Lat), nullFloat(rec.Lon),
			rec.City, rec.Region, string(rec.Status), rec.IsAtRisk,
			string(hazards), string(rec.CheckMethod), rec.Reason, rec.CustomersOut,
		)
		if err != nil {
			return fmt.Errorf("error inserting record %s: %w", rec.PointID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteDB) GetRun(ctx context.Context, id string) (*engine.Report, error) {
	var (
		r       engine.Report
		details []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, fallback_active, details
		FROM runs WHERE id = ?`, id,
	).Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.FallbackActive, &details)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying run %s: %w", id, err)
	}

	var d runDetails
	if len(details) > 0 {
		if err := json.Unmarshal(details, &d); err != nil {
			return nil, fmt.Errorf("error decoding run details: %w", err)
		}
	}
	r.Stats, r.Merges, r.Skips, r.Sources, r.Summary = d.Stats, d.Merges, d.Skips, d.Sources, d.Summary

	r.Records, err = s.ListRecords(ctx, id, Filter{})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteDB) ListRuns(ctx context.Context, opts Filter) ([]RunSummary, error) {
	query := `SELECT id, started_at, finished_at, fallback_active, total_points, at_risk, unassessed FROM runs`
	var (
		where []string
		args  []any
	)
	if opts.Since != nil {
		where = append(where, "started_at >= ?")
		args = append(args, opts.Since.UTC())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"
	query, args = paginate(query, args, opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.ID, &rs.StartedAt, &rs.FinishedAt, &rs.FallbackActive, &rs.TotalPoints, &rs.AtRisk, &rs.Unassessed); err != nil {
			return nil, fmt.Errorf("error scanning run: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) ListRecords(ctx context.Context, runID string, opts Filter) ([]models.MatchRecord, error) {
	query := `
		SELECT point_id, lat, lon, city, region, status, is_at_risk, hazards, check_method, reason, customers_out
		FROM records WHERE run_id = ?`
	args := []any{runID}
	if opts.AtRiskOnly {
		query += " AND is_at_risk = 1"
	}
	query += " ORDER BY seq"
	query, args = paginate(query, args, opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing records: %w", err)
	}
	defer rows.Close()

	out := []models.MatchRecord{}
	for rows.Next() {
		var (
			rec                 models.MatchRecord
			lat, lon            sql.NullFloat64
			city, region, why   sql.NullString
			status, method, hzd string
		)
		if err := rows.Scan(&rec.PointID, &lat, &lon, &city, &region, &status, &rec.IsAtRisk, &hzd, &method, &why, &rec.CustomersOut); err != nil {
			return nil, fmt.Errorf("error scanning record: %w", err)
		}
		if lat.Valid && lon.Valid {
			rec.Lat, rec.Lon = &lat.Float64, &lon.Float64
		}
		rec.City, rec.Region, rec.Reason = city.String, region.String, why.String
		rec.Status = models.AssessmentStatus(status)
		rec.CheckMethod = models.CheckMethod(method)
		if err := json.Unmarshal([]byte(hzd), &rec.Hazards); err != nil {
			return nil, fmt.Errorf("error decoding hazards: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteBefore removes runs started before cutoff along with their records.
func (s *SQLiteDB) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("error deleting records: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("error deleting runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

func paginate(query string, args []any, opts Filter) (string, []any) {
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}
	return query, args
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
