// Package store: report persistence over PostgreSQL, MongoDB or process memory
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/logger"
	"infrabeacon/internal/report"

	"github.com/lib/pq"
)

const reportColumns = `id, latitude, longitude, geohash, issue_type, severity, description, status, image_url,
    ai_analyzed, ai_confidence, ai_issue_type, ai_description, user_confirmed, notes, resolution_notes,
    created_at, updated_at`

// Store is the PostgreSQL report repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db, now: time.Now} }

func (s *Store) DB() *sql.DB { return s.db }

// stamp is the current time at timestamptz precision, so a returned report equals a later Get.
func (s *Store) stamp() time.Time { return s.now().UTC().Truncate(time.Microsecond) }

func (s *Store) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*report.Report, error) {
	var r report.Report
	err := row.Scan(&r.ID, &r.Latitude, &r.Longitude, &r.Geohash, &r.IssueType, &r.Severity, &r.Description,
		&r.Status, &r.ImageURL, &r.AIAnalyzed, &r.AIConfidence, &r.AIIssueType, &r.AIDescription,
		&r.UserConfirmed, &r.Notes, &r.ResolutionNotes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func (s *Store) Create(ctx context.Context, in *report.Report) (*report.Report, error) {
	r := in.Clone()
	report.PrepareNew(r, s.stamp())
	_, err := s.db.ExecContext(ctx, `INSERT INTO reports(`+reportColumns+`)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		r.ID, r.Latitude, r.Longitude, r.Geohash, r.IssueType, r.Severity, r.Description, r.Status, r.ImageURL,
		r.AIAnalyzed, r.AIConfidence, r.AIIssueType, r.AIDescription, r.UserConfirmed, r.Notes, r.ResolutionNotes,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		logger.L().WithError(err).Error("db_report_insert_error")
		return nil, apperr.Persistence("create report", err)
	}
	logger.L().WithField("id", r.ID).WithField("geohash", r.Geohash).Debug("db_report_insert")
	return r, nil
}

func (s *Store) Get(ctx context.Context, id string) (*report.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(id)
	}
	if err != nil {
		return nil, apperr.Persistence("get report", err)
	}
	return r, nil
}

func (s *Store) List(ctx context.Context, f report.Filter) ([]*report.Report, error) {
	f = f.Normalized()
	var where []string
	var args []any
	add := func(col string, v string) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	if f.IssueType != "" {
		add("issue_type", string(f.IssueType))
	}
	if f.Severity != "" {
		add("severity", string(f.Severity))
	}
	q := "SELECT " + reportColumns + " FROM reports"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d", len(args))
	return s.query(ctx, "list reports", q, args...)
}

// Candidates serves the geohash pre-filter with an index-friendly LIKE ANY over prefixes.
func (s *Store) Candidates(ctx context.Context, prefixes []string) ([]*report.Report, error) {
	patterns := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			return s.query(ctx, "nearby candidates", "SELECT "+reportColumns+" FROM reports")
		}
		patterns = append(patterns, p+"%")
	}
	return s.query(ctx, "nearby candidates",
		"SELECT "+reportColumns+" FROM reports WHERE geohash LIKE ANY($1)", pq.Array(patterns))
}

func (s *Store) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]report.Nearby, error) {
	return report.FindNearby(ctx, s, lat, lng, radiusMeters)
}

func (s *Store) Update(ctx context.Context, id string, p report.Patch) (*report.Report, error) {
	fields := p.Fields()
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		args = append(args, f.Value)
		sets = append(sets, fmt.Sprintf("%s=$%d", f.Name, len(args)))
	}
	args = append(args, s.stamp())
	sets = append(sets, fmt.Sprintf("updated_at=$%d", len(args)))
	args = append(args, id)
	q := fmt.Sprintf("UPDATE reports SET %s WHERE id=$%d RETURNING %s", strings.Join(sets, ", "), len(args), reportColumns)
	r, err := scanReport(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(id)
	}
	if err != nil {
		logger.L().WithError(err).WithField("id", id).Error("db_report_update_error")
		return nil, apperr.Persistence("update report", err)
	}
	return r, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id=$1", id); err != nil {
		return apperr.Persistence("delete report", err)
	}
	return nil
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Heartbeat(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) query(ctx context.Context, op, q string, args ...any) ([]*report.Report, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	defer rows.Close()
	var out []*report.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return out, nil
}
