package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/migrate"
	"infrabeacon/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStampMatchesColumnPrecision(t *testing.T) {
	s := AttachDB(nil)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 123456789, time.FixedZone("IST", 19800)) }
	got := s.stamp()
	assert.Equal(t, time.Date(2024, 5, 1, 2, 30, 0, 123456000, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

// Runs against a disposable database named by TEST_DATABASE_URL.
func openTestDB(t *testing.T) *Store {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.EnsureSchema(db))
	_, err = db.Exec("TRUNCATE reports")
	require.NoError(t, err)
	s := AttachDB(db)
	s.now = tickingClock()
	return s
}

func TestPostgresRoundTrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	r, err := s.Create(ctx, &report.Report{Latitude: 12.9716, Longitude: 77.5946, IssueType: report.Pothole, Severity: report.High})
	require.NoError(t, err)

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Geohash, got.Geohash)
	assert.Equal(t, report.StatusNew, got.Status)
	assert.Equal(t, r.CreatedAt, got.CreatedAt)
	assert.Equal(t, r.UpdatedAt, got.UpdatedAt)

	near, err := s.FindNearby(ctx, 12.97165, 77.59465, 15)
	require.NoError(t, err)
	require.Len(t, near, 1)

	up, err := s.Update(ctx, r.ID, report.Patch{Status: report.StatusPtr(report.StatusResolved), ResolutionNotes: report.StringPtr("patched")})
	require.NoError(t, err)
	assert.Equal(t, report.StatusResolved, up.Status)
	assert.Equal(t, "patched", up.ResolutionNotes)

	list, err := s.List(ctx, report.Filter{Status: report.StatusResolved})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, r.ID))
	_, err = s.Get(ctx, r.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
