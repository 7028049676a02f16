package workflow

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"testing"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/auth"
	"infrabeacon/internal/classify"
	"infrabeacon/internal/geo"
	"infrabeacon/internal/imagestore"
	"infrabeacon/internal/report"
	"infrabeacon/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type stubClassifier struct {
	res   *classify.Result
	err   error
	calls int
}

func (s *stubClassifier) Classify(context.Context, []byte, string) (*classify.Result, error) {
	s.calls++
	return s.res, s.err
}

type brokenImages struct{}

func (brokenImages) Put(context.Context, *imagestore.Image) (string, error) {
	return "", errors.New("bucket unreachable")
}
func (brokenImages) Delete(context.Context, string) error { return nil }

type recordingNotifier struct {
	mu  sync.Mutex
	got []*report.Report
}

func (n *recordingNotifier) ReportCreated(_ context.Context, r *report.Report) {
	n.mu.Lock()
	n.got = append(n.got, r)
	n.mu.Unlock()
}

type failingRepo struct {
	*store.Memory
}

func (failingRepo) Create(context.Context, *report.Report) (*report.Report, error) {
	return nil, apperr.Persistence("create report", errors.New("connection reset"))
}

type fixture struct {
	repo   *store.Memory
	images *imagestore.Memory
	ai     *stubClassifier
	notes  *recordingNotifier
	sub    *Submitter
}

func newFixture() *fixture {
	f := &fixture{
		repo:   store.NewMemory(),
		images: imagestore.NewMemory(),
		ai: &stubClassifier{res: &classify.Result{
			IssueType: report.Pothole, Severity: report.High, Confidence: 0.9, Description: "Deep pothole",
		}},
		notes: &recordingNotifier{},
	}
	f.sub = NewSubmitter(f.repo, f.images, f.ai, f.notes, DefaultDuplicateRadius)
	return f
}

func (f *fixture) submit(t *testing.T, lat, lng float64) *Outcome {
	t.Helper()
	out, err := f.sub.Submit(context.Background(), SubmitInput{Image: pngBytes(t), Filename: "photo.png", Latitude: lat, Longitude: lng})
	require.NoError(t, err)
	return out
}

func TestSubmitCreatesClassifiedReport(t *testing.T) {
	f := newFixture()
	out := f.submit(t, 12.9716, 77.5946)
	require.Nil(t, out.Duplicate)
	require.NotNil(t, out.Report)
	r := out.Report
	assert.Equal(t, report.StatusNew, r.Status)
	assert.Equal(t, report.Pothole, r.IssueType)
	assert.Equal(t, report.High, r.Severity)
	assert.True(t, r.AIAnalyzed)
	assert.Equal(t, "Deep pothole", r.Description)
	assert.Equal(t, "tdr1v9q", r.Geohash)
	assert.NotEmpty(t, r.ImageURL)
	assert.Equal(t, 1, f.images.Count())
	assert.Len(t, f.notes.got, 1)
}

func TestSubmitDuplicateWithinRadius(t *testing.T) {
	f := newFixture()
	a := f.submit(t, 12.9716, 77.5946).Report

	out := f.submit(t, 12.97165, 77.59465)
	require.NotNil(t, out.Duplicate)
	assert.Nil(t, out.Report)
	assert.Equal(t, a.ID, out.Duplicate.Existing.ID)
	assert.Less(t, out.Duplicate.DistanceMeters, 15.0)
	assert.Equal(t, 1, f.repo.Len())
	assert.Equal(t, 1, f.images.Count(), "rejected photo is removed")
	assert.Equal(t, 1, f.ai.calls, "duplicates are not classified")
}

func TestSubmitFarAwayIsNotDuplicate(t *testing.T) {
	f := newFixture()
	f.submit(t, 12.9716, 77.5946)
	out := f.submit(t, 12.9800, 77.6000)
	require.Nil(t, out.Duplicate)
	assert.Equal(t, 2, f.repo.Len())
}

// north returns the point dist metres due north of lat,lng.
func north(lat, lng, dist float64) (float64, float64) {
	return lat + dist/geo.EarthRadiusMeters*180/math.Pi, lng
}

func TestSubmitDuplicateRadiusBoundary(t *testing.T) {
	const lat, lng = 12.9716, 77.5946
	cases := []struct {
		dist      float64
		duplicate bool
	}{
		{14.5, true},
		{14.99, true},
		{15.5, false},
		{16, false},
	}
	for _, c := range cases {
		f := newFixture()
		a := f.submit(t, lat, lng).Report
		nlat, nlng := north(lat, lng, c.dist)
		require.InDelta(t, c.dist, geo.Distance(lat, lng, nlat, nlng), 1e-6)

		out := f.submit(t, nlat, nlng)
		if c.duplicate {
			require.NotNil(t, out.Duplicate, "%.2fm", c.dist)
			assert.Equal(t, a.ID, out.Duplicate.Existing.ID)
			assert.InDelta(t, c.dist, out.Duplicate.DistanceMeters, 1e-6)
			assert.Equal(t, 1, f.repo.Len())
		} else {
			require.Nil(t, out.Duplicate, "%.2fm", c.dist)
			assert.NotEqual(t, a.ID, out.Report.ID)
			assert.Equal(t, 2, f.repo.Len())
		}
	}
}

func TestSubmitBeyondRadiusIgnoresStatus(t *testing.T) {
	const lat, lng = 12.9716, 77.5946
	for _, st := range []report.Status{report.StatusNew, report.StatusVerified, report.StatusResolved} {
		f := newFixture()
		olat, olng := north(lat, lng, 16)
		_, err := f.repo.Create(context.Background(), &report.Report{
			Latitude: olat, Longitude: olng, IssueType: report.Other, Severity: report.Low, Status: st,
		})
		require.NoError(t, err)

		out := f.submit(t, lat, lng)
		assert.Nil(t, out.Duplicate, string(st))
		assert.Equal(t, 2, f.repo.Len(), string(st))
	}
}

func TestSubmitNearResolvedCreatesNew(t *testing.T) {
	f := newFixture()
	a := f.submit(t, 12.9716, 77.5946).Report
	_, err := f.repo.Update(context.Background(), a.ID, report.Patch{Status: report.StatusPtr(report.StatusResolved)})
	require.NoError(t, err)

	out := f.submit(t, 12.97165, 77.59465)
	require.Nil(t, out.Duplicate)
	assert.NotEqual(t, a.ID, out.Report.ID)
}

func TestSubmitDuplicatePicksNearestActive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	far, err := f.repo.Create(ctx, &report.Report{Latitude: 12.97166, Longitude: 77.59466, IssueType: report.Other, Severity: report.Low})
	require.NoError(t, err)
	near, err := f.repo.Create(ctx, &report.Report{Latitude: 12.97161, Longitude: 77.59461, IssueType: report.Other, Severity: report.Low})
	require.NoError(t, err)
	_, err = f.repo.Create(ctx, &report.Report{Latitude: 12.97160, Longitude: 77.59460, IssueType: report.Other, Severity: report.Low, Status: report.StatusResolved})
	require.NoError(t, err)

	out := f.submit(t, 12.9716, 77.5946)
	require.NotNil(t, out.Duplicate)
	assert.Equal(t, near.ID, out.Duplicate.Existing.ID)
	assert.NotEqual(t, far.ID, out.Duplicate.Existing.ID)
}

func TestSubmitClassifierFailureDegrades(t *testing.T) {
	f := newFixture()
	f.ai.res, f.ai.err = nil, errors.New("model timeout")
	out := f.submit(t, 12.9716, 77.5946)
	require.NotNil(t, out.Report)
	assert.Nil(t, out.Analysis)
	assert.False(t, out.Report.AIAnalyzed)
	assert.Equal(t, report.Other, out.Report.IssueType)
	assert.Equal(t, report.Low, out.Report.Severity)
}

func TestSubmitCallerOverridesAI(t *testing.T) {
	f := newFixture()
	out, err := f.sub.Submit(context.Background(), SubmitInput{
		Image: pngBytes(t), Filename: "x.png", Latitude: 1, Longitude: 1,
		Description: "Street lamp out", IssueType: report.BrokenLight, Severity: report.Medium,
	})
	require.NoError(t, err)
	r := out.Report
	assert.Equal(t, report.BrokenLight, r.IssueType)
	assert.Equal(t, report.Medium, r.Severity)
	assert.Equal(t, "Street lamp out", r.Description)
	assert.True(t, r.UserConfirmed)
	assert.Equal(t, report.Pothole, r.AIIssueType)
	assert.Equal(t, "Deep pothole", r.AIDescription)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture()
	img := pngBytes(t)
	cases := map[string]SubmitInput{
		"no image":     {Latitude: 1, Longitude: 1},
		"lat range":    {Image: img, Latitude: 91, Longitude: 1},
		"lng range":    {Image: img, Latitude: 1, Longitude: -181},
		"null island":  {Image: img},
		"bad type":     {Image: img, Latitude: 1, Longitude: 1, IssueType: "crater"},
		"bad severity": {Image: img, Latitude: 1, Longitude: 1, Severity: "urgent"},
		"not image":    {Image: []byte("hello"), Latitude: 1, Longitude: 1},
		"bad ext":      {Image: img, Filename: "x.exe", Latitude: 1, Longitude: 1},
	}
	for name, in := range cases {
		_, err := f.sub.Submit(context.Background(), in)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}
	assert.Equal(t, 0, f.images.Count())
	assert.Equal(t, 0, f.repo.Len())
}

func TestSubmitUploadFailure(t *testing.T) {
	f := newFixture()
	sub := NewSubmitter(f.repo, brokenImages{}, f.ai, nil, 0)
	_, err := sub.Submit(context.Background(), SubmitInput{Image: pngBytes(t), Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, apperr.ErrUpload)
	assert.Equal(t, 0, f.repo.Len())
}

func TestSubmitPersistenceFailureRemovesImage(t *testing.T) {
	f := newFixture()
	sub := NewSubmitter(failingRepo{f.repo}, f.images, f.ai, nil, 0)
	_, err := sub.Submit(context.Background(), SubmitInput{Image: pngBytes(t), Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, 0, f.images.Count())
}

func TestAnalyze(t *testing.T) {
	f := newFixture()
	res, err := f.sub.Analyze(context.Background(), pngBytes(t), "p.png")
	require.NoError(t, err)
	assert.Equal(t, report.Pothole, res.IssueType)

	assert.True(t, res.AIAnalyzed)
	assert.False(t, f.ai.res.AIAnalyzed, "stub verdict is not mutated")
	assert.Equal(t, 0, f.repo.Len())
	assert.Equal(t, 0, f.images.Count())
}

func TestAnalyzeDegradesWithoutModel(t *testing.T) {
	f := newFixture()
	for _, err := range []error{classify.ErrDisabled, errors.New("model timeout")} {
		f.ai.res, f.ai.err = nil, err
		res, gotErr := f.sub.Analyze(context.Background(), pngBytes(t), "p.png")
		require.NoError(t, gotErr, err.Error())
		assert.Equal(t, report.Other, res.IssueType)
		assert.Equal(t, report.Low, res.Severity)
		assert.Zero(t, res.Confidence)
		assert.False(t, res.AIAnalyzed)
	}

	_, err := f.sub.Analyze(context.Background(), []byte("hello"), "p.png")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

var admin = &auth.Principal{Email: "admin@city.gov", Name: "admin"}

func TestAdminRequiresPrincipal(t *testing.T) {
	f := newFixture()
	a := f.submit(t, 12.9716, 77.5946).Report
	svc := NewAdminService(f.repo, f.images)
	ctx := context.Background()

	_, err := svc.Verify(ctx, nil, a.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Resolve(ctx, nil, a.ID, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.ErrorIs(t, svc.Delete(ctx, nil, a.ID), apperr.ErrUnauthorized)
	_, err = svc.UpdateFields(ctx, nil, a.ID, report.Patch{Notes: report.StringPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	got, err := f.repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, report.StatusNew, got.Status)
	assert.Empty(t, got.Notes)
}

func TestAdminVerifyIdempotent(t *testing.T) {
	f := newFixture()
	a := f.submit(t, 12.9716, 77.5946).Report
	svc := NewAdminService(f.repo, f.images)
	ctx := context.Background()

	r1, err := svc.Verify(ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, report.StatusVerified, r1.Status)
	r2, err := svc.Verify(ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, report.StatusVerified, r2.Status)
	assert.Equal(t, r1.UpdatedAt, r2.UpdatedAt, "second verify does not write")

	_, err = svc.Verify(ctx, admin, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdminResolveFromNew(t *testing.T) {
	f := newFixture()
	a := f.submit(t, 12.9716, 77.5946).Report
	svc := NewAdminService(f.repo, f.images)
	ctx := context.Background()

	r, err := svc.Resolve(ctx, admin, a.ID, "")
	require.NoError(t, err)
	assert.Equal(t, report.StatusResolved, r.Status)
	assert.Equal(t, DefaultResolveNotes, r.ResolutionNotes)

	_, err = svc.Verify(ctx, admin, a.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestAdminUpdateFields(t *testing.T) {
	f := newFixture()
	a := f.submit(t, 12.9716, 77.5946).Report
	svc := NewAdminService(f.repo, f.images)
	ctx := context.Background()

	r, err := svc.UpdateFields(ctx, admin, a.ID, report.Patch{
		Severity: report.SeverityPtr(report.Low),
		Notes:    report.StringPtr("crew scheduled"),
	})
	require.NoError(t, err)
	assert.Equal(t, report.Low, r.Severity)
	assert.Equal(t, "crew scheduled", r.Notes)

	_, err = svc.UpdateFields(ctx, admin, a.ID, report.Patch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdateFields(ctx, admin, a.ID, report.Patch{Status: report.StatusPtr("closed")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdateFields(ctx, admin, a.ID, report.Patch{ResolutionNotes: report.StringPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAdminDeleteIdempotent(t *testing.T) {
	f := newFixture()
	a := f.submit(t, 12.9716, 77.5946).Report
	svc := NewAdminService(f.repo, f.images)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, admin, a.ID))
	assert.Equal(t, 0, f.images.Count())
	_, err := f.repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, admin, a.ID))
}

func TestAdminBulkUpdate(t *testing.T) {
	f := newFixture()
	a := f.submit(t, 12.9716, 77.5946).Report
	b := f.submit(t, 12.9800, 77.6000).Report
	svc := NewAdminService(f.repo, f.images)
	ctx := context.Background()

	res, err := svc.BulkUpdate(ctx, admin, BulkInput{IDs: []string{a.ID, "missing", b.ID}, Status: report.StatusVerified})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, []string{"missing"}, res.Failed)

	_, err = svc.BulkUpdate(ctx, admin, BulkInput{IDs: []string{a.ID}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.BulkUpdate(ctx, admin, BulkInput{Status: report.StatusVerified})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.BulkUpdate(ctx, admin, BulkInput{IDs: []string{a.ID}, Severity: "extreme"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAdminListDefaultLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		_, err := f.repo.Create(ctx, &report.Report{Latitude: float64(i), Longitude: 10, IssueType: report.Other, Severity: report.Low})
		require.NoError(t, err)
	}
	svc := NewAdminService(f.repo, f.images)
	rs, err := svc.List(ctx, admin, report.Filter{})
	require.NoError(t, err)
	assert.Len(t, rs, 50)
}
