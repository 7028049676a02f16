// Package workflow: the citizen submission flow and the admin moderation operations
package workflow

import (
	"context"
	"errors"
	"time"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/classify"
	"infrabeacon/internal/imagestore"
	"infrabeacon/internal/logger"
	"infrabeacon/internal/metrics"
	"infrabeacon/internal/notify"
	"infrabeacon/internal/report"
)

// DefaultDuplicateRadius is the distance within which an active report suppresses a new one.
const DefaultDuplicateRadius = 15.0

// SubmitInput is one citizen submission. IssueType and Severity are optional caller overrides.
type SubmitInput struct {
	Image       []byte           `validate:"required"`
	Filename    string           `validate:"max=255"`
	Latitude    float64          `validate:"gte=-90,lte=90"`
	Longitude   float64          `validate:"gte=-180,lte=180"`
	Description string           `validate:"max=2000"`
	IssueType   report.IssueType `validate:"omitempty,issue_type"`
	Severity    report.Severity  `validate:"omitempty,severity"`
}

// Duplicate references the active report that caused a submission to be rejected.
type Duplicate struct {
	Existing       *report.Report
	DistanceMeters float64
}

// Outcome is exactly one of: a created Report (Analysis nil when classification failed)
// or a Duplicate.
type Outcome struct {
	Report    *report.Report
	Analysis  *classify.Result
	Duplicate *Duplicate
}

// Submitter turns a citizen photo and location into a stored report.
// Background: one photo per report; the photo is stored before the duplicate check so a
// rejected submission never reaches the model.
// Constraints: no retries; an active report within the radius wins over a new one;
// uploaded photos that end up unreferenced are deleted best-effort.
type Submitter struct {
	repo       report.Repository
	images     imagestore.Store
	classifier classify.Classifier
	notifier   notify.Notifier
	radius     float64
}

// NewSubmitter wires the submission flow. A nil classifier or notifier disables that step;
// a non-positive radius falls back to DefaultDuplicateRadius.
func NewSubmitter(repo report.Repository, images imagestore.Store, c classify.Classifier, n notify.Notifier, radiusMeters float64) *Submitter {
	if radiusMeters <= 0 {
		radiusMeters = DefaultDuplicateRadius
	}
	if c == nil {
		c = classify.Disabled{}
	}
	if n == nil {
		n = notify.Noop{}
	}
	return &Submitter{repo: repo, images: images, classifier: c, notifier: n, radius: radiusMeters}
}

// Submit runs validate, store image, duplicate check, classify, persist.
// Upload and persistence failures abort; classification failure only degrades the report.
func (s *Submitter) Submit(ctx context.Context, in SubmitInput) (*Outcome, error) {
	img, err := s.check(in)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	url, err := s.images.Put(ctx, img)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		if !errors.Is(err, apperr.ErrUpload) {
			err = apperr.Upload(err)
		}
		return nil, err
	}

	nearby, err := s.repo.FindNearby(ctx, in.Latitude, in.Longitude, s.radius)
	if err != nil {
		s.discard(ctx, url)
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		return nil, persistence("duplicate check", err)
	}
	// nearby is ordered nearest first, then newest first
	for _, n := range nearby {
		if n.Report.Status.Active() {
			s.discard(ctx, url)
			metrics.SubmissionsTotal.WithLabelValues("duplicate").Inc()
			logger.L().WithField("existing", n.Report.ID).WithField("distance_m", n.DistanceMeters).Info("submission_duplicate")
			return &Outcome{Duplicate: &Duplicate{Existing: n.Report, DistanceMeters: n.DistanceMeters}}, nil
		}
	}

	analysis, err := s.runClassifier(ctx, img, "submission_classify_degraded")
	if err != nil {
		analysis = nil
	}

	created, err := s.repo.Create(ctx, buildReport(in, url, analysis))
	if err != nil {
		s.discard(ctx, url)
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		return nil, persistence("create report", err)
	}
	metrics.SubmissionsTotal.WithLabelValues("created").Inc()
	logger.L().WithField("id", created.ID).WithField("issue_type", created.IssueType).
		WithField("severity", created.Severity).WithField("ai", created.AIAnalyzed).Info("submission_created")
	s.notifier.ReportCreated(ctx, created)
	return &Outcome{Report: created, Analysis: analysis}, nil
}

// Analyze classifies a photo without storing anything. Only an unusable image is an error;
// when the model is unavailable the preview carries the fallback verdict with AIAnalyzed unset.
func (s *Submitter) Analyze(ctx context.Context, data []byte, filename string) (*classify.Result, error) {
	img, err := imagestore.Inspect(data, filename)
	if err != nil {
		return nil, err
	}
	res, err := s.runClassifier(ctx, img, "analyze_classify_degraded")
	if err != nil {
		return classify.Fallback(), nil
	}
	return res, nil
}

// runClassifier calls the model and marks a usable verdict as AI-analysed.
// Failures are logged here; a disabled classifier is not worth a warning.
func (s *Submitter) runClassifier(ctx context.Context, img *imagestore.Image, event string) (*classify.Result, error) {
	res, err := s.classifier.Classify(ctx, img.Data, img.ContentType)
	if err == nil && res == nil {
		err = errors.New("empty verdict")
	}
	if err != nil {
		err = apperr.Classification(err)
		if !errors.Is(err, classify.ErrDisabled) {
			logger.L().WithError(err).Warn(event)
		}
		return nil, err
	}
	out := *res
	out.AIAnalyzed = true
	return &out, nil
}

func (s *Submitter) check(in SubmitInput) (*imagestore.Image, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if in.Latitude == 0 && in.Longitude == 0 {
		return nil, apperr.Validation("location is required")
	}
	return imagestore.Inspect(in.Image, in.Filename)
}

// discard removes an uploaded photo that will not be referenced by any report.
func (s *Submitter) discard(ctx context.Context, url string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.images.Delete(ctx, url); err != nil {
		logger.L().WithError(err).WithField("url", url).Warn("image_discard_error")
	}
}

func buildReport(in SubmitInput, url string, analysis *classify.Result) *report.Report {
	r := &report.Report{
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: in.Description,
		ImageURL:    url,
		IssueType:   report.Other,
		Severity:    report.Low,
	}
	if analysis != nil {
		r.AIAnalyzed = true
		r.AIConfidence = analysis.Confidence
		r.AIIssueType = analysis.IssueType
		r.AIDescription = analysis.Description
		r.IssueType = analysis.IssueType
		if analysis.Severity.Valid() {
			r.Severity = analysis.Severity
		}
		if r.Description == "" {
			r.Description = analysis.Description
		}
	}
	if in.IssueType != "" {
		r.IssueType = in.IssueType
		r.UserConfirmed = true
	}
	if in.Severity != "" {
		r.Severity = in.Severity
	}
	return r
}

func persistence(op string, err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Persistence(op, err)
}
