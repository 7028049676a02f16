package workflow

import (
	"context"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/auth"
	"infrabeacon/internal/imagestore"
	"infrabeacon/internal/logger"
	"infrabeacon/internal/metrics"
	"infrabeacon/internal/report"
)

const (
	DefaultResolveNotes = "Marked as resolved by admin"
	adminListLimit      = 50
)

// AdminService moderates reports.
// Background: the session gate has already resolved the caller; this layer only
// re-checks that a principal is present and writes one audit line per action.
// Constraints: a nil principal fails before the repository is touched; lifecycle
// moves only new -> verified -> resolved through Verify and Resolve.
type AdminService struct {
	repo   report.Repository
	images imagestore.Store
}

func NewAdminService(repo report.Repository, images imagestore.Store) *AdminService {
	return &AdminService{repo: repo, images: images}
}

// BulkResult counts applied updates and lists ids that could not be updated.
type BulkResult struct {
	Updated int      `json:"updated_count"`
	Failed  []string `json:"failed_ids"`
}

// BulkInput applies the same status and/or severity to up to 500 reports.
type BulkInput struct {
	IDs      []string        `validate:"required,min=1,max=500,dive,required"`
	Status   report.Status   `validate:"omitempty,status"`
	Severity report.Severity `validate:"omitempty,severity"`
}

// List returns the newest reports first, 50 unless the filter sets a limit.
func (a *AdminService) List(ctx context.Context, p *auth.Principal, f report.Filter) ([]*report.Report, error) {
	if err := authorize(p); err != nil {
		return nil, err
	}
	if f.Limit <= 0 {
		f.Limit = adminListLimit
	}
	return a.repo.List(ctx, f)
}

func (a *AdminService) Get(ctx context.Context, p *auth.Principal, id string) (*report.Report, error) {
	if err := authorize(p); err != nil {
		return nil, err
	}
	return a.repo.Get(ctx, id)
}

// Verify moves a new report to verified. Verifying a verified report is a successful no-op;
// a resolved report cannot be verified.
func (a *AdminService) Verify(ctx context.Context, p *auth.Principal, id string) (*report.Report, error) {
	if err := authorize(p); err != nil {
		return nil, err
	}
	cur, err := a.repo.Get(ctx, id)
	if err != nil {
		return nil, a.done("verify", p, id, err)
	}
	switch cur.Status {
	case report.StatusVerified:
		return cur, a.done("verify", p, id, nil)
	case report.StatusResolved:
		return nil, a.done("verify", p, id, apperr.InvalidTransition(string(cur.Status), string(report.StatusVerified)))
	}
	r, err := a.repo.Update(ctx, id, report.Patch{Status: report.StatusPtr(report.StatusVerified)})
	return r, a.done("verify", p, id, err)
}

// Resolve marks a report resolved from any status. Empty notes get a default.
func (a *AdminService) Resolve(ctx context.Context, p *auth.Principal, id, notes string) (*report.Report, error) {
	if err := authorize(p); err != nil {
		return nil, err
	}
	if notes == "" {
		notes = DefaultResolveNotes
	}
	r, err := a.repo.Update(ctx, id, report.Patch{
		Status:          report.StatusPtr(report.StatusResolved),
		ResolutionNotes: report.StringPtr(notes),
	})
	return r, a.done("resolve", p, id, err)
}

// UpdateFields applies an admin edit of status, severity, issue type, description or notes.
func (a *AdminService) UpdateFields(ctx context.Context, p *auth.Principal, id string, patch report.Patch) (*report.Report, error) {
	if err := authorize(p); err != nil {
		return nil, err
	}
	if patch.ResolutionNotes != nil {
		return nil, apperr.Validation("resolution_notes can only be set by resolve")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	r, err := a.repo.Update(ctx, id, patch)
	return r, a.done("update", p, id, err)
}

// Delete removes a report and, best effort, its photo. Unknown ids succeed.
func (a *AdminService) Delete(ctx context.Context, p *auth.Principal, id string) error {
	if err := authorize(p); err != nil {
		return err
	}
	cur, err := a.repo.Get(ctx, id)
	switch {
	case err == nil:
	case apperr.KindOf(err) == apperr.KindNotFound:
		return a.done("delete", p, id, nil)
	default:
		return a.done("delete", p, id, err)
	}
	if err := a.repo.Delete(ctx, id); err != nil {
		return a.done("delete", p, id, err)
	}
	if cur.ImageURL != "" && a.images != nil {
		if err := a.images.Delete(ctx, cur.ImageURL); err != nil {
			logger.L().WithError(err).WithField("id", id).Warn("admin_delete_image_error")
		}
	}
	return a.done("delete", p, id, nil)
}

// BulkUpdate sets status and/or severity on many reports. Individual failures do not stop the batch.
func (a *AdminService) BulkUpdate(ctx context.Context, p *auth.Principal, in BulkInput) (*BulkResult, error) {
	if err := authorize(p); err != nil {
		return nil, err
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	var patch report.Patch
	if in.Status != "" {
		patch.Status = report.StatusPtr(in.Status)
	}
	if in.Severity != "" {
		patch.Severity = report.SeverityPtr(in.Severity)
	}
	if patch.Empty() {
		return nil, apperr.Validation("no fields to update")
	}
	res := &BulkResult{Failed: []string{}}
	for _, id := range in.IDs {
		if _, err := a.repo.Update(ctx, id, patch); err != nil {
			res.Failed = append(res.Failed, id)
			continue
		}
		res.Updated++
	}
	metrics.AdminActionsTotal.WithLabelValues("bulk_update", "ok").Add(float64(res.Updated))
	if len(res.Failed) > 0 {
		metrics.AdminActionsTotal.WithLabelValues("bulk_update", "fail").Add(float64(len(res.Failed)))
	}
	logger.L().WithField("admin", p.Email).WithField("updated", res.Updated).WithField("failed", len(res.Failed)).Info("admin_bulk_update")
	return res, nil
}

func authorize(p *auth.Principal) error {
	if p == nil {
		return apperr.Unauthorized("admin session required")
	}
	return nil
}

// done records the audit line and metric for one admin action and passes err through.
func (a *AdminService) done(action string, p *auth.Principal, id string, err error) error {
	e := logger.L().WithField("admin", p.Email).WithField("id", id).WithField("action", action)
	if err != nil {
		metrics.AdminActionsTotal.WithLabelValues(action, "fail").Inc()
		e.WithError(err).Warn("admin_action_failed")
		return err
	}
	metrics.AdminActionsTotal.WithLabelValues(action, "ok").Inc()
	e.Info("admin_action")
	return nil
}
