package report

import (
	"time"

	"infrabeacon/internal/apperr"
)

// Patch is a partial update; nil fields are left untouched. Location is not patchable.
type Patch struct {
	Status          *Status    `json:"status,omitempty"`
	Severity        *Severity  `json:"severity,omitempty"`
	IssueType       *IssueType `json:"issue_type,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty"`
}

// Empty is true when the patch would change nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Severity == nil && p.IssueType == nil &&
		p.Description == nil && p.Notes == nil && p.ResolutionNotes == nil
}

// Validate checks enum values; it does not enforce any lifecycle order.
func (p Patch) Validate() error {
	if p.Empty() {
		return apperr.Validation("no fields to update")
	}
	if p.Status != nil && !p.Status.Valid() {
		return apperr.Validation("invalid status %q", *p.Status)
	}
	if p.Severity != nil && !p.Severity.Valid() {
		return apperr.Validation("invalid severity %q", *p.Severity)
	}
	if p.IssueType != nil && !p.IssueType.Valid() {
		return apperr.Validation("invalid issue_type %q", *p.IssueType)
	}
	return nil
}

// Apply mutates r in place and bumps UpdatedAt.
func (p Patch) Apply(r *Report, now time.Time) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Severity != nil {
		r.Severity = *p.Severity
	}
	if p.IssueType != nil {
		r.IssueType = *p.IssueType
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.ResolutionNotes != nil {
		r.ResolutionNotes = *p.ResolutionNotes
	}
	r.UpdatedAt = now.UTC()
}

// Fields lists the patched columns with their new values, in a stable order.
func (p Patch) Fields() []Field {
	var out []Field
	if p.Status != nil {
		out = append(out, Field{"status", string(*p.Status)})
	}
	if p.Severity != nil {
		out = append(out, Field{"severity", string(*p.Severity)})
	}
	if p.IssueType != nil {
		out = append(out, Field{"issue_type", string(*p.IssueType)})
	}
	if p.Description != nil {
		out = append(out, Field{"description", *p.Description})
	}
	if p.Notes != nil {
		out = append(out, Field{"notes", *p.Notes})
	}
	if p.ResolutionNotes != nil {
		out = append(out, Field{"resolution_notes", *p.ResolutionNotes})
	}
	return out
}

type Field struct {
	Name  string
	Value string
}

func StatusPtr(s Status) *Status          { return &s }
func SeverityPtr(s Severity) *Severity    { return &s }
func IssueTypePtr(t IssueType) *IssueType { return &t }
func StringPtr(s string) *string          { return &s }
