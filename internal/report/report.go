// Package report: the report entity, its enums and the repository contract
package report

import (
	"strings"
	"time"

	"infrabeacon/internal/geo"

	"github.com/google/uuid"
)

type IssueType string

const (
	Pothole      IssueType = "pothole"
	BrokenLight  IssueType = "broken_light"
	Garbage      IssueType = "garbage"
	Waterlogging IssueType = "waterlogging"
	Other        IssueType = "other"
)

var IssueTypes = []IssueType{Pothole, BrokenLight, Garbage, Waterlogging, Other}

func (t IssueType) Valid() bool {
	for _, v := range IssueTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseIssueType is case-insensitive and tolerates surrounding blanks.
func ParseIssueType(s string) (IssueType, bool) {
	t := IssueType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

type Severity string

const (
	Low    Severity = "low"
	Medium Severity = "medium"
	High   Severity = "high"
)

var Severities = []Severity{Low, Medium, High}

func (s Severity) Valid() bool { return s == Low || s == Medium || s == High }

func ParseSeverity(s string) (Severity, bool) {
	v := Severity(strings.ToLower(strings.TrimSpace(s)))
	return v, v.Valid()
}

type Status string

const (
	StatusNew      Status = "new"
	StatusVerified Status = "verified"
	StatusResolved Status = "resolved"
)

var Statuses = []Status{StatusNew, StatusVerified, StatusResolved}

func (s Status) Valid() bool { return s == StatusNew || s == StatusVerified || s == StatusResolved }

func ParseStatus(s string) (Status, bool) {
	v := Status(strings.ToLower(strings.TrimSpace(s)))
	return v, v.Valid()
}

// Active reports whether the status still counts for duplicate suppression.
func (s Status) Active() bool { return s != StatusResolved }

// Report is the only persisted entity.
// Background: the geohash is indexed so proximity queries can pre-filter by prefix
// before computing exact distances.
// Constraints: ID, location, geohash and CreatedAt are fixed at creation; AI fields keep
// the model verdict even when the caller overrides IssueType.
type Report struct {
	ID              string    `json:"id" bson:"_id"`
	Latitude        float64   `json:"latitude" bson:"latitude"`
	Longitude       float64   `json:"longitude" bson:"longitude"`
	Geohash         string    `json:"geohash" bson:"geohash"`
	IssueType       IssueType `json:"issue_type" bson:"issue_type"`
	Severity        Severity  `json:"severity" bson:"severity"`
	Description     string    `json:"description" bson:"description"`
	Status          Status    `json:"status" bson:"status"`
	ImageURL        string    `json:"image_url" bson:"image_url"`
	AIAnalyzed      bool      `json:"ai_analyzed" bson:"ai_analyzed"`
	AIConfidence    float64   `json:"ai_confidence" bson:"ai_confidence"`
	AIIssueType     IssueType `json:"ai_issue_type,omitempty" bson:"ai_issue_type,omitempty"`
	AIDescription   string    `json:"ai_description,omitempty" bson:"ai_description,omitempty"`
	UserConfirmed   bool      `json:"user_confirmed" bson:"user_confirmed"`
	Notes           string    `json:"notes,omitempty" bson:"notes,omitempty"`
	ResolutionNotes string    `json:"resolution_notes,omitempty" bson:"resolution_notes,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

func (r *Report) Clone() *Report {
	c := *r
	return &c
}

// PrepareNew fills the fields a repository owns on creation: id, geohash, initial status and timestamps.
func PrepareNew(r *Report, now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Geohash = geo.Encode(r.Latitude, r.Longitude, geo.IndexPrecision)
	if r.Status == "" {
		r.Status = StatusNew
	}
	now = now.UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
}
