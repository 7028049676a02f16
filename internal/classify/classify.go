// Package classify: vision-model classification of report photos
package classify

import (
	"context"
	"errors"

	"infrabeacon/internal/report"
)

// Result is the normalised model verdict. IssueType is always a valid enum value;
// NoIssue marks a photo the model found no infrastructure problem in.
type Result struct {
	IssueType   report.IssueType `json:"issue_type"`
	Severity    report.Severity  `json:"severity"`
	Confidence  float64          `json:"confidence"`
	Description string           `json:"description"`
	Details     string           `json:"details,omitempty"`
	NoIssue     bool             `json:"no_issue,omitempty"`
	AIAnalyzed  bool             `json:"ai_analyzed"`
}

// Fallback is the verdict used when the model is unavailable.
func Fallback() *Result {
	return &Result{IssueType: report.Other, Severity: report.Low}
}

// Classifier inspects an image. Errors are expected to be non-fatal for callers.
type Classifier interface {
	Classify(ctx context.Context, data []byte, mimeType string) (*Result, error)
}

var ErrDisabled = errors.New("classifier not configured")

// Disabled is used when no model credentials are configured.
type Disabled struct{}

func (Disabled) Classify(context.Context, []byte, string) (*Result, error) { return nil, ErrDisabled }

const prompt = `Analyze this image and determine if it shows any public infrastructure issue.

Look for these types of issues:
1. pothole - Road damage, holes, or surface depressions
2. broken_light - Non-functioning street lights or traffic signals
3. garbage - Accumulated waste, litter, or illegal dumping
4. waterlogging - Standing water, flooding, or drainage problems
5. other - Other infrastructure problems (specify in description)

If no infrastructure issue is visible, respond with issue_type: "none".

Respond in JSON format:
{
    "issue_type": "pothole|broken_light|garbage|waterlogging|other|none",
    "severity": "low|medium|high",
    "confidence": 0.0-1.0,
    "description": "Brief description of the issue",
    "details": "Additional details about location, size, or urgency"
}

Consider these severity criteria:
- high: Safety hazard, immediate risk to people or vehicles
- medium: Significant inconvenience, should be fixed soon
- low: Minor issue, can be scheduled for routine maintenance`
