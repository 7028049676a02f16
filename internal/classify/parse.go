package classify

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"infrabeacon/internal/report"
)

type rawVerdict struct {
	IssueType   string `json:"issue_type"`
	Severity    string `json:"severity"`
	Confidence  any    `json:"confidence"`
	Description string `json:"description"`
	Details     string `json:"details"`
}

// ParseVerdict extracts the JSON object from model text (which may be wrapped in prose or
// code fences) and normalises it: "none" becomes other with NoIssue set, unknown issue
// types become other, unknown severities medium, confidence is clamped to [0,1].
func ParseVerdict(text string) (*Result, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in model response")
	}
	var raw rawVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, err
	}
	res := &Result{Description: strings.TrimSpace(raw.Description), Details: strings.TrimSpace(raw.Details)}
	if strings.EqualFold(strings.TrimSpace(raw.IssueType), "none") {
		res.NoIssue = true
		res.IssueType = report.Other
	} else if it, ok := report.ParseIssueType(raw.IssueType); ok {
		res.IssueType = it
	} else {
		res.IssueType = report.Other
	}
	if sv, ok := report.ParseSeverity(raw.Severity); ok {
		res.Severity = sv
	} else {
		res.Severity = report.Medium
	}
	res.Confidence = clamp01(confidence(raw.Confidence))
	if res.Description == "" {
		res.Description = "Infrastructure issue detected"
	}
	return res, nil
}

func confidence(v any) float64 {
	switch c := v.(type) {
	case float64:
		return c
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil {
			return f
		}
	}
	return 0.5
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
