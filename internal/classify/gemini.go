package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"infrabeacon/internal/logger"
	"infrabeacon/internal/metrics"

	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Gemini calls the generateContent REST endpoint, either on the public Gemini API
// (API key) or on Vertex AI (application default credentials).
type Gemini struct {
	client  *http.Client
	url     string
	apiKey  string
	timeout time.Duration
}

func NewGemini(apiKey, model string, timeout time.Duration) *Gemini {
	u := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model)
	return newGemini(&http.Client{}, u, apiKey, timeout)
}

// NewVertex authenticates with Google application default credentials.
func NewVertex(ctx context.Context, project, location, model string, timeout time.Duration) (*Gemini, error) {
	client, err := google.DefaultClient(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("vertex credentials: %w", err)
	}
	u := fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		location, project, location, model)
	return newGemini(client, u, "", timeout), nil
}

func newGemini(client *http.Client, url, apiKey string, timeout time.Duration) *Gemini {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Gemini{client: client, url: url, apiKey: apiKey, timeout: timeout}
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content      `json:"contents"`
	GenerationConfig map[string]any `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Classify(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	t0 := time.Now()
	res, err := g.classify(ctx, data, mimeType)
	metrics.ClassifyDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	if err != nil {
		metrics.ClassifyTotal.WithLabelValues("fail").Inc()
		return nil, err
	}
	metrics.ClassifyTotal.WithLabelValues("ok").Inc()
	logger.L().WithField("issue_type", res.IssueType).WithField("severity", res.Severity).
		WithField("confidence", res.Confidence).Debug("classify_ok")
	return res, nil
}

func (g *Gemini) classify(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
			},
		}},
		GenerationConfig: map[string]any{"temperature": 0.2, "responseMimeType": "application/json"},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("x-goog-api-key", g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		logger.L().WithError(err).Warn("classify_http_error")
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		snippet := raw
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, snippet)
	}
	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}
	return ParseVerdict(gr.Candidates[0].Content.Parts[0].Text)
}
