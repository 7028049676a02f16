package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"infrabeacon/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	res, err := ParseVerdict("```json\n{\"issue_type\":\"Pothole\",\"severity\":\"HIGH\",\"confidence\":0.93,\"description\":\"Deep pothole\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, report.Pothole, res.IssueType)
	assert.Equal(t, report.High, res.Severity)
	assert.Equal(t, 0.93, res.Confidence)
	assert.Equal(t, "Deep pothole", res.Description)
	assert.False(t, res.NoIssue)
}

func TestParseVerdictNormalises(t *testing.T) {
	res, err := ParseVerdict(`Here you go: {"issue_type":"none","severity":"catastrophic","confidence":"7"}`)
	require.NoError(t, err)
	assert.True(t, res.NoIssue)
	assert.Equal(t, report.Other, res.IssueType)
	assert.Equal(t, report.Medium, res.Severity)
	assert.Equal(t, 1.0, res.Confidence)
	assert.NotEmpty(t, res.Description)

	res, err = ParseVerdict(`{"issue_type":"graffiti","severity":"low"}`)
	require.NoError(t, err)
	assert.Equal(t, report.Other, res.IssueType)
	assert.Equal(t, 0.5, res.Confidence)
}

func TestParseVerdictErrors(t *testing.T) {
	_, err := ParseVerdict("I cannot help with that")
	assert.Error(t, err)
	_, err = ParseVerdict("{not json}")
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Classify(context.Background(), []byte{1}, "image/png")
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestGeminiClassify(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"issue_type\":\"garbage\",\"severity\":\"low\",\"confidence\":0.7,\"description\":\"Overflowing bin\"}"}]}}]}`))
	}))
	defer srv.Close()

	g := newGemini(srv.Client(), srv.URL, "test-key", time.Second)
	res, err := g.Classify(context.Background(), []byte{0x89, 0x50}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, report.Garbage, res.IssueType)
	assert.Equal(t, report.Low, res.Severity)

	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "image/png", got.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, "iVA=", got.Contents[0].Parts[1].InlineData.Data)
}

func TestGeminiErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") == "empty" {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
			return
		}
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newGemini(srv.Client(), srv.URL, "", time.Second).Classify(context.Background(), []byte{1}, "image/jpeg")
	assert.ErrorContains(t, err, "429")

	_, err = newGemini(srv.Client(), srv.URL+"?mode=empty", "", time.Second).Classify(context.Background(), []byte{1}, "image/jpeg")
	assert.ErrorContains(t, err, "no candidates")
}

func TestGeminiTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	_, err := newGemini(srv.Client(), srv.URL, "", 50*time.Millisecond).Classify(context.Background(), []byte{1}, "image/jpeg")
	assert.Error(t, err)
}
