package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestTokenBucketRefillsEachSecond(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tb := NewTokenBucket(2)
	tb.now = func() time.Time { return now }
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
	now = now.Add(time.Second)
	assert.True(t, tb.Allow())
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(true, 1)(ok)
	codes := []int{}
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	assert.Contains(t, codes, http.StatusTooManyRequests)

	off := RateLimit(false, 1)(ok)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		off.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestIPAllow(t *testing.T) {
	m, err := NewIPAllow([]string{"10.0.0.0/8", "203.0.113.7", "local"}, "")
	require.NoError(t, err)
	h := m.Wrap(ok)
	for addr, want := range map[string]int{
		"10.1.2.3:5555":    http.StatusNoContent,
		"203.0.113.7:80":   http.StatusNoContent,
		"127.0.0.1:1":      http.StatusNoContent,
		"[::1]:1":          http.StatusNoContent,
		"198.51.100.1:443": http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/reports", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, addr)
	}
}

func TestIPAllowTrustedHeader(t *testing.T) {
	m, err := NewIPAllow([]string{"192.0.2.0/24"}, "X-Forwarded-For")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "192.0.2.44, 10.0.0.1")
	rec := httptest.NewRecorder()
	m.Wrap(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIPAllowEmptyAndInvalid(t *testing.T) {
	m, err := NewIPAllow(nil, "")
	require.NoError(t, err)
	assert.True(t, m.Empty())
	_, err = NewIPAllow([]string{"10.0.0.0/33"}, "")
	assert.Error(t, err)
	_, err = NewIPAllow([]string{"not-an-ip"}, "")
	assert.Error(t, err)
}

func TestVisitorIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1"
	assert.Equal(t, "10.0.0.1", VisitorIP(req))
	req.Header.Set("Forwarded", `for="203.0.113.9";proto=https`)
	assert.Equal(t, "203.0.113.9", VisitorIP(req))
	req.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")
	assert.Equal(t, "198.51.100.2", VisitorIP(req))
}
