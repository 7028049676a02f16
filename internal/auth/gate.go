package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/logger"
	"infrabeacon/internal/metrics"
)

// Principal is an authenticated admin, valid for one request.
type Principal struct {
	UID       string
	Email     string
	Name      string
	SessionID string
	ExpiresAt time.Time
}

// Gate turns identity-provider tokens into admin sessions. The allow-list is fixed at construction.
type Gate struct {
	verifier Verifier
	sessions SessionStore
	allow    map[string]struct{}
	ttl      time.Duration
	now      func() time.Time
}

func NewGate(v Verifier, sessions SessionStore, adminEmails []string, ttl time.Duration) *Gate {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			allow[e] = struct{}{}
		}
	}
	return &Gate{verifier: v, sessions: sessions, allow: allow, ttl: ttl, now: time.Now}
}

// IsAdmin is case-insensitive; an empty allow-list admits nobody.
func (g *Gate) IsAdmin(email string) bool {
	_, ok := g.allow[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Login verifies idToken, checks the allow-list and opens a session.
func (g *Gate) Login(ctx context.Context, idToken string) (*Session, error) {
	if strings.TrimSpace(idToken) == "" {
		metrics.LoginTotal.WithLabelValues("invalid").Inc()
		return nil, apperr.Unauthorized("missing id token")
	}
	id, err := g.verifier.Verify(ctx, idToken)
	if err != nil {
		metrics.LoginTotal.WithLabelValues("invalid").Inc()
		logger.L().WithError(err).Info("auth_token_rejected")
		return nil, apperr.Unauthorized("invalid id token")
	}
	if id.Email == "" || !g.IsAdmin(id.Email) {
		metrics.LoginTotal.WithLabelValues("forbidden").Inc()
		logger.L().WithField("email", id.Email).Info("auth_not_admin")
		return nil, apperr.Forbidden("email not authorized for admin access")
	}
	sid, err := newSessionID()
	if err != nil {
		return nil, err
	}
	now := g.now().UTC()
	s := &Session{
		ID:        sid,
		UID:       id.UID,
		Email:     strings.ToLower(id.Email),
		Name:      displayName(id),
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}
	if err := g.sessions.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	metrics.LoginTotal.WithLabelValues("ok").Inc()
	logger.L().WithField("email", s.Email).Info("auth_login")
	return s, nil
}

// Authenticate resolves a session id into a Principal.
func (g *Gate) Authenticate(ctx context.Context, sessionID string) (*Principal, error) {
	if sessionID == "" {
		return nil, apperr.Unauthorized("no session")
	}
	s, err := g.sessions.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, apperr.Unauthorized("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s.Expired(g.now()) {
		_ = g.sessions.Delete(ctx, sessionID)
		return nil, apperr.Unauthorized("session expired")
	}
	if !g.IsAdmin(s.Email) {
		return nil, apperr.Forbidden("email not authorized for admin access")
	}
	return &Principal{UID: s.UID, Email: s.Email, Name: s.Name, SessionID: s.ID, ExpiresAt: s.ExpiresAt}, nil
}

// Logout is idempotent.
func (g *Gate) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return g.sessions.Delete(ctx, sessionID)
}

func displayName(id *Identity) string {
	if id.Name != "" {
		return id.Name
	}
	if i := strings.IndexByte(id.Email, '@'); i > 0 {
		return id.Email[:i]
	}
	return id.Email
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns nil when the request carries no authenticated admin.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
