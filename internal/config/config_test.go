package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("IMAGE_BACKEND", "memory")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 15.0, cfg.DuplicateRadiusMeters)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 20*time.Second, cfg.ClassifyTimeout)
	assert.False(t, cfg.ClassifierEnabled())
}

func TestLoadAdminEmails(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("IMAGE_BACKEND", "memory")
	t.Setenv("ADMIN_EMAILS", " Ops@City.gov ,, clerk@city.gov")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@city.gov", "clerk@city.gov"}, cfg.AdminEmails)
}

func TestLoadRejectsBadBackends(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("IMAGE_BACKEND", "memory")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err = Load()
	assert.ErrorContains(t, err, "MONGO_URI")

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("IMAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")
	_, err = Load()
	assert.ErrorContains(t, err, "S3_BUCKET")
}

func TestPostgresDSN(t *testing.T) {
	c := &Config{PGUser: "app", PGPassword: "pw", PGHost: "db", PGPort: "5432", PGDB: "reports", PGSSLMode: "require"}
	assert.Equal(t, "postgres://app:pw@db:5432/reports?sslmode=require", c.PostgresDSN())

	c.PGPassword = "p@ss:w/rd?"
	dsn := c.PostgresDSN()
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/reports", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss:w/rd?", pw)
	assert.Equal(t, "require", u.Query().Get("sslmode"))

	c.DatabaseURL = "postgres://elsewhere/x"
	assert.Equal(t, "postgres://elsewhere/x", c.PostgresDSN())
}
