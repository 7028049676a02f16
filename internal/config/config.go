// Package config: process configuration, loaded once at start-up and passed down explicitly
package config

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	UIDist      string `env:"UI_DIST" envDefault:"ui/dist"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`

	StoreBackend    string `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL     string `env:"DATABASE_URL"`
	PGHost          string `env:"PG_HOST" envDefault:"localhost"`
	PGPort          string `env:"PG_PORT" envDefault:"5432"`
	PGUser          string `env:"PG_USER" envDefault:"postgres"`
	PGPassword      string `env:"PG_PASSWORD"`
	PGDB            string `env:"PG_DB" envDefault:"infrabeacon"`
	PGSSLMode       string `env:"PG_SSLMODE" envDefault:"disable"`
	PGMaxOpenConns  int    `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	PGMaxIdleConns  int    `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	MongoURI        string `env:"MONGO_URI"`
	MongoDB         string `env:"MONGO_DB" envDefault:"infrabeacon"`
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPass       string `env:"REDIS_PASS"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	ImageBackend    string `env:"IMAGE_BACKEND" envDefault:"s3"`
	S3Bucket        string `env:"S3_BUCKET"`
	AWSRegion       string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`

	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	VertexProject   string        `env:"VERTEX_PROJECT"`
	VertexLocation  string        `env:"VERTEX_LOCATION" envDefault:"us-central1"`
	ClassifyTimeout time.Duration `env:"CLASSIFY_TIMEOUT" envDefault:"20s"`

	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseAPIKey          string `env:"FIREBASE_API_KEY"`
	FirebaseAuthDomain      string `env:"FIREBASE_AUTH_DOMAIN"`
	GoogleMapsAPIKey        string `env:"GOOGLE_MAPS_API_KEY"`

	AdminEmails         []string      `env:"ADMIN_EMAILS" envSeparator:","`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	DuplicateRadiusMeters float64 `env:"DUPLICATE_RADIUS_M" envDefault:"15"`

	RateLimitEnabled bool     `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitQPS     int      `env:"RATE_LIMIT_QPS" envDefault:"200"`
	AdminAllowCIDRs  []string `env:"ADMIN_ALLOW_CIDRS" envSeparator:","`
	RealIPHeader     string   `env:"REAL_IP_HEADER"`

	GeoIPPath      string `env:"GEOIP_DB_PATH"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`

	CronStatsRefresh string        `env:"CRON_STATS_REFRESH" envDefault:"@every 1m"`
	CronSessionPrune string        `env:"CRON_SESSION_PRUNE" envDefault:"@every 10m"`
	HealthInterval   time.Duration `env:"HEALTH_INTERVAL" envDefault:"10s"`

	TLSEnable   bool   `env:"TLS_ENABLE" envDefault:"false"`
	TLSCertPath string `env:"TLS_CERT_PATH" envDefault:"data/certs/server.crt"`
	TLSKeyPath  string `env:"TLS_KEY_PATH" envDefault:"data/certs/server.key"`
}

// Load reads .env files when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.ImageBackend = strings.ToLower(strings.TrimSpace(c.ImageBackend))
	emails := make([]string, 0, len(c.AdminEmails))
	for _, e := range c.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			emails = append(emails, e)
		}
	}
	c.AdminEmails = emails
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "postgres", "memory":
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("config: STORE_BACKEND=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.ImageBackend {
	case "memory":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("config: IMAGE_BACKEND=s3 requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("config: unknown IMAGE_BACKEND %q", c.ImageBackend)
	}
	if c.DuplicateRadiusMeters <= 0 {
		return fmt.Errorf("config: DUPLICATE_RADIUS_M must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive")
	}
	return nil
}

func (c *Config) Production() bool { return strings.EqualFold(c.Environment, "production") }

// PostgresDSN prefers DATABASE_URL and otherwise assembles one from the PG_* variables.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.PGHost, c.PGPort),
		Path:     "/" + c.PGDB,
		RawQuery: url.Values{"sslmode": {c.PGSSLMode}}.Encode(),
	}
	switch {
	case c.PGPassword != "":
		u.User = url.UserPassword(c.PGUser, c.PGPassword)
	case c.PGUser != "":
		u.User = url.User(c.PGUser)
	}
	return u.String()
}

// ClassifierEnabled is true when either the Gemini API or Vertex AI is configured.
func (c *Config) ClassifierEnabled() bool { return c.GeminiAPIKey != "" || c.VertexProject != "" }
