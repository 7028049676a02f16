// Entry point: load config, build the adapters, mount routes and serve until signalled
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"infrabeacon/internal/api"
	"infrabeacon/internal/auth"
	"infrabeacon/internal/classify"
	"infrabeacon/internal/config"
	"infrabeacon/internal/health"
	"infrabeacon/internal/imagestore"
	"infrabeacon/internal/ipgeo"
	"infrabeacon/internal/logger"
	"infrabeacon/internal/mapview"
	"infrabeacon/internal/metrics"
	"infrabeacon/internal/middleware"
	"infrabeacon/internal/migrate"
	"infrabeacon/internal/notify"
	"infrabeacon/internal/report"
	"infrabeacon/internal/scheduler"
	"infrabeacon/internal/store"
	"infrabeacon/internal/utils"
	"infrabeacon/internal/workflow"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().WithError(err).Fatal("config_error")
	}
	l := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Production: cfg.Production(), File: cfg.LogFile})
	l.WithField("env", cfg.Environment).WithField("store", cfg.StoreBackend).WithField("images", cfg.ImageBackend).Info("config_loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hr := health.NewRegistry(cfg.HealthInterval)

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		l.WithError(err).Fatal("store_open_error")
	}
	defer closeRepo()
	if c, ok := repo.(health.Checker); ok {
		hr.Register(c)
	}

	rc := utils.OpenRedis(cfg)
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.WithError(err).Error("redis_ping_error")
		} else {
			l.Info("redis_ping_ok")
		}
	}

	images, err := openImages(ctx, cfg)
	if err != nil {
		l.WithError(err).Fatal("imagestore_open_error")
	}
	if c, ok := images.(health.Checker); ok {
		hr.Register(c)
	}

	sched := scheduler.New()
	var sessions auth.SessionStore
	if rc != nil {
		rs := auth.NewRedisSessions(rc)
		hr.Register(rs)
		sessions = rs
	} else {
		ms := auth.NewMemorySessions()
		mustSchedule(l, sched.Add("session_prune", cfg.CronSessionPrune, func(context.Context) error {
			if n := ms.Prune(time.Now()); n > 0 {
				logger.L().WithField("pruned", n).Info("session_prune")
			}
			return nil
		}))
		sessions = ms
	}

	var verifier auth.Verifier = denyAll{}
	if cfg.FirebaseProjectID != "" {
		fb, err := auth.NewFirebase(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			l.WithError(err).Fatal("firebase_init_error")
		}
		verifier = fb
	} else {
		l.Warn("firebase_disabled")
	}
	if len(cfg.AdminEmails) == 0 {
		l.Warn("admin_allow_list_empty")
	}
	gate := auth.NewGate(verifier, sessions, cfg.AdminEmails, cfg.SessionTTL)

	submitter := workflow.NewSubmitter(repo, images, openClassifier(ctx, cfg, l), openNotifier(cfg, l), cfg.DuplicateRadiusMeters)
	statsTTL := time.Minute
	if rc != nil {
		// keep the cached stats alive until the next refresh has rewritten them
		iv, err := scheduler.Interval(cfg.CronStatsRefresh)
		mustSchedule(l, err)
		statsTTL = iv + 30*time.Second
	}
	maps := mapview.NewService(repo, rc, statsTTL)
	if rc != nil {
		l.WithField("ttl", statsTTL.String()).Info("stats_cache_enabled")
		mustSchedule(l, sched.Add("stats_refresh", cfg.CronStatsRefresh, func(ctx context.Context) error {
			_, err := maps.RefreshStats(ctx)
			return err
		}))
	}

	var locator api.Locator
	if cfg.GeoIPPath != "" {
		loc, err := ipgeo.Open(cfg.GeoIPPath)
		if err != nil {
			l.WithError(err).WithField("path", cfg.GeoIPPath).Error("geoip_open_error")
		} else {
			defer loc.Close()
			locator = loc
		}
	}

	allow, err := middleware.NewIPAllow(cfg.AdminAllowCIDRs, cfg.RealIPHeader)
	if err != nil {
		l.WithError(err).Fatal("admin_allow_list_error")
	}

	mux := api.BuildRoutes(api.Deps{
		Reports:    repo,
		Submitter:  submitter,
		Admin:      workflow.NewAdminService(repo, images),
		Gate:       gate,
		Map:        maps,
		Locator:    locator,
		Health:     hr,
		AdminAllow: allow,
		Frontend: api.Frontend{
			GoogleMapsAPIKey:   cfg.GoogleMapsAPIKey,
			FirebaseAPIKey:     cfg.FirebaseAPIKey,
			FirebaseAuthDomain: cfg.FirebaseAuthDomain,
			FirebaseProjectID:  cfg.FirebaseProjectID,
		},
		CookieSecure: cfg.SessionCookieSecure || cfg.TLSEnable,
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/", http.FileServer(http.Dir(cfg.UIDist)))

	hr.Start(ctx)
	sched.Start()

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.RateLimit(cfg.RateLimitEnabled, cfg.RateLimitQPS)(handler)
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		var err error
		if cfg.TLSEnable {
			if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "infrabeacon.local"); err != nil {
				l.WithError(err).Error("tls_cert_error")
			}
			l.WithField("addr", cfg.Addr).WithField("cert", cfg.TLSCertPath).Info("listening_tls")
			err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			l.WithField("addr", cfg.Addr).Info("listening")
			err = s.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.WithError(err).Error("server_error")
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("shutdown_begin")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sched.Stop(shutCtx)
	if err := s.Shutdown(shutCtx); err != nil {
		l.WithError(err).Error("shutdown_error")
	}
	l.Info("shutdown_done")
}

// openRepository picks the report store; the returned func releases its connections.
func openRepository(ctx context.Context, cfg *config.Config) (report.Repository, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		logger.L().Warn("store_memory_not_durable")
		return store.NewMemory(), func() {}, nil
	case "mongo":
		octx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		client, db, err := utils.OpenMongo(octx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.EnsureMongoIndexes(octx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		logger.L().WithField("db", cfg.MongoDB).Info("mongo_open_ok")
		return store.NewMongo(db), func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		db, err := utils.OpenPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := migrate.EnsureSchema(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.L().Info("db_open_ok")
		return store.AttachDB(db), func() { _ = db.Close() }, nil
	}
}

func openImages(ctx context.Context, cfg *config.Config) (imagestore.Store, error) {
	if cfg.ImageBackend == "memory" {
		logger.L().Warn("imagestore_memory_not_durable")
		return imagestore.NewMemory(), nil
	}
	return imagestore.NewS3(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.S3PublicBaseURL)
}

// openClassifier prefers Vertex AI when a project is set, then the Gemini API key.
// Without either, submissions are stored unclassified.
func openClassifier(ctx context.Context, cfg *config.Config, l *logrus.Logger) classify.Classifier {
	if cfg.VertexProject != "" {
		v, err := classify.NewVertex(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.GeminiModel, cfg.ClassifyTimeout)
		if err == nil {
			l.WithField("project", cfg.VertexProject).WithField("model", cfg.GeminiModel).Info("classifier_vertex")
			return v
		}
		l.WithError(err).Error("classifier_vertex_error")
	}
	if cfg.GeminiAPIKey != "" {
		l.WithField("model", cfg.GeminiModel).Info("classifier_gemini")
		return classify.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ClassifyTimeout)
	}
	l.Warn("classifier_disabled")
	return classify.Disabled{}
}

func openNotifier(cfg *config.Config, l *logrus.Logger) notify.Notifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return notify.Noop{}
	}
	t, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		l.WithError(err).Error("notify_telegram_error")
		return notify.Noop{}
	}
	l.WithField("chat", cfg.TelegramChatID).Info("notify_telegram_ready")
	return t
}

func mustSchedule(l *logrus.Logger, err error) {
	if err != nil {
		l.WithError(err).Fatal("cron_schedule_error")
	}
}

// denyAll rejects every token; used when no identity provider is configured.
type denyAll struct{}

func (denyAll) Verify(context.Context, string) (*auth.Identity, error) {
	return nil, errors.New("identity provider not configured")
}

