package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	authadapter "github.com/ericfisherdev/reviewdesk/internal/adapter/driven/auth"
	githubadapter "github.com/ericfisherdev/reviewdesk/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/reviewdesk/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/reviewdesk/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/reviewdesk/internal/adapter/driving/web"
	"github.com/ericfisherdev/reviewdesk/internal/application"
	"github.com/ericfisherdev/reviewdesk/internal/application/accounts"
	"github.com/ericfisherdev/reviewdesk/internal/application/fields"
	"github.com/ericfisherdev/reviewdesk/internal/config"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

const sessionCleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.Default()

	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"auth_backend", cfg.AuthBackend,
		"session_ttl", cfg.SessionTTL,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	logger.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	logger.Info("migrations complete")

	// 5. Wire adapters.
	userStore := sqliteadapter.NewUserRepo(db)
	groupStore := sqliteadapter.NewGroupRepo(db)
	repositoryStore := sqliteadapter.NewRepositoryRepo(db)
	requestStore := sqliteadapter.NewReviewRequestRepo(db)
	siteConfigStore := sqliteadapter.NewSiteConfigRepo(db)
	sessionStore := sqliteadapter.NewSessionRepo(db)
	searchIndex := sqliteadapter.NewSearchIndex(db)

	// 6. Select the authentication backend.
	var authBackend driven.AuthBackend
	switch cfg.AuthBackend {
	case config.AuthBackendDigest:
		authBackend = authadapter.NewDigestBackend(cfg.DigestFile, cfg.DigestRealm, userStore, logger)
		logger.Info("using digest auth backend", "file", cfg.DigestFile, "realm", cfg.DigestRealm)
	default:
		authBackend = authadapter.NewStandardBackend(userStore)
	}

	// 7. Create GitHub client for pending changeset checks (optional).
	var changesets driven.ChangesetChecker
	if cfg.HasGitHubToken() {
		ghClient := githubadapter.NewClient(cfg.GitHubToken)
		login, err := ghClient.ValidateToken(ctx)
		if err != nil {
			logger.Warn("github token validation failed, changeset checks may fail", "error", err)
		} else {
			logger.Info("github client created", "login", login)
		}
		changesets = ghClient
	} else {
		logger.Info("no github token configured, changesets are never reported as pending")
	}

	// 8. Create application services.
	signals := application.NewSignalProcessor(siteConfigStore, groupStore, searchIndex, logger)
	reviewRequestSvc := application.NewReviewRequestService(
		requestStore,
		repositoryStore,
		changesets,
		fields.NewBuiltinRegistry(logger),
		application.NewStoreResolver(userStore, groupStore, requestStore),
		signals,
		logger,
	)
	searchSvc := application.NewSearchService(siteConfigStore, searchIndex, requestStore, userStore, groupStore, logger)
	groupSvc := application.NewGroupService(groupStore, logger)
	sessionSvc := application.NewSessionService(authBackend, sessionStore, userStore, cfg.SessionTTL, logger)
	accountPages := accounts.NewPages(accounts.DefaultPageSpecs(), accounts.Deps{
		Auth:       authBackend,
		Users:      userStore,
		Groups:     groupStore,
		SiteConfig: siteConfigStore,
		UserSaved:  signals,
		Logger:     logger,
	})

	go sessionSvc.StartCleanup(ctx, sessionCleanupInterval)

	// 9. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(reviewRequestSvc, searchSvc, groupSvc, sessionSvc, db, logger)
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	// 10. Create web handler and register GUI routes.
	webHandler := webhandler.NewHandler(
		reviewRequestSvc, searchSvc, groupSvc, sessionSvc, accountPages, userStore,
		cfg.SessionTTL, cfg.SecureCookies, logger,
	)
	webhandler.RegisterRoutes(mux, webHandler)

	// Apply middleware. Sessions resolve before logging so log lines carry the user.
	handler := httphandler.SessionMiddleware(sessionSvc, logger, httphandler.ApplyMiddleware(mux, logger))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// 11. Log startup complete.
	logger.Info("reviewdesk started", "listen_addr", cfg.ListenAddr)

	// 12. Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// 13. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
