package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"placedir/internal/api"
	"placedir/internal/claims"
	"placedir/internal/config"
	"placedir/internal/db"
	"placedir/internal/db/repository"
	"placedir/internal/docstore"
	"placedir/internal/identity"
	"placedir/internal/middleware"
	"placedir/internal/policy"
	"placedir/internal/service/bootstrap"
	"placedir/internal/service/directory"
	"placedir/internal/service/lifecycle"
	"placedir/internal/service/reconcile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	// writeDB: single-connection pool for serialized writes (WAL + txlock=immediate).
	// readDB:  concurrent read pool used by repos that only SELECT.
	writeDB, readDB, err := db.OpenSQLitePair(cfg.DBPath, 4)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := db.RunMigrations(writeDB); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	principalRepo := repository.NewPrincipalRepo(writeDB)
	tenantRepo := repository.NewTenantRepo(writeDB)
	resourceRepo := repository.NewResourceRepo(writeDB)
	analyticsRepo := repository.NewAnalyticsRepo(writeDB)
	assetRepo := repository.NewAssetRepo(writeDB)
	auditRepo := repository.NewAuditRepo(writeDB)
	accountRepo := repository.NewProviderAccountRepo(writeDB)

	codec, err := claims.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("claims codec: %v", err)
	}
	provider := identity.NewProvider(accountRepo, codec, logger)
	provider.Subscribe(bootstrap.NewHandler(provider, principalRepo, auditRepo, cfg.BootstrapRecheckDelay, logger).OnAccountCreated)

	engine, err := policy.NewEngine(directory.NewService(repository.NewTenantRepo(readDB)))
	if err != nil {
		log.Fatalf("policy engine: %v", err)
	}
	store := docstore.NewStore(engine, resourceRepo, analyticsRepo, assetRepo, tenantRepo, auditRepo, logger)
	lifecycleSvc := lifecycle.NewService(provider, principalRepo, tenantRepo, repository.NewTxManager(writeDB), auditRepo, logger)

	if cfg.ReconcileSchedule != "" {
		sweeper := reconcile.NewSweeper(provider, principalRepo, auditRepo, logger)
		if cfg.ReconcileGrace > 0 {
			sweeper = sweeper.WithGracePeriod(cfg.ReconcileGrace)
		}
		if err := sweeper.Start(cfg.ReconcileSchedule); err != nil {
			log.Fatalf("reconcile sweep: %v", err)
		}
		defer sweeper.Stop()
	}

	var validator middleware.JWTValidator
	if cfg.Auth.OIDCEnabled() {
		validator, err = middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	} else {
		validator, err = middleware.NewHS256Validator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}
	if err != nil {
		log.Fatalf("token validator: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := api.NewHandler(lifecycleSvc, store, engine, provider, auditRepo)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticator(validator))
		r.Mount("/", handler.Routes())
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http api listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("server stopped")
}
