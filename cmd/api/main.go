package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medibilling/portal/internal/app"
	"medibilling/portal/internal/authpw"
	"medibilling/portal/internal/catalog"
	"medibilling/portal/internal/config"
	"medibilling/portal/internal/email"
	"medibilling/portal/internal/localstore"
	"medibilling/portal/internal/logging"
	"medibilling/portal/internal/media"
	"medibilling/portal/internal/repository"
	"medibilling/portal/internal/session"
	"medibilling/portal/internal/store"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// remote bundles the configured remote store with its profile lookup.
type remote interface {
	repository.PrimaryStore
	authpw.ProfileStore
}

func run(cfg config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ctx := context.Background()

	kv, closeKV, err := openLocalKV(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()
	local := localstore.New(kv, cfg.LocalStorageKey, logger)

	primary, closeRemote, err := openRemote(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRemote()

	var images *media.ImageStore
	if cfg.ImagesEnabled() {
		images, err = media.NewImageStore(media.Options{
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Region:        cfg.S3Region,
			UseSSL:        cfg.S3UseSSL,
			Bucket:        cfg.ImageBucket,
			PublicBaseURL: cfg.ImagePublicBaseURL,
		}, logger)
		if err != nil {
			return err
		}
		if err := images.EnsureBucket(ctx); err != nil {
			logger.Warn("image bucket unavailable, team images will be inlined",
				zap.String("bucket", images.Bucket()), zap.Error(err))
		}
	}

	repoOpts := repository.Options{
		Local:   local,
		Timeout: cfg.RemoteTimeout,
		Logger:  logger,
	}
	if primary != nil {
		repoOpts.Primary = primary
	}
	if images != nil {
		repoOpts.Images = media.NewResolver(images, logger)
	} else {
		repoOpts.Images = media.NewResolver(nil, logger)
	}
	repo := repository.New(repoOpts)

	services := catalog.New(repo, catalog.Options{
		RollbackOnFailure: cfg.ServicesRollbackOnFailure,
		Logger:            logger,
	})
	defer services.Close()
	if err := services.Init(ctx); err != nil {
		return fmt.Errorf("load services: %w", err)
	}

	sessions, closeSessions, err := openSessions(cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	authenticators := authpw.Chain{}
	if primary != nil {
		authenticators = append(authenticators, authpw.NewProfileAuthenticator(primary))
	}
	if cfg.AdminPassword != "" {
		authenticators = append(authenticators, authpw.NewStaticAuthenticator(cfg.AdminUsername, cfg.AdminPassword))
	}

	opts := app.Options{
		Config:   cfg,
		Content:  repo,
		Catalog:  services,
		Auth:     authenticators,
		Sessions: sessions,
		Mailer: email.NewService(email.Config{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			From:      cfg.SMTPFrom,
			FromName:  cfg.SMTPFromName,
			Recipient: cfg.ContactRecipient,
		}),
		Logger: logger,
	}
	if images != nil {
		opts.Images = images
	}
	service := app.NewService(opts)

	httpServer, err := app.NewHTTPServer(service, cfg.CORSOrigin)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Addr),
			zap.String("remote", cfg.RemoteBackend),
			zap.String("local", cfg.LocalBackend),
			zap.Bool("images", images != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

func openLocalKV(ctx context.Context, cfg config.Config) (localstore.KV, func(), error) {
	switch cfg.LocalBackend {
	case config.LocalRedis:
		kv, err := localstore.NewRedisKV(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return kv, func() { _ = kv.Close() }, nil
	case config.LocalSQLite:
		kv, err := localstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil
	default:
		return localstore.NewMemoryKV(), func() {}, nil
	}
}

func openRemote(ctx context.Context, cfg config.Config, logger *zap.Logger) (remote, func(), error) {
	switch cfg.RemoteBackend {
	case config.RemoteSupabase:
		s, err := store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.RemotePostgres:
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrations failed: %w", err)
		}
		return store.NewPostgresStore(db, logger), closeDB(db), nil
	default:
		return nil, func() {}, nil
	}
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

func openSessions(cfg config.Config) (session.Store, func(), error) {
	if cfg.LocalBackend != config.LocalRedis {
		return session.NewMemoryStore(), func() {}, nil
	}
	rs, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis session store: %w", err)
	}
	return rs, func() { _ = rs.Close() }, nil
}
