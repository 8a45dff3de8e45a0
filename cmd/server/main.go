// Command carenotes-server starts the practice records HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/carenotes/internal/blob"
	"github.com/and161185/carenotes/internal/config"
	"github.com/and161185/carenotes/internal/limiter"
	"github.com/and161185/carenotes/internal/metrics"
	"github.com/and161185/carenotes/internal/migrate"
	"github.com/and161185/carenotes/internal/repository/memory"
	"github.com/and161185/carenotes/internal/repository/postgres"
	httpserver "github.com/and161185/carenotes/internal/server/http"
	"github.com/and161185/carenotes/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store),
		zap.String("blob", cfg.Blob.Driver),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var (
		repos  service.Repos
		lim    limiter.Limiter
		health func(context.Context) error
	)
	switch cfg.Store {
	case config.StorePostgres:
		ver, err := migrate.Up(ctx, cfg.DSN, logger)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		logger.Info("schema ready", zap.Int64("version", ver))

		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return fmt.Errorf("pgxpool.New: %w", err)
		}
		defer pool.Close()

		db := &postgres.DB{Pool: pool}
		repos = service.Repos{
			Files:       postgres.NewFileRepo(db),
			Occurrences: postgres.NewOccurrenceRepo(db),
			Timelines:   postgres.NewTimelineRepo(db),
			Patients:    postgres.NewPatientRepo(db),
			Users:       postgres.NewUserRepo(db),
			Tx:          db,
		}
		lim = limiter.NewPG(pool, cfg.Limiter.Policy())
		health = pool.Ping
	default:
		logger.Warn("using the in-memory store; records are lost on exit")
		st := memory.New()
		repos = service.Repos{
			Files:       st.Files(),
			Occurrences: st.Occurrences(),
			Timelines:   st.Timelines(),
			Patients:    st.Patients(),
			Users:       st.Users(),
			Tx:          st,
		}
		lim = limiter.NewMemory(cfg.Limiter.Policy())
	}

	blobs, err := openBlobs(ctx, cfg.Blob, logger)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	collector := metrics.New("carenotes")
	cascader := service.NewCascader(repos, blobs, collector, logger)
	svc := httpserver.Services{
		Auth:        service.NewAuthService(repos.Users, []byte(cfg.JWTKey), cfg.AccessTTL, lim),
		Users:       service.NewUserService(repos, cascader),
		Patients:    service.NewPatientService(repos, cascader),
		Timelines:   service.NewTimelineService(repos, cascader),
		Occurrences: service.NewOccurrenceService(repos, cascader),
	}
	api := httpserver.New(svc, blobs, logger, httpserver.Options{
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Metrics:        collector,
		Health:         health,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func openBlobs(ctx context.Context, c config.BlobConfig, logger *zap.Logger) (blob.Store, error) {
	switch c.Driver {
	case blob.DriverS3:
		s, err := blob.NewS3(ctx, c.S3)
		if err != nil {
			return nil, err
		}
		return blob.WithBreaker(s, c.Breaker, logger), nil
	default:
		fs, err := blob.NewFS(c.Root)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
}
