package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/BrandonDHaskell/rollcall/internal/config"
	"github.com/BrandonDHaskell/rollcall/internal/db"
	"github.com/BrandonDHaskell/rollcall/internal/grpcapi"
	"github.com/BrandonDHaskell/rollcall/internal/httpapi"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/service"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store/postgres"
	sqlitestore "github.com/BrandonDHaskell/rollcall/internal/rollcall/store/sqlite"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
	"github.com/BrandonDHaskell/rollcall/internal/telemetry"
)

func main() {
	logger := log.New(os.Stdout, "rollcall-server ", log.LstdFlags|log.LUTC)
	if err := config.LoadEnv(); err != nil {
		logger.Printf(".env: %v", err)
	}
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup("rollcall-server", logger)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Printf("bad ROLLCALL_TIMEZONE %q, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	// Storage
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn, db.SeedDevOptions{}); err != nil {
			logger.Printf("seed dev: %v", err)
		}
	}
	writer := db.NewWorker(conn)
	defer writer.Close()

	punchStore := sqlitestore.NewPunchStore(conn, writer)
	rosterStore := sqlitestore.NewRosterStore(conn, writer)

	var runStore store.RunStore = sqlitestore.NewRunStore(conn, writer)
	if cfg.DatabaseURL != "" {
		pgRuns, pool, err := openPostgresRuns(ctx, cfg)
		if err != nil {
			logger.Fatalf("postgres run store: %v", err)
		}
		defer pool.Close()
		runStore = pgRuns
		logger.Printf("run history in postgres schema %s", cfg.DBSchema)
	}

	// Services
	registry := service.NewRosterRegistry(rosterStore)
	reconcileSvc := service.NewReconcileService(registry, punchStore, runStore, logger)
	punchSvc := service.NewPunchService(punchStore, loc)

	pruner := service.NewPunchPruner(punchStore, service.PrunerConfig{
		RetentionDays: cfg.PunchRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)

	probe := func(ctx context.Context) error { return pingDB(ctx, conn) }

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           logger,
		Addr:             cfg.HTTPAddr,
		ReconcileService: reconcileSvc,
		PunchService:     punchSvc,
		RosterRegistry:   registry,
		Defaults: httpapi.Defaults{
			Match:          types.MatchMode(cfg.Match),
			CaseFold:       cfg.CaseFold,
			CountableKinds: cfg.CountableKinds,
			Location:       loc,
		},
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		Probe:          probe,
		Wrap: func(h http.Handler) http.Handler {
			return otelhttp.NewHandler(h, "rollcall-http")
		},
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	// gRPC health
	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{
			Logger: logger,
			Addr:   cfg.GRPCAddr,
			Probe:  probe,
		})
		go func() {
			logger.Printf("grpc health on %s", cfg.GRPCAddr)
			if err := grpcSrv.Start(); err != nil {
				logger.Printf("grpc server error: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		grpcSrv.Shutdown(shutdownCtx)
	}
	pruner.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Printf("tracing shutdown: %v", err)
	}
}

func openPostgresRuns(ctx context.Context, cfg config.Config) (*postgres.RunStore, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	rs, err := postgres.NewRunStore(pool, cfg.DBSchema)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	initCtx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()
	if err := rs.EnsureSchema(initCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return rs, pool, nil
}

func pingDB(ctx context.Context, conn *sql.DB) error {
	if err := conn.PingContext(ctx); err != nil {
		return err
	}
	_, err := db.SchemaVersion(ctx, conn)
	return err
}
