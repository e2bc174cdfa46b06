package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mtlprog/tokenfolio/internal/api"
	"github.com/mtlprog/tokenfolio/internal/config"
	"github.com/mtlprog/tokenfolio/internal/database"
	"github.com/mtlprog/tokenfolio/internal/export"
	"github.com/mtlprog/tokenfolio/internal/external"
	"github.com/mtlprog/tokenfolio/internal/logging"
	"github.com/mtlprog/tokenfolio/internal/metrics"
	"github.com/mtlprog/tokenfolio/internal/snapshot"
	"github.com/mtlprog/tokenfolio/internal/tracker"
	"github.com/mtlprog/tokenfolio/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		cfg      config.Config
		syncLogs = func() {}
	)

	app := &cli.App{
		Name:  "tokenfolio",
		Usage: "token price registry and per-user portfolio tracker",
		Before: func(_ *cli.Context) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			syncLogs, err = logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return err
		},
		After: func(_ *cli.Context) error {
			syncLogs()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API with background quote and snapshot workers",
				Action: func(c *cli.Context) error {
					return serve(c.Context, cfg)
				},
			},
			{
				Name:  "export",
				Usage: "restore the latest snapshot and write it to the configured spreadsheets",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "xlsx",
						Usage: "write the workbook to `PATH` (overrides EXPORT_XLSX_PATH)",
					},
				},
				Action: func(c *cli.Context) error {
					if p := c.String("xlsx"); p != "" {
						cfg.ExportXLSXPath = p
					}
					return runExport(c.Context, cfg)
				},
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("tokenfolio failed", "error", err)
		syncLogs()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	tr := tracker.NewService(nil)

	repo, closeRepo, err := openSnapshotRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	var snapshots *snapshot.Service
	if repo != nil {
		snapshots = snapshot.NewService(tr, repo)
		if err := snapshots.Restore(ctx); err != nil {
			return fmt.Errorf("restoring tracker state: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg, tr)

	exporter, err := buildExporter(ctx, cfg, tr)
	if err != nil {
		return err
	}

	if cfg.AdminAPIKey == "" && snapshots != nil {
		slog.Warn("ADMIN_API_KEY not set, snapshot endpoint is unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, api.ServerDeps{
		Tracker:     tr,
		Snapshots:   snapshots,
		Metrics:     collector,
		Gatherer:    reg,
		AdminAPIKey: cfg.AdminAPIKey,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		return nil
	})

	if len(cfg.QuoteSymbols) > 0 && cfg.QuoteWorkerInterval > 0 {
		var limiter *rate.Limiter
		if cfg.CoinGeckoRate > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.CoinGeckoRate), 1)
		}
		coingecko := external.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax, limiter)
		feed := external.NewService(coingecko, tr, cfg.QuoteSymbols, cfg.QuoteCurrency)
		quoteWorker := worker.NewQuoteWorker(feed, cfg.QuoteWorkerInterval)
		g.Go(func() error {
			quoteWorker.Run(gctx)
			return nil
		})
	}

	if snapshots != nil && cfg.SnapshotInterval > 0 {
		var hook worker.AfterSaveHook
		if exporter != nil {
			hook = exporter
		}
		snapshotWorker := worker.NewSnapshotWorker(snapshots, cfg.SnapshotInterval, hook)
		g.Go(func() error {
			snapshotWorker.Run(gctx)
			return nil
		})
	}

	err = g.Wait()

	if snapshots != nil && cfg.SnapshotInterval <= 0 {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, saveErr := snapshots.Save(saveCtx); saveErr != nil {
			slog.Error("failed to save final snapshot", "error", saveErr)
		}
	}

	slog.Info("shutdown complete")
	return err
}

func runExport(ctx context.Context, cfg config.Config) error {
	tr := tracker.NewService(nil)

	repo, closeRepo, err := openSnapshotRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()
	if repo == nil {
		return errors.New("export needs a snapshot store, SNAPSHOT_STORE is none")
	}

	if err := snapshot.NewService(tr, repo).Restore(ctx); err != nil {
		return fmt.Errorf("restoring tracker state: %w", err)
	}

	exporter, err := buildExporter(ctx, cfg, tr)
	if err != nil {
		return err
	}
	if exporter == nil {
		return errors.New("no export destination configured, set EXPORT_XLSX_PATH or GOOGLE_SHEET_ID")
	}

	if err := exporter.Export(ctx); err != nil {
		return err
	}
	slog.Info("export completed")
	return nil
}

// openSnapshotRepo returns a nil repository when snapshots are disabled.
func openSnapshotRepo(ctx context.Context, cfg config.Config) (snapshot.Repository, func(), error) {
	switch cfg.SnapshotStore {
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return snapshot.NewPgRepository(pool), pool.Close, nil

	case config.StoreWAL:
		store, err := snapshot.NewWALStore(cfg.WALDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("failed to close snapshot WAL", "error", err)
			}
		}, nil

	default:
		slog.Warn("snapshot store disabled, state will not survive restarts")
		return nil, func() {}, nil
	}
}

// buildExporter returns nil when no export destination is configured.
func buildExporter(ctx context.Context, cfg config.Config, tr *tracker.Service) (*export.Service, error) {
	var writers export.MultiWriter

	if cfg.ExportXLSXPath != "" {
		writers = append(writers, export.NewXLSXWriter(cfg.ExportXLSXPath))
	}
	if cfg.GoogleSheetID != "" && cfg.GoogleCredentialsJSON != "" {
		sw, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, err
		}
		writers = append(writers, sw)
	}

	if len(writers) == 0 {
		return nil, nil
	}
	return export.NewService(tr, writers), nil
}
