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

	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/mindengage-cat/internal/api/http"
	auth "github.com/mind-engage/mindengage-cat/internal/auth/middleware"
	"github.com/mind-engage/mindengage-cat/internal/config"
	"github.com/mind-engage/mindengage-cat/internal/db"
	"github.com/mind-engage/mindengage-cat/internal/events"
	"github.com/mind-engage/mindengage-cat/internal/exam"
	"github.com/mind-engage/mindengage-cat/internal/itembank"
	"github.com/mind-engage/mindengage-cat/internal/platform/logger"
	"github.com/mind-engage/mindengage-cat/internal/presets"
	"github.com/mind-engage/mindengage-cat/internal/storage"
	syncx "github.com/mind-engage/mindengage-cat/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings {
		log.Warn("config", "warning", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("gateway exited", "err", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info("shutdown complete")
	log.Sync()
}

// run wires the service and blocks until ctx is cancelled or the server
// fails. Every resource it opens is closed before it returns.
func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("db open (%s): %w", cfg.DBDriver, err)
	}
	defer dbh.Close()

	// --- Item bank ---
	sqlBank := itembank.NewSQLBank(dbh, cfg.DBDriver)
	if cfg.ItemsSeedFile != "" {
		if err := seedItems(ctx, sqlBank, cfg.ItemsSeedFile); err != nil {
			return fmt.Errorf("seed items from %s: %w", cfg.ItemsSeedFile, err)
		}
		log.Info("seeded item bank", "file", cfg.ItemsSeedFile)
	}
	bank := itembank.WithRetry(sqlBank, cfg.BankRetryAttempts, cfg.BankRetryBackoff)

	catalog := presets.Defaults()
	if cfg.PresetsFile != "" {
		if catalog, err = presets.Load(cfg.PresetsFile); err != nil {
			return fmt.Errorf("load presets from %s: %w", cfg.PresetsFile, err)
		}
	}

	// --- Event sinks ---
	blobs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return fmt.Errorf("blob store at %s: %w", cfg.BlobBasePath, err)
	}
	site, _ := os.Hostname()
	results := exam.NewResultRepo(dbh)
	reports := storage.NewReportArchive(blobs)
	sinks := exam.MultiSink{results, syncx.NewEventRepo(dbh, site), reports}
	if cfg.AMQPURL != "" {
		pub, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("amqp connect: %w", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	dispatcher := exam.NewDispatcher(sinks, cfg.EventWorkers, cfg.EventBuffer, log.With("component", "events"))

	engine := exam.NewEngine(bank,
		exam.WithEvents(dispatcher),
		exam.WithArchive(results),
		exam.WithLogger(log.With("component", "engine")),
		exam.WithRetention(cfg.SessionRetention),
	)

	// --- Auth ---
	authSvc, err := auth.NewAuthService(cfg.AuthHMACSecret, cfg.AuthUsers)
	if err != nil {
		return fmt.Errorf("auth users: %w", err)
	}

	handler := api.NewRouter(api.Deps{
		Config:   cfg,
		Log:      log,
		Auth:     authSvc,
		Engine:   engine,
		Presets:  catalog,
		Bank:     bank,
		Importer: sqlBank,
		Results:  results,
		Reports:  reports,
		Ready:    dbh.PingContext,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	// the dispatcher outlives the server so events emitted during shutdown
	// still reach the sinks
	dispCtx, stopDispatch := context.WithCancel(context.Background())
	var delivery errgroup.Group
	delivery.Go(func() error { return dispatcher.Run(dispCtx) })
	defer func() {
		stopDispatch()
		_ = delivery.Wait()
		if n := dispatcher.Dropped(); n > 0 {
			log.Warn("events dropped", "count", n)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error { return engine.RunJanitor(gctx, cfg.JanitorInterval) })
	return g.Wait()
}

func seedItems(ctx context.Context, bank *itembank.SQLBank, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	items, err := itembank.LoadJSON(f)
	if err != nil {
		return err
	}
	return bank.Import(ctx, items)
}
