// Command waymarkd runs the waymark server: trace ingestion, the
// extraction/matching/persistence pipeline, and the observability stream.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/api"
	"github.com/waymarkhq/waymark/internal/config"
	"github.com/waymarkhq/waymark/internal/db"
	"github.com/waymarkhq/waymark/internal/db/migrations"
	"github.com/waymarkhq/waymark/internal/dbpool"
	"github.com/waymarkhq/waymark/internal/extract"
	"github.com/waymarkhq/waymark/internal/llm"
	"github.com/waymarkhq/waymark/internal/match"
	"github.com/waymarkhq/waymark/internal/persist"
	"github.com/waymarkhq/waymark/internal/pipeline"
	"github.com/waymarkhq/waymark/internal/service"
	"github.com/waymarkhq/waymark/internal/store"
	"github.com/waymarkhq/waymark/internal/ws"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("waymarkd exited with error")
	}
}

func run(log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	log.SetLevel(level)
	log.WithFields(logrus.Fields{"version": config.Version, "addr": cfg.Addr()}).Info("starting waymarkd")

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log}
	resources := store.NewResourceStore(base)
	relations := store.NewRelationStore(base)
	interactions := store.NewInteractionStore(base)
	references := store.NewReferenceStore(base)
	landmarks := store.NewLandmarkStore(base)

	caller := llm.NewOpenAIClient(cfg.ModelBaseURL, cfg.ModelAPIKey.Value(), cfg.ModelName, log)
	extractor := extract.NewExtractor(caller, log)
	matcher := match.NewLLMMatcher(caller, log)
	persister := persist.NewPersister(resources, relations, interactions, references, log)

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	runner := pipeline.NewRunner(
		resources,
		landmarks,
		interactions,
		extractor,
		matcher,
		persister,
		ws.NewAnalysisSink(hub),
		log,
	)

	lensSvc := service.NewLensService(resources, relations, interactions, runner, log)
	traceSvc := service.NewTraceService(resources, relations, interactions, extractor, lensSvc, log)
	journalSvc := service.NewJournalService(resources, relations, interactions, log)
	landmarkSvc := service.NewLandmarkService(landmarks, log)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:         log,
		Pool:        pool,
		Hub:         hub,
		Resources:   resources,
		Relations:   relations,
		References:  references,
		Timeline:    interactions,
		Traces:      traceSvc,
		Journals:    journalSvc,
		Lenses:      lensSvc,
		Landmarks:   landmarkSvc,
		UserLookup:  &base,
		CORSOrigins: cfg.CORSOrigins,
		Version:     config.Version,
		ModelName:   cfg.ModelName,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.WithField("addr", cfg.Addr()).Info("server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}

	hub.Shutdown()
	log.Info("waymarkd stopped")

	return nil
}
