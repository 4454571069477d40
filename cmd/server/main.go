package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stream-orchestrator/internal/orchestrator"
	"stream-orchestrator/internal/platform/config"
	"stream-orchestrator/internal/platform/logger"
	"stream-orchestrator/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	originsPath := config.GetEnv("ORIGINS_CONFIG_PATH", "")

	log := logger.New(logLevel, logFormat)
	met := metrics.New()

	orch := orchestrator.NewOrchestrator(log, met)

	if originsPath != "" {
		cfg, err := orchestrator.LoadOriginsConfig(originsPath)
		if err != nil {
			log.Error("failed to load origins config", "path", originsPath, "error", err)
		} else {
			orch.PrepareOriginMap(cfg.ToOriginRules())
			log.Info("origin map loaded", "path", originsPath, "rules", len(cfg.Origins))
		}
	}

	h := orchestrator.NewHandler(orch, log)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			met.SetApplications(orch.ApplicationCount())
			met.SetModules(orch.ModuleCount())
		}).ServeHTTP(w, r)
	})

	r.Route("/applications", func(r chi.Router) {
		r.Get("/", h.ListApplications)
		r.Post("/", h.CreateApplication)
		r.Get("/{name}", h.GetApplication)
		r.Delete("/{id}", h.DeleteApplication)
	})

	r.Route("/modules", func(r chi.Router) {
		r.Get("/", h.ListModules)
		r.Get("/health", h.ModuleHealth)
	})

	r.Post("/streams/{app}/{stream}/pull", h.RequestPullStream)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
