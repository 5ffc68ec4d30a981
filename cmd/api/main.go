package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/qazdocs/docsign/internal/adapters/http"
	"github.com/qazdocs/docsign/internal/bootstrap"
	"github.com/qazdocs/docsign/internal/config"
	"github.com/qazdocs/docsign/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("docsign-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		app.CreateUC,
		app.SubmitUC,
		app.ListUC,
		app.AuthUC,
		app.Users,
		logger,
		httpadapter.WithMetricsHandler(app.Metrics.Handler()),
		httpadapter.WithSubmissionRecorder(app.Metrics),
		httpadapter.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		httpadapter.WithBackpressure(256, 500*time.Millisecond),
	)
	handler := app.Metrics.Middleware("api", router.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_error", "error", err)
	}
}
