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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spotbooker/internal/config"
	"spotbooker/internal/http-server/handlers/booking/cancelBooking"
	"spotbooker/internal/http-server/handlers/event/confirmBooking"
	"spotbooker/internal/http-server/handlers/event/createBooking"
	"spotbooker/internal/http-server/handlers/event/createEvent"
	"spotbooker/internal/http-server/handlers/event/getAllEvents"
	"spotbooker/internal/http-server/handlers/event/getEventInfo"
	"spotbooker/internal/http-server/handlers/event/updateCapacity"
	"spotbooker/internal/http-server/middleware/mwlogger"
	"spotbooker/internal/lib/logger/handlers/slogpretty"
	"spotbooker/internal/lib/logger/sl"
	"spotbooker/internal/notification"
	"spotbooker/internal/scheduler"
	"spotbooker/internal/storage/postgres"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting spot booker", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.InitDB(&cfg.Database)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	var notifier notification.Notifier = notification.Nop{}
	if cfg.Broker.URL != "" {
		notifier = notification.NewPublisher(cfg.Broker.URL)
		log.Info("notification publisher enabled")
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Post("/events", createEvent.New(log, storage))
	router.Get("/events", getAllEvents.New(log, storage))
	router.Get("/events/{id}", getEventInfo.New(log, storage))
	router.Patch("/events/{id}/capacity", updateCapacity.New(log, storage, cfg.Retry))
	router.Post("/events/{id}/book", createBooking.New(log, storage, notifier, cfg.Retry))
	router.Post("/events/{id}/confirm", confirmBooking.New(log, storage, notifier, cfg.Retry))
	router.Post("/bookings/{id}/cancel", cancelBooking.New(log, storage, notifier, cfg.Retry))

	log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()

	sweeper := scheduler.New(log, storage, notifier, cfg.Sweeper.Interval)
	go sweeper.Run(sweepCtx)

	go func() {
		if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", sl.Err(err))
			stop <- syscall.SIGTERM
		}
	}()

	sign := <-stop

	log.Info("application stopping", slog.String("signal", sign.String()))

	cancelSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}

	log.Info("application stopped")

	if err = storage.Close(); err != nil {
		log.Error("failed to close postgres connection", sl.Err(err))
	}

	log.Info("postgres connection closed")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	h := opts.NewPrettyHandler(os.Stdout)

	return slog.New(h)
}
