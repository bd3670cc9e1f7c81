package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formfields/internal/data"
	"formfields/internal/form"
	"formfields/internal/jsonlog"
	"formfields/internal/rules"
)

var (
	buildTime string
	version   string
)

type application struct {
	config      config
	logger      *jsonlog.Logger
	registry    *rules.Registry
	inputs      form.Inputs
	statistics  *data.StatisticsService
	rateLimiter *rateLimiter
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := jsonlog.New(os.Stdout, jsonlog.ParseLevel(cfg.LogLevel), cfg.Env)

	inputs, err := loadInputs(cfg.InputsFile)
	if err != nil {
		logger.PrintFatal(err, map[string]string{"inputs_file": cfg.InputsFile})
	}

	statistics, err := openStatistics(cfg, logger)
	if err != nil {
		logger.PrintFatal(err, map[string]string{"component": "statistics"})
	}
	defer statistics.Close()

	app := &application{
		config:      cfg,
		logger:      logger,
		registry:    rules.Default(),
		inputs:      inputs,
		statistics:  statistics,
		rateLimiter: initializeRateLimiter(cfg, logger),
	}

	err = app.serve()
	if err != nil {
		logger.PrintFatal(err, map[string]string{"addr": fmt.Sprintf(":%d", cfg.Port)})
	}
}

func loadInputs(path string) (form.Inputs, error) {
	if path == "" {
		return form.DefaultInputs(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inputs file: %w", err)
	}
	defer f.Close()

	return form.LoadInputs(f)
}

// openStatistics keeps failure statistics in memory unless a DSN is configured,
// in which case PostgreSQL is used behind a circuit breaker.
func openStatistics(cfg config, logger *jsonlog.Logger) (*data.StatisticsService, error) {
	if cfg.DB.DSN == "" {
		logger.Info("failure statistics kept in memory")
		return data.NewStatisticsService(data.NewMemoryFailureRepository(nil)), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := data.OpenPostgreSQL(ctx, cfg.DB.DSN, int32(cfg.DB.MaxConns))
	if err != nil {
		return nil, err
	}

	repo := data.NewPostgreSQLFailureRepository(pool, cfg.DB.Timeout)
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, err
	}

	logger.Info("database connection pool established", "max_conns", cfg.DB.MaxConns)
	return data.NewStatisticsService(data.NewCircuitBreakerRepository(repo, logger)), nil
}

func (app *application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     log.New(app.logger, "", 0),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutdown initiated",
			"signal", s.String(),
			"timeout", "5s",
			"addr", srv.Addr)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		app.rateLimiter.shutdown()
		app.rateLimiter.waitForShutdown()

		app.logger.Info("background tasks completed",
			"shutdown_timeout", "5s")

		shutdownError <- err
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "version", version, "buildTime", buildTime)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	app.logger.Info("server stopped gracefully",
		"addr", srv.Addr,
		"env", app.config.Env)

	return nil
}
