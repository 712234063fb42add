package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nkoterov/breeze/db"
	"github.com/nkoterov/breeze/internal/agent"
	"github.com/nkoterov/breeze/internal/artifact"
	"github.com/nkoterov/breeze/internal/browser"
	"github.com/nkoterov/breeze/internal/config"
	"github.com/nkoterov/breeze/internal/llm"
	"github.com/nkoterov/breeze/internal/log"
	"github.com/nkoterov/breeze/internal/session"
	"github.com/nkoterov/breeze/internal/tools"
	"github.com/nkoterov/breeze/internal/web"
)

const (
	shutdownTimeout = 30 * time.Second
	reaperInterval  = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long:  `Starts the WebSocket gateway: runs database migrations, launches the headless browser, and serves clients until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: logLevel(), JSON: true})
	logger.Info("starting gateway", "version", Version, "addr", cfg.ListenAddr, "model", cfg.Model)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	logger.Info("database connected", "host", cfg.PostgresHost)

	engine, err := browser.NewEngine(cfg.BrowserHeadless, logger)
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	defer func() {
		if closeErr := engine.Close(); closeErr != nil {
			logger.Warn("browser shutdown error", "error", closeErr)
		}
	}()

	sessions := session.NewStore(pool, logger)
	artifacts := artifact.NewStore(pool, logger)
	model := llm.NewClient(cfg.ModelBaseURL, cfg.ModelAPIKey)
	weather := tools.NewWeather(cfg.GeocodeBaseURL, cfg.ForecastBaseURL, logger)
	capturer := tools.NewCapturer(engine, artifacts, logger)

	opts := agent.Options{
		DefaultModel: cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		HistoryLimit: cfg.MaxHistoryMessages,
		TTL:          time.Duration(cfg.SessionTTLHours) * time.Hour,
		NavTimeoutMs: cfg.NavTimeoutMs,
	}
	deps := agent.Deps{
		Store:      sessions,
		Artifacts:  artifacts,
		Planner:    agent.NewPlanner(model, cfg.Model, cfg.SystemPrompt, cfg.PlannerMaxTokens, logger),
		Relay:      agent.NewRelay(model, cfg.Model, cfg.ModelMaxTokens, logger),
		Summarizer: agent.NewSummarizer(model, cfg.Model, cfg.SystemPrompt, cfg.ModelMaxTokens, logger),
		Forecast:   weather,
		Capture:    capturer,
		Logger:     logger,
	}
	manager := agent.NewManager(func(sessionID string) *agent.Controller {
		return agent.NewController(sessionID, opts, deps)
	})

	go runReaper(ctx, sessions, logger)

	server := web.NewServer(cfg.ListenAddr, manager, artifacts, logger)

	errCh := make(chan error, 1)
	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr := <-errCh:
		return fmt.Errorf("server error: %w", serveErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	logger.Info("gateway stopped")
	return nil
}

// runReaper deletes expired sessions on a coarse interval.
func runReaper(ctx context.Context, sessions *session.Store, logger log.Logger) {
	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("session reaper failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired sessions removed", "count", n)
			}
		}
	}
}

// logLevel reads BREEZE_LOG_LEVEL, defaulting to info.
func logLevel() slog.Level {
	switch os.Getenv("BREEZE_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
