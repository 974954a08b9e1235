package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"zbchat/internal/config"
	httpHandler "zbchat/internal/delivery/http"
	"zbchat/internal/delivery/ws"
	"zbchat/internal/middleware"
	"zbchat/internal/provider"
	"zbchat/internal/report"
	"zbchat/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires everything together and owns the server lifecycle, so every
// defer (database close included) executes before the process exits.
func run() error {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(cfg.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("closing database")
		_ = db.Close()
	}()

	users := repository.NewUserRepository(db, log)
	sessions := repository.NewSessionRepository(db, cfg.SessionDuration(), log)
	messages := repository.NewMessageRepository(db, log)

	pdf, err := report.NewNewsPDF(cfg.PDFDir, cfg.PDFFontPath, log)
	if err != nil {
		return err
	}

	var ai provider.AIProvider
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(context.Background())
		if err != nil {
			return fmt.Errorf("chat model setup failed: %w", err)
		}
		ai, err = provider.NewEinoAI(context.Background(), chatModel, cfg.AI.SystemPrompt, log)
		if err != nil {
			return fmt.Errorf("ai chain setup failed: %w", err)
		}
	} else {
		log.Warn("ai model not configured, persona replies fall back to canned responses")
	}

	hub := ws.NewHub(ws.HubDeps{
		Users:    users,
		Sessions: sessions,
		Messages: messages,
		AI:       ai,
		Weather: provider.NewWeatherChain(provider.WeatherConfig{
			QWeatherURL:    cfg.QWeatherURL,
			QWeatherKey:    cfg.QWeatherKey,
			WttrURL:        cfg.WttrURL,
			OpenWeatherURL: cfg.OpenWeatherURL,
			OpenWeatherKey: cfg.OpenWeatherKey,
		}, log),
		Music: provider.NewKuwoMusic(cfg.MusicAPIBaseURL, cfg.MusicAPIKey, log),
		News:  provider.NewHotListNews(cfg.NewsURL, log),
		Movie: provider.NewMovieEmbed(cfg.MovieParseURL),
		PDF:   pdf,
		Log:   log,
	})

	handler := httpHandler.NewHandler(hub, users, messages, cfg, log)

	apiLimiter := middleware.NewIPRateLimiter(cfg.APILimit(), 20)
	wsLimiter := middleware.NewIPRateLimiter(cfg.WSLimit(), 10)
	strictLimiter := middleware.NewIPRateLimiter(cfg.StrictLimit(), 5)

	r := chi.NewRouter()
	r.Use(middleware.SecurityHeaders)

	r.With(middleware.RateLimitMiddleware(strictLimiter)).Post("/api/register", handler.HandleRegister)
	r.With(middleware.RateLimitMiddleware(strictLimiter)).Post("/api/login", handler.HandleLogin)
	r.With(middleware.RateLimitMiddleware(apiLimiter)).Get("/api/history", handler.HandleHistory)
	r.With(middleware.RateLimitMiddleware(apiLimiter)).Get("/config", handler.HandleConfig)
	r.With(middleware.RateLimitMiddleware(wsLimiter)).Get("/ws", handler.HandleWebSocket)

	// Generated hot-list PDFs
	r.Handle("/pdf_news/*", http.StripPrefix("/pdf_news/", http.FileServer(http.Dir(cfg.PDFDir))))

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("server started", "addr", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down")
	case err := <-errChan:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server exited gracefully")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
