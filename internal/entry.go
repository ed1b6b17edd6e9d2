// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/modeler/internal/api"
	"github.com/starford/modeler/internal/diagram"
	"github.com/starford/modeler/internal/engine"
	"github.com/starford/modeler/internal/llm"
	"github.com/starford/modeler/internal/mcpserver"
	"github.com/starford/modeler/internal/prompts"
	"github.com/starford/modeler/internal/session"
	"github.com/starford/modeler/internal/sse"
	"github.com/starford/modeler/internal/storage"
)

// core holds the components shared by the HTTP and MCP front ends.
type core struct {
	cfg       *Config
	logger    *slog.Logger
	sessions  *session.DB
	pruner    *session.Pruner
	prompts   *prompts.Store
	promptsFS *storage.FS
	registry  *diagram.Registry
	predictor llm.Predictor
}

func newCore(opts []Option) (*core, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("session_path", cfg.Session.Path),
		slog.String("prompts_dir", cfg.Prompts.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	predictor := app.predictor
	if predictor == nil {
		p, err := newPredictor(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("init llm: %w", err)
		}
		predictor = p
	}

	c := &core{cfg: cfg, logger: logger, prompts: prompts.NewStore(), predictor: predictor}

	if cfg.Prompts.Dir != "" {
		if fs, err := storage.NewFS(cfg.Prompts.Dir); err != nil {
			logger.Info("prompt overrides disabled", slog.String("error", err.Error()))
		} else {
			c.promptsFS = fs
			if _, err := c.prompts.Load(fs, logger); err != nil {
				logger.Warn("initial prompt load failed", slog.String("error", err.Error()))
			}
			logger.Info("prompt overrides loaded", slog.Int("count", c.prompts.Len()))
		}
	}

	// Initialize SQLite session store.
	db, err := session.Open(cfg.Session.Path)
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}
	c.sessions = db

	c.pruner, err = session.NewPruner(db, cfg.Session.PruneSchedule, cfg.Session.TTL, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	c.registry = diagram.NewDefaultRegistry(diagram.Deps{
		Predictor: predictor,
		Prompts:   c.prompts,
		Logger:    logger,
	})
	return c, nil
}

func newPredictor(cfg LLMConfig) (llm.Predictor, error) {
	if cfg.Provider != ProviderOpenAI {
		return llm.Disabled{}, nil
	}
	p, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *core) close() {
	if err := c.sessions.Close(); err != nil {
		c.logger.Warn("session store close failed", slog.String("error", err.Error()))
	}
}

// background starts the pruner and, when enabled, the prompt watcher.
func (c *core) background(ctx context.Context, g *errgroup.Group, onReload func()) {
	g.Go(func() error {
		return c.pruner.Run(ctx)
	})
	if c.promptsFS == nil || !c.cfg.Prompts.Watch {
		return
	}
	g.Go(func() error {
		if err := prompts.Watch(ctx, c.prompts, c.promptsFS, c.promptsFS.Root(), c.logger, onReload); err != nil {
			c.logger.Warn("prompt watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})
}

// Run starts the HTTP server with the given options and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	c, err := newCore(opts)
	if err != nil {
		return err
	}
	defer c.close()
	cfg, logger := c.cfg, c.logger

	// SSE broker.
	broker := sse.NewBroker(15 * time.Second)
	defer broker.Close()

	eng := engine.New(c.registry, c.sessions, c.predictor,
		engine.WithLogger(logger),
		engine.WithPrompts(c.prompts),
		engine.WithReplyHook(func(id string, r engine.Reply) {
			broker.Publish(api.ReplyEvent(id, r))
		}))

	apiRouter := api.NewRouter(eng, c.registry, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.sessions.Get(req.Context(), "health"); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	c.background(gCtx, g, func() {
		broker.Publish(sse.Event{Type: "prompts.reloaded", Data: map[string]int{"count": c.prompts.Len()}})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so background workers stop with
// the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until the client disconnects or ctx
// is cancelled. Logs must not go to stdout, which carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	c, err := newCore(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer c.close()

	eng := engine.New(c.registry, c.sessions, c.predictor,
		engine.WithLogger(c.logger),
		engine.WithPrompts(c.prompts))
	srv := mcpserver.New(c.registry, eng)

	g, gCtx := errgroup.WithContext(ctx)
	c.background(gCtx, g, nil)
	g.Go(func() error {
		c.logger.Info("MCP server starting on stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}
