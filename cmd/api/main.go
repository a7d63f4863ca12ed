// Package main implements the Sarathi engine API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/SarathiAI/sarathi-engine/engine/action"
	"github.com/SarathiAI/sarathi-engine/engine/earnings"
	"github.com/SarathiAI/sarathi-engine/engine/finance"
	"github.com/SarathiAI/sarathi-engine/engine/goal"
	"github.com/SarathiAI/sarathi-engine/engine/nlp"
	"github.com/SarathiAI/sarathi-engine/engine/router"
	"github.com/SarathiAI/sarathi-engine/engine/store"
	"github.com/SarathiAI/sarathi-engine/engine/vehicle"
	"github.com/SarathiAI/sarathi-engine/pkg/events"
	"github.com/SarathiAI/sarathi-engine/pkg/llm"
	"github.com/SarathiAI/sarathi-engine/pkg/maps"
	"github.com/SarathiAI/sarathi-engine/pkg/market"
	"github.com/SarathiAI/sarathi-engine/pkg/metrics"
	"github.com/SarathiAI/sarathi-engine/pkg/mid"
)

// Config holds all environment-based configuration, prefixed SARATHI_.
type Config struct {
	Port         string        `default:"8080"`
	DBPath       string        `envconfig:"DB_PATH" default:"sarathi.db"`
	GeminiAPIKey string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string        `envconfig:"GEMINI_MODEL"`
	LLMTimeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"10s"`
	MapsAPIKey   string        `envconfig:"MAPS_API_KEY"`
	MapsTimeout  time.Duration `envconfig:"MAPS_TIMEOUT" default:"5s"`
	RatesFeedURL string        `envconfig:"RATES_FEED_URL"`
	NATSURL      string        `envconfig:"NATS_URL"`
	CORSOrigin   string        `envconfig:"CORS_ORIGIN" default:"*"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var cfg Config
	if err := envconfig.Process("sarathi", &cfg); err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// --- Language model ---
	// The engine runs without it: classification falls back to general and
	// replies use the structured summaries.
	var classifier router.Classifier
	var narrator router.Narrator
	var extractor action.Extractor
	if cfg.GeminiAPIKey != "" {
		gen, err := llm.New(ctx, llm.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.LLMTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("llm client: %w", err)
		}
		classifier = nlp.NewClassifier(gen)
		narrator = nlp.NewNarrator(gen)
		extractor = nlp.NewExtractor(gen)
	} else {
		logger.Warn("no Gemini API key configured, running without language model")
	}

	// --- Zone oracle ---
	var oracle earnings.ZoneOracle
	if cfg.MapsAPIKey != "" {
		places, err := maps.New(maps.Config{APIKey: cfg.MapsAPIKey, Timeout: cfg.MapsTimeout}, logger)
		if err != nil {
			return fmt.Errorf("places client: %w", err)
		}
		oracle = places
	} else {
		logger.Warn("no Maps API key configured, earnings advice is history-only")
	}

	// --- Events ---
	var publisher action.Publisher
	if cfg.NATSURL != "" {
		pub, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("nats unavailable, domain events disabled", "err", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	// --- Engine ---
	registry := metrics.New()
	rates := market.NewProvider(market.Config{FeedURL: cfg.RatesFeedURL}, logger)
	goals := goal.New(db, logger)

	eng := router.New(router.Opts{
		Classifier: classifier,
		Narrator:   narrator,
		Dispatcher: action.NewDispatcher(db, goals, extractor, publisher, logger),
		Earnings:   earnings.NewAdvisor(db, oracle, logger),
		Vehicle:    vehicle.NewAdvisor(db, logger),
		Planner:    finance.NewSurplusPlanner(db, logger),
		Investor:   finance.NewInvestmentEngine(rates, logger),
		Logger:     logger,
		Registry:   registry,
	})

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/assist", handleAssist(eng, logger))
	mux.Handle("GET /metrics", registry.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("sarathi-engine"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleAssist(eng *router.Router, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req router.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.UserID <= 0 {
			http.Error(w, `{"error":"user_id is required"}`, http.StatusBadRequest)
			return
		}
		if req.Query == "" {
			http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
			return
		}

		resp := eng.Handle(r.Context(), req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
