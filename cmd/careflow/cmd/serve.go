package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/a2aclient"
	"github.com/ChristChad-mv/careflow-sub000/internal/armor"
	"github.com/ChristChad-mv/careflow-sub000/internal/classify"
	"github.com/ChristChad-mv/careflow-sub000/internal/config"
	"github.com/ChristChad-mv/careflow-sub000/internal/executor"
	"github.com/ChristChad-mv/careflow-sub000/internal/history"
	"github.com/ChristChad-mv/careflow-sub000/internal/orchestrator"
	"github.com/ChristChad-mv/careflow-sub000/internal/provider"
	"github.com/ChristChad-mv/careflow-sub000/internal/schedule"
	"github.com/ChristChad-mv/careflow-sub000/internal/server"
	"github.com/ChristChad-mv/careflow-sub000/internal/session"
	"github.com/ChristChad-mv/careflow-sub000/internal/store"
	"github.com/ChristChad-mv/careflow-sub000/internal/store/firestore"
	"github.com/ChristChad-mv/careflow-sub000/internal/store/memory"
	"github.com/ChristChad-mv/careflow-sub000/internal/store/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve {pulse|caller}",
	Short: "Run one of the two agent services",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		switch args[0] {
		case "pulse":
			return servePulse(cmd.Context(), cfg, logger)
		case "caller":
			return serveCaller(cmd.Context(), cfg, logger)
		default:
			return fmt.Errorf("unknown service %q, expected pulse or caller", args[0])
		}
	},
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		logger.Warn("using in-memory store, data will not survive a restart")
		return memory.New(), func() {}, nil
	case "", "sqlite":
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite at %s: %w", cfg.DBPath, err)
		}
		return sqlite.NewStore(db), func() { _ = db.Close() }, nil
	case "firestore":
		fs, err := firestore.NewStore(ctx, cfg.GCPProject)
		if err != nil {
			return nil, nil, fmt.Errorf("open firestore: %w", err)
		}
		return fs, func() { _ = fs.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

func newGenerator(ctx context.Context, cfg config.Config, logger *slog.Logger) (provider.Generator, error) {
	client, err := provider.NewClient(ctx, provider.Config{
		Backend:         cfg.LLMBackend,
		Project:         cfg.GCPProject,
		Location:        cfg.GCPLocation,
		Model:           cfg.LLMModel,
		APIKey:          cfg.LLMAPIKey,
		Temperature:     float32(cfg.LLMTemp),
		MaxOutputTokens: int32(cfg.LLMMaxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("init generation client: %w", err)
	}
	logger.Info("generation client ready", "backend", cfg.LLMBackend, "model", cfg.LLMModel)
	return client, nil
}

func newScanner(cfg config.Config, logger *slog.Logger) armor.Scanner {
	if !cfg.ArmorEnabled || cfg.ArmorURL == "" {
		logger.Warn("armor scanning disabled, prompts and responses pass unscreened")
		return armor.Disabled{}
	}
	return armor.NewHTTPScanner(cfg.ArmorURL)
}

func loadToolLatency(path string) (map[string]float64, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool latency file: %w", err)
	}
	var out map[string]float64
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse tool latency file: %w", err)
	}
	return out, nil
}

func loadCard(cfg config.Config, defaults a2a.AgentCard) (a2a.AgentCard, error) {
	if cfg.CardPath == "" {
		return defaults, nil
	}
	return a2a.LoadAgentCard(cfg.CardPath, defaults)
}

const sweepInterval = 10 * time.Minute

// sweepOnce drops conversation contexts and closed sessions older than
// ttl. Split from runSweeps so the eviction pass is testable without a
// timer.
func sweepOnce(ttl time.Duration, hist *history.Cache, sessions *session.Registry) (int, int) {
	contexts := hist.Sweep(ttl)
	closed := 0
	if sessions != nil {
		closed = sessions.Evict(ttl)
	}
	return contexts, closed
}

func runSweeps(ctx context.Context, ttl time.Duration, hist *history.Cache, sessions *session.Registry, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			contexts, closed := sweepOnce(ttl, hist, sessions)
			if contexts > 0 || closed > 0 {
				logger.Debug("swept idle state", "contexts", contexts, "sessions", closed)
			}
		}
	}
}

func serveCaller(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	gen, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	exec := executor.NewCallerExecutor(gen, newScanner(cfg, logger), logger)
	if latency, err := loadToolLatency(cfg.ToolLatencyPath); err != nil {
		return err
	} else if latency != nil {
		exec.ToolLatency = latency
	}

	sessions := session.NewRegistry()
	exec.Observer = sessions
	go runSweeps(ctx, cfg.SessionTTL, exec.History, sessions, logger)

	card, err := loadCard(cfg, a2a.AgentCard{
		Name:         "careflow-caller",
		Description:  "Voice check-in agent for scheduled patient calls",
		Version:      "0.1.0",
		Capabilities: a2a.Capabilities{Streaming: true},
		Skills: []a2a.Skill{{
			ID:   "patient-checkin",
			Name: "Patient check-in call",
			Tags: []string{"clinical", "voice"},
		}},
	})
	if err != nil {
		return err
	}

	srv := &server.Server{
		Exec:      exec,
		Card:      card,
		Sessions:  sessions,
		Logger:    logger,
		StartedAt: time.Now(),
	}
	logger.Info("caller service listening", "addr", cfg.HTTPAddr)
	return http.ListenAndServe(cfg.HTTPAddr, srv.Handler())
}

func servePulse(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	gen, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	client := a2aclient.New()
	client.Logger = logger

	runner := &orchestrator.Runner{
		Remote:      client,
		Classifier:  &classify.LLM{Generator: gen},
		Store:       st,
		Planner:     &schedule.Planner{Store: st},
		CallerURL:   cfg.CallerURL,
		BatchSize:   cfg.BatchSize,
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
	}
	runner.Retry = &schedule.Retry{
		Dispatcher: &schedule.TimerDispatcher{
			Trigger: func(ctx context.Context, hour int, groupID string) {
				if _, err := runner.RunRound(ctx, hour, groupID, nil); err != nil {
					logger.Error("retry round failed", "hour", hour, "error", err)
				}
			},
		},
		Delay:  cfg.RetryDelay,
		Logger: logger,
	}

	exec := executor.NewPulseExecutor(runner, client, cfg.CallerURL, logger)

	card, err := loadCard(cfg, a2a.AgentCard{
		Name:         "careflow-pulse",
		Description:  "Scheduling orchestrator for patient monitoring rounds",
		Version:      "0.1.0",
		Capabilities: a2a.Capabilities{Streaming: true},
		Skills: []a2a.Skill{{
			ID:   "round-trigger",
			Name: "Run a scheduled check-in round",
			Tags: []string{"clinical", "scheduling"},
		}},
	})
	if err != nil {
		return err
	}

	srv := &server.Server{
		Exec:      exec,
		Card:      card,
		Logger:    logger,
		StartedAt: time.Now(),
	}
	logger.Info("pulse service listening", "addr", cfg.HTTPAddr, "caller", cfg.CallerURL)
	return http.ListenAndServe(cfg.HTTPAddr, srv.Handler())
}
