package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kairosvoice/attune/pkg/attune"
	"github.com/kairosvoice/attune/pkg/classify"
	"github.com/kairosvoice/attune/pkg/configutil"
	"github.com/kairosvoice/attune/pkg/emotion"
	"github.com/kairosvoice/attune/pkg/feed"
	"github.com/kairosvoice/attune/pkg/logging"
	"github.com/kairosvoice/attune/pkg/metrics"
	"github.com/kairosvoice/attune/pkg/providers/gemini"
	"github.com/kairosvoice/attune/pkg/providers/mock"
	"github.com/kairosvoice/attune/pkg/runner"
	"github.com/kairosvoice/attune/pkg/store"
)

type geminiSettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type mockSettings struct {
	Responses []string `mapstructure:"responses"`
}

func buildClassifier(cfg attune.Config) (classify.Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Classifier.Provider)) {
	case "gemini":
		var settings geminiSettings
		if err := configutil.DecodeSettings(cfg.Classifier.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "classifier.settings.api_key"); err != nil {
			return nil, err
		}
		classifier := gemini.NewClassifier(settings.APIKey, settings.Model)
		if settings.BaseURL != "" {
			classifier.BaseURL = settings.BaseURL
		}
		return classifier, nil
	case "mock":
		var settings mockSettings
		if err := configutil.DecodeSettings(cfg.Classifier.Settings, &settings); err != nil {
			return nil, err
		}
		return mock.NewClassifier(mock.Config{Responses: settings.Responses}), nil
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", cfg.Classifier.Provider)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type drainFunc func() error

func (f drainFunc) Drain() error { return f() }

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	personaID := flag.String("persona", "coach", "persona for adapted instructions")
	basePrompt := flag.String("base", "You are a helpful voice assistant.", "base instructions")
	flag.Parse()

	cfg, err := attune.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logging.InitLogger(parseLevel(cfg.LogLevel))
	slog.SetDefault(log)

	classifier, err := buildClassifier(cfg)
	if err != nil {
		log.Error("classifier_build_failed", "error", err)
		os.Exit(1)
	}

	var sink attune.EventSink
	var db *sql.DB
	if cfg.Store.Enabled {
		db, err = sql.Open("sqlite", cfg.Store.Path)
		if err != nil {
			log.Error("store_open_failed", "path", cfg.Store.Path, "error", err)
			os.Exit(1)
		}
		eventStore, err := store.NewEventStore(db)
		if err != nil {
			log.Error("store_init_failed", "error", err)
			os.Exit(1)
		}
		sink = eventStore
		log.Info("event_store_ready", "path", cfg.Store.Path)
	}

	var hub *feed.Hub
	var feedServer *http.Server
	if cfg.Feed.Enabled {
		hub = feed.NewHub()
		mux := http.NewServeMux()
		mux.Handle(cfg.Feed.Path, hub)
		feedServer = &http.Server{Addr: cfg.Feed.Addr, Handler: mux}
		go func() {
			log.Info("feed_listening", "addr", cfg.Feed.Addr, "path", cfg.Feed.Path)
			if err := feedServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("feed_server_failed", "error", err)
			}
		}()
	}

	obs := metrics.NewAsyncObserver(metrics.NewJSONLObserver(os.Stderr), 256)

	engine, err := attune.NewEngine(attune.EngineOptions{
		Config:     cfg,
		Classifier: classifier,
		Sink:       sink,
		Hub:        hub,
		Observer:   obs,
		Logger:     logging.NewComponentLogger(log, "engine"),
	})
	if err != nil {
		log.Error("engine_build_failed", "error", err)
		os.Exit(1)
	}

	drain := drainFunc(func() error {
		if feedServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = feedServer.Shutdown(shutdownCtx)
		}
		if hub != nil {
			hub.Close()
		}
		obs.Close()
		if db != nil {
			return db.Close()
		}
		return nil
	})

	lifecycle := runner.NewLifecycleRunner(drain, runner.Hooks{
		OnStart: func() {
			log.Info("attuned_started",
				"environment", cfg.Environment,
				"provider", cfg.Classifier.Provider,
				"persona", *personaID,
			)
		},
		OnStop: func() {
			stats := engine.Stats()
			log.Info("attuned_stopped",
				"admitted", stats.Detector.Admitted,
				"denied", stats.Detector.Denied,
				"conversations", stats.Conversations,
			)
		},
	}, 10*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conversationID := uuid.NewString()
	go readUtterances(ctx, engine, conversationID, *personaID, *basePrompt, stop)

	if err := lifecycle.Run(ctx); err != nil {
		log.Error("shutdown_error", "error", err)
		os.Exit(1)
	}
}

// readUtterances treats each stdin line as one user utterance and prints
// the detection result plus the adapted instructions.
func readUtterances(ctx context.Context, engine *attune.Engine, conversationID, personaID, basePrompt string, stop func()) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		text := scanner.Text()
		turn := engine.ProcessUtterance(ctx, conversationID, personaID, basePrompt, text, false)
		if turn.Skipped {
			fmt.Println("(skipped: utterance too short)")
			continue
		}
		fmt.Printf("emotion=%s confidence=%.2f outcome=%s dominant=%s escalate=%v\n",
			turn.Result.Label,
			turn.Result.Confidence,
			turn.Result.Outcome,
			turn.Dominant,
			turn.Escalate,
		)
		if turn.Result.Label != emotion.Neutral && turn.Instructions != basePrompt {
			fmt.Println("--- adapted instructions ---")
			fmt.Println(turn.Instructions)
			fmt.Println("----------------------------")
		}
	}
	engine.EndConversation(conversationID)
	stop()
}
