package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/tempohq/tempo/internal/auth"
	"github.com/tempohq/tempo/internal/config"
	"github.com/tempohq/tempo/internal/domain"
	"github.com/tempohq/tempo/internal/evaluate"
	"github.com/tempohq/tempo/internal/notify"
	temposlack "github.com/tempohq/tempo/internal/notify/slack"
	"github.com/tempohq/tempo/internal/rules"
	"github.com/tempohq/tempo/internal/server"
	"github.com/tempohq/tempo/internal/store/memory"
	"github.com/tempohq/tempo/internal/store/postgres"
	redisstore "github.com/tempohq/tempo/internal/store/redis"
	"github.com/tempohq/tempo/internal/task"
	"github.com/tempohq/tempo/internal/timing"
	"github.com/tempohq/tempo/internal/trigger"
)

// dataStore is satisfied by both the memory and postgres stores.
type dataStore interface {
	Tasks() domain.TaskRepository
	Rules() domain.RuleRepository
	Close()
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("TEMPO_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("TEMPO_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Open the task/rule store.
	var store dataStore
	switch cfg.Store.Backend {
	case "postgres":
		if cfg.Store.MaxConns > math.MaxInt32 {
			return fmt.Errorf("db max_conns %d out of int32 range", cfg.Store.MaxConns)
		}
		pg, pgErr := postgres.New(ctx, cfg.Store.DSN(), int32(cfg.Store.MaxConns)) //nolint:gosec // bounds checked above
		if pgErr != nil {
			return pgErr
		}
		if migrateErr := pg.Migrate(ctx); migrateErr != nil {
			pg.Close()
			return migrateErr
		}
		store = pg
	default:
		store = memory.New()
	}
	defer store.Close()

	// Connect to Redis when configured; it backs the websocket fan-out.
	var pubsub *redisstore.PubSub
	if cfg.Redis.Addr != "" {
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()
	}

	// Trigger manager listens on task events and arms schedules.
	mgr := trigger.NewManager(store.Rules())

	// Task, timer and rule services.
	tasks := task.NewStore(store.Tasks(), mgr)
	timer := timing.NewTracker(tasks)
	ruleSvc := rules.NewStore(store.Rules(), mgr)

	// Notification sink: Slack when configured, logging fallback otherwise.
	var messenger notify.Messenger
	if cfg.Slack.BotToken != "" {
		messenger = temposlack.NewMessenger(slacklib.New(cfg.Slack.BotToken))
	}
	notifier := notify.New(messenger, cfg.Slack.Channel)

	// Rule evaluation closes the loop from triggers back to actions.
	evaluator := evaluate.New(evaluate.NewActionRunner(tasks, notifier))
	mgr.SetRuleEvaluator(evaluator.Evaluate)

	if initErr := mgr.Initialize(ctx); initErr != nil {
		return initErr
	}
	defer mgr.Cleanup()

	// Optional auth service for the single-user API.
	var authSvc *auth.Service
	if cfg.Auth.Password != "" {
		authSvc, err = auth.NewService(cfg.Auth.Password, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(cfg, server.Deps{
		Tasks:  tasks,
		Timer:  timer,
		Rules:  ruleSvc,
		Auth:   authSvc,
		PubSub: pubsub,
	})

	// Fan task events out to Redis so websocket clients see them.
	if pubsub != nil {
		registerEventFanout(mgr, srv)
	}

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.Store.Backend).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

// registerEventFanout republishes every task lifecycle event on Redis,
// both on the shared stream and on the per-task channel.
func registerEventFanout(mgr *trigger.Manager, srv *server.Server) {
	events := []string{
		domain.EventTaskCreated,
		domain.EventTaskUpdated,
		domain.EventTaskCompleted,
		domain.EventTaskDeleted,
		domain.EventTaskRestored,
	}
	for _, event := range events {
		mgr.On(event, func(ctx context.Context, payload any) {
			te, ok := payload.(trigger.TaskEvent)
			if !ok || te.Task == nil {
				return
			}
			msg, err := json.Marshal(map[string]any{
				"event": event,
				"task":  te.Task,
			})
			if err != nil {
				log.Warn().Err(err).Str("event", event).Msg("event fanout: marshal")
				return
			}
			hub := srv.Hub()
			if hub == nil {
				return
			}
			if pubErr := hub.Publish(ctx, redisstore.TaskEventsChannel(), msg); pubErr != nil {
				log.Warn().Err(pubErr).Str("event", event).Msg("event fanout: publish")
			}
			if pubErr := hub.Publish(ctx, redisstore.TaskChannel(te.Task.ID), msg); pubErr != nil {
				log.Warn().Err(pubErr).Str("event", event).Msg("event fanout: publish task channel")
			}
		})
	}
}
