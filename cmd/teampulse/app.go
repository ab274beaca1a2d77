package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/teampulse/internal/aggregate"
	"github.com/edgard/teampulse/internal/bot"
	"github.com/edgard/teampulse/internal/bot/tasks"
	"github.com/edgard/teampulse/internal/config"
	"github.com/edgard/teampulse/internal/database"
	"github.com/edgard/teampulse/internal/ingest"
	"github.com/edgard/teampulse/internal/llm"
	"github.com/edgard/teampulse/internal/logger"
	"github.com/edgard/teampulse/internal/notify"
	"github.com/edgard/teampulse/internal/sentiment"
	"github.com/edgard/teampulse/internal/slack"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *sqlx.DB
	store    database.Store
	pipeline *aggregate.Pipeline
	slack    *slack.Client
	ingest   *ingest.Service // nil without a Slack bot token
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Debug("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}
	store := database.NewStore(db, log)

	var client llm.Client
	if cfg.LLM.Enabled() {
		client, err = llm.New(ctx, cfg.LLM, log)
		if err != nil {
			database.CloseDB(db)
			return nil, fmt.Errorf("failed to initialize llm client: %w", err)
		}
		log.Info("Language model enabled", "provider", cfg.LLM.Provider, "scoring_model", cfg.LLM.ScoringModel)
	} else {
		log.Info("No language model configured, using keyword heuristic")
	}

	a := &app{cfg: cfg, log: log, db: db, store: store}

	if cfg.Slack.BotToken != "" {
		a.slack = slack.NewClient(cfg.Slack.BotToken, cfg.Slack.AppToken, log)
	}

	notifier, err := a.buildNotifier()
	if err != nil {
		database.CloseDB(db)
		return nil, err
	}

	emojis := sentiment.NewEmojiTable()
	scorer := sentiment.NewScorer(client, emojis, cfg.LLM.ScoringModel, cfg.LLM.Temperature, log)
	narrator := sentiment.NewNarrator(client, cfg.LLM.InsightsModel, log)

	loc := cfg.Pipeline.Location()
	team := aggregate.Team{ID: cfg.Team.ID, Name: cfg.Team.Name}
	a.pipeline = aggregate.NewPipeline(
		aggregate.NewDailyAggregator(store, loc, log),
		aggregate.NewWeeklyAggregator(store, narrator, notifier, team, log),
		loc,
		log,
	)

	if a.slack != nil {
		a.ingest = ingest.NewService(store, a.slack, scorer, emojis, ingest.Options{
			TeamID:          cfg.Team.ID,
			TeamName:        cfg.Team.Name,
			Concurrency:     cfg.Pipeline.ScoringConcurrency,
			HistoryWindow:   cfg.Pipeline.HistoryWindow,
			HistoryLimit:    cfg.Pipeline.HistoryLimit,
			ReactionRetries: cfg.Pipeline.ReactionRetries,
		}, log)
	}
	return a, nil
}

// buildNotifier returns nil when no alert destination is configured.
func (a *app) buildNotifier() (aggregate.Notifier, error) {
	var destinations []notify.Notifier
	if a.slack != nil && a.cfg.Slack.AlertChannel != "" {
		destinations = append(destinations, notify.NewSlackNotifier(a.slack, a.cfg.Slack.AlertChannel))
	}
	if a.cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramBot(a.cfg.Telegram.Token, a.log)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram bot: %w", err)
		}
		destinations = append(destinations, notify.NewTelegramNotifier(tg, a.cfg.Telegram.ChatID))
	}
	if len(destinations) == 0 {
		return nil, nil
	}
	return notify.NewMulti(a.log, destinations...), nil
}

// newBot wires the scheduler and, when an app-level token is set, the
// Socket Mode listener.
func (a *app) newBot() (*bot.Bot, error) {
	deps := tasks.TaskDeps{
		Logger:   a.log,
		Pipeline: a.pipeline,
		Store:    a.store,
	}
	if a.ingest != nil {
		deps.Poller = a.ingest
	}

	sched, err := bot.NewScheduler(a.log, &a.cfg.Scheduler, a.cfg.Pipeline.Location(), tasks.RegisterAllTasks(deps))
	if err != nil {
		return nil, err
	}

	var listener bot.Runner
	if a.ingest != nil && a.cfg.Slack.AppToken != "" {
		listener = slack.NewListener(a.slack, a.ingest, a.log)
	} else {
		a.log.Info("Slack app token not configured, real-time events disabled")
	}
	return bot.NewBot(a.log, sched, listener), nil
}

func (a *app) close() {
	database.CloseDB(a.db)
}
