// Package config loads and validates the TeamPulse configuration from
// defaults, an optional YAML file, an optional .env file and TEAMPULSE_*
// environment variables.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration marks any failure to load or validate configuration.
var ErrConfiguration = errors.New("configuration error")

// Config is the root configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Slack     SlackConfig     `mapstructure:"slack"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Team      TeamConfig      `mapstructure:"team"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LLMConfig selects the language model provider. An empty provider disables
// model calls and every message is scored by the keyword heuristic.
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"       validate:"omitempty,oneof=gemini anthropic openai"`
	APIKey        string        `mapstructure:"api_key"        validate:"required_with=Provider"`
	ScoringModel  string        `mapstructure:"scoring_model"  validate:"required_with=Provider"`
	InsightsModel string        `mapstructure:"insights_model" validate:"required_with=Provider"`
	Temperature   float32       `mapstructure:"temperature"    validate:"min=0,max=2"`
	Timeout       time.Duration `mapstructure:"timeout"        validate:"min=1s,max=10m"`
	MaxRetries    int           `mapstructure:"max_retries"    validate:"min=0,max=10"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"    validate:"min=0,max=5m"`
}

// Enabled reports whether a model provider is configured.
func (c LLMConfig) Enabled() bool {
	return c.Provider != ""
}

type SlackConfig struct {
	BotToken     string `mapstructure:"bot_token"`
	AppToken     string `mapstructure:"app_token"`
	AlertChannel string `mapstructure:"alert_channel"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id" validate:"required_with=Token"`
}

type TeamConfig struct {
	ID   string `mapstructure:"id"   validate:"required"`
	Name string `mapstructure:"name" validate:"required"`
}

type PipelineConfig struct {
	Timezone           string        `mapstructure:"timezone"            validate:"required"`
	ScoringConcurrency int           `mapstructure:"scoring_concurrency" validate:"min=1,max=64"`
	HistoryWindow      time.Duration `mapstructure:"history_window"      validate:"min=1m,max=720h"`
	HistoryLimit       int           `mapstructure:"history_limit"       validate:"min=1,max=1000"`
	ReactionRetries    int           `mapstructure:"reaction_retries"    validate:"min=1,max=20"`
}

// Location resolves Timezone. Load has already verified it.
func (c PipelineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
