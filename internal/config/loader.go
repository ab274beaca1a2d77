package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. TEAMPULSE_LLM_API_KEY.
const EnvPrefix = "TEAMPULSE"

// Load reads configuration in order of increasing precedence:
//  1. built-in defaults
//  2. the YAML file at path, or ./config.yaml when path is empty
//  3. TEAMPULSE_* environment variables, including any from ./.env
//
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env file: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	applyModelDefaults(&cfg.LLM)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"config_file", v.ConfigFileUsed(),
		"llm_provider", cfg.LLM.Provider,
		"team_id", cfg.Team.ID,
		"timezone", cfg.Pipeline.Timezone)

	return &cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q: %v", ErrConfiguration, c.Pipeline.Timezone, err)
	}
	if c.Slack.AppToken != "" && c.Slack.BotToken == "" {
		return fmt.Errorf("%w: slack.app_token requires slack.bot_token", ErrConfiguration)
	}
	return nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("Configuration file not found, using defaults", "path", path)
			return nil
		}
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.scoring_model", "")
	v.SetDefault("llm.insights_model", "")
	v.SetDefault("llm.temperature", DefaultLLMTemperature)
	v.SetDefault("llm.timeout", DefaultLLMTimeout)
	v.SetDefault("llm.max_retries", DefaultLLMMaxRetries)
	v.SetDefault("llm.retry_delay", DefaultLLMRetryDelay)

	v.SetDefault("slack.bot_token", "")
	v.SetDefault("slack.app_token", "")
	v.SetDefault("slack.alert_channel", "")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("team.id", DefaultTeamID)
	v.SetDefault("team.name", DefaultTeamName)

	v.SetDefault("pipeline.timezone", DefaultTimezone)
	v.SetDefault("pipeline.scoring_concurrency", DefaultScoringConcurrency)
	v.SetDefault("pipeline.history_window", DefaultHistoryWindow)
	v.SetDefault("pipeline.history_limit", DefaultHistoryLimit)
	v.SetDefault("pipeline.reaction_retries", DefaultReactionRetries)

	for name, task := range defaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}
}

func applyModelDefaults(c *LLMConfig) {
	models, ok := defaultModels[c.Provider]
	if !ok {
		return
	}
	if c.ScoringModel == "" {
		c.ScoringModel = models[0]
	}
	if c.InsightsModel == "" {
		c.InsightsModel = models[1]
	}
}
