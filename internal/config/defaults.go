package config

import "time"

const (
	DefaultLogLevel = "info"

	DefaultDBPath = "teampulse.db"

	DefaultLLMTemperature = 0.1
	DefaultLLMTimeout     = 30 * time.Second
	DefaultLLMMaxRetries  = 2
	DefaultLLMRetryDelay  = 2 * time.Second

	DefaultTeamID   = "default"
	DefaultTeamName = "Team"

	DefaultTimezone           = "UTC"
	DefaultScoringConcurrency = 4
	DefaultHistoryWindow      = 24 * time.Hour
	DefaultHistoryLimit       = 100
	DefaultReactionRetries    = 5
)

// Task names understood by the scheduler.
const (
	TaskMessageIngestion = "message_ingestion"
	TaskDailyAggregation = "daily_aggregation"
	TaskSQLMaintenance   = "sql_maintenance"
)

var defaultTasks = map[string]TaskConfig{
	TaskMessageIngestion: {Enabled: true, Schedule: "*/15 * * * *"},
	TaskDailyAggregation: {Enabled: true, Schedule: "0 23 * * *"},
	TaskSQLMaintenance:   {Enabled: true, Schedule: "0 4 * * 0"},
}

var defaultModels = map[string][2]string{
	"gemini":    {"gemini-2.0-flash", "gemini-2.0-flash"},
	"anthropic": {"claude-3-5-haiku-latest", "claude-sonnet-4-0"},
	"openai":    {"gpt-4o-mini", "gpt-4o"},
}
