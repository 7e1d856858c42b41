package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "CONSENSUS_ANALYZER_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	llmEndpointEnv    = "LLM_ENDPOINT"
	databaseDSNEnv    = "DATABASE_DSN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	ingestPortEnv     = "INGEST_PORT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	LLM           LLMConfig          `yaml:"llm"`
	Retry         RetryConfig        `yaml:"retry"`
	Analysis      AnalysisConfig     `yaml:"analysis"`
	Aggregation   AggregationConfig  `yaml:"aggregation"`
	Ingest        IngestConfig       `yaml:"ingest"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig defines how to contact the OpenAI-compatible completion API.
type LLMConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"apiKey"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

// Timeout bounds a single completion attempt.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryConfig shapes the per-call retry policy.
type RetryConfig struct {
	MaxAttempts  int `yaml:"maxAttempts"`
	DelaySeconds int `yaml:"delaySeconds"`
}

// Delay is the fixed wait between attempts.
func (c RetryConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// AnalysisConfig bounds per-item cost and processing parallelism.
type AnalysisConfig struct {
	MaxTranscriptChars int `yaml:"maxTranscriptChars"`
	Workers            int `yaml:"workers"`
}

// AggregationConfig tunes the in-memory topic store and its sweeper.
type AggregationConfig struct {
	Shards     int           `yaml:"shards"`
	TTL        time.Duration `yaml:"ttl"`
	SweepEvery string        `yaml:"sweepEvery"`
}

// IngestConfig describes the HTTP ingest listener.
type IngestConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
}

// Address renders host:port for net.Listen.
func (c IngestConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// DatabaseConfig describes the final-report archive. An empty DSN disables it.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   int64  `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(llmEndpointEnv); v != "" {
		c.LLM.Endpoint = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err != nil {
			log.Printf("config: invalid %s %q: %v", telegramChatIDEnv, v, err)
		} else {
			c.Notifications.Telegram.ChatID = id
		}
	}

	if v := os.Getenv(ingestPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err != nil {
			log.Printf("config: invalid %s %q: %v", ingestPortEnv, v, err)
		} else {
			c.Ingest.Port = port
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Temperature > 0 {
		base.LLM.Temperature = override.LLM.Temperature
	}
	if override.LLM.TimeoutSeconds > 0 {
		base.LLM.TimeoutSeconds = override.LLM.TimeoutSeconds
	}

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.DelaySeconds > 0 {
		base.Retry.DelaySeconds = override.Retry.DelaySeconds
	}

	if override.Analysis.MaxTranscriptChars > 0 {
		base.Analysis.MaxTranscriptChars = override.Analysis.MaxTranscriptChars
	}
	if override.Analysis.Workers > 0 {
		base.Analysis.Workers = override.Analysis.Workers
	}

	if override.Aggregation.Shards > 0 {
		base.Aggregation.Shards = override.Aggregation.Shards
	}
	if override.Aggregation.TTL > 0 {
		base.Aggregation.TTL = override.Aggregation.TTL
	}
	if override.Aggregation.SweepEvery != "" {
		base.Aggregation.SweepEvery = override.Aggregation.SweepEvery
	}

	if override.Ingest.Host != "" {
		base.Ingest.Host = override.Ingest.Host
	}
	if override.Ingest.Port > 0 {
		base.Ingest.Port = override.Ingest.Port
	}
	if override.Ingest.MaxBodyBytes > 0 {
		base.Ingest.MaxBodyBytes = override.Ingest.MaxBodyBytes
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != 0 {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		LLM: LLMConfig{
			Endpoint:       "https://api.groq.com/openai/v1/chat/completions",
			Model:          "llama-3.3-70b-versatile",
			Temperature:    0.2,
			TimeoutSeconds: 60,
		},
		Retry:       RetryConfig{MaxAttempts: 3, DelaySeconds: 30},
		Analysis:    AnalysisConfig{MaxTranscriptChars: 8000, Workers: 4},
		Aggregation: AggregationConfig{Shards: 32, TTL: time.Hour, SweepEvery: "@every 5m"},
		Ingest:      IngestConfig{Host: "127.0.0.1", Port: 8085, MaxBodyBytes: 4 << 20},
		Database:    DatabaseConfig{Driver: "sqlite", DSN: ""},
	}
}
