// Package config provides application configuration management using Viper.
// It supports loading from environment variables, config files, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported generation providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	LLM       LLMConfig
	Interview InterviewConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	// DrainDelay keeps serving after /ready starts failing so load
	// balancers can notice before the listener closes.
	DrainDelay      time.Duration
	MaxBodyBytes    int64
	AllowedOrigins  []string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Name                  string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	AutoMigrate           bool
}

// ConnectionString returns a PostgreSQL connection string.
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LLMConfig selects and configures the text-generation provider.
type LLMConfig struct {
	// Provider is one of openai, anthropic, gemini.
	Provider string
	Timeout  time.Duration

	OpenAI    ProviderConfig
	Anthropic ProviderConfig
	Gemini    ProviderConfig

	// Per call-kind generation settings.
	TurnMaxTokens        int
	TurnTemperature      float64
	InsightMaxTokens     int
	InsightTemperature   float64
	QuestionsMaxTokens   int
	QuestionsTemperature float64

	BreakerFailures int
	BreakerTimeout  time.Duration

	// Generation budget across all callers. Zero disables a cap.
	PerMinute     int
	PerHour       int
	PerDay        int
	MaxConcurrent int
}

// ProviderConfig holds the credentials and model of a single provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Active returns the configuration of the selected provider.
func (l *LLMConfig) Active() ProviderConfig {
	switch l.Provider {
	case ProviderAnthropic:
		return l.Anthropic
	case ProviderGemini:
		return l.Gemini
	default:
		return l.OpenAI
	}
}

// InterviewConfig tunes the interviewer behaviour.
type InterviewConfig struct {
	InterviewerName string
	QuestionCount   int
	PrefixLength    int
}

// RedisConfig holds the question-set cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis address is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// NATSConfig holds event publishing settings. An empty URL disables publishing.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// Enabled reports whether a NATS URL is configured.
func (n *NATSConfig) Enabled() bool {
	return n.URL != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads configuration from environment variables and config files.
// Environment variables take precedence over config file values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pitchcheck")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configNotFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFoundErr) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := fromViper(v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			Environment:     v.GetString("server.env"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			DrainDelay:      v.GetDuration("server.drain_delay"),
			MaxBodyBytes:    v.GetInt64("server.max_body_bytes"),
			AllowedOrigins:  splitList(v.GetString("server.allowed_origins")),
		},
		Database: DatabaseConfig{
			Host:                  v.GetString("database.host"),
			Port:                  v.GetInt("database.port"),
			User:                  v.GetString("database.user"),
			Password:              v.GetString("database.password"),
			Name:                  v.GetString("database.name"),
			SSLMode:               v.GetString("database.sslmode"),
			MaxConnections:        v.GetInt("database.max_connections"),
			MaxIdleConnections:    v.GetInt("database.max_idle_connections"),
			ConnectionMaxLifetime: v.GetDuration("database.connection_max_lifetime"),
			AutoMigrate:           v.GetBool("database.auto_migrate"),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(v.GetString("llm.provider")),
			Timeout:  v.GetDuration("llm.timeout"),
			OpenAI: ProviderConfig{
				APIKey:  v.GetString("llm.openai.api_key"),
				Model:   v.GetString("llm.openai.model"),
				BaseURL: v.GetString("llm.openai.base_url"),
			},
			Anthropic: ProviderConfig{
				APIKey:  v.GetString("llm.anthropic.api_key"),
				Model:   v.GetString("llm.anthropic.model"),
				BaseURL: v.GetString("llm.anthropic.base_url"),
			},
			Gemini: ProviderConfig{
				APIKey: v.GetString("llm.gemini.api_key"),
				Model:  v.GetString("llm.gemini.model"),
			},
			TurnMaxTokens:        v.GetInt("llm.turn.max_tokens"),
			TurnTemperature:      v.GetFloat64("llm.turn.temperature"),
			InsightMaxTokens:     v.GetInt("llm.insight.max_tokens"),
			InsightTemperature:   v.GetFloat64("llm.insight.temperature"),
			QuestionsMaxTokens:   v.GetInt("llm.questions.max_tokens"),
			QuestionsTemperature: v.GetFloat64("llm.questions.temperature"),
			BreakerFailures:      v.GetInt("llm.breaker.failures"),
			BreakerTimeout:       v.GetDuration("llm.breaker.timeout"),
			PerMinute:            v.GetInt("llm.budget.per_minute"),
			PerHour:              v.GetInt("llm.budget.per_hour"),
			PerDay:               v.GetInt("llm.budget.per_day"),
			MaxConcurrent:        v.GetInt("llm.budget.max_concurrent"),
		},
		Interview: InterviewConfig{
			InterviewerName: v.GetString("interview.interviewer_name"),
			QuestionCount:   v.GetInt("interview.question_count"),
			PrefixLength:    v.GetInt("interview.prefix_length"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("nats.url"),
			SubjectPrefix: v.GetString("nats.subject_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("rate_limit.requests"),
			Window:   v.GetDuration("rate_limit.window"),
		},
	}
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.drain_delay", "0s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", "*")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pitchcheck")
	v.SetDefault("database.name", "pitchcheck")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.max_idle_connections", 5)
	v.SetDefault("database.connection_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com/v1/messages")
	v.SetDefault("llm.gemini.model", "gemini-1.5-flash")
	v.SetDefault("llm.turn.max_tokens", 200)
	v.SetDefault("llm.turn.temperature", 0.8)
	v.SetDefault("llm.insight.max_tokens", 1500)
	v.SetDefault("llm.insight.temperature", 0.7)
	v.SetDefault("llm.questions.max_tokens", 1000)
	v.SetDefault("llm.questions.temperature", 0.7)
	v.SetDefault("llm.breaker.failures", 5)
	v.SetDefault("llm.breaker.timeout", "30s")
	v.SetDefault("llm.budget.per_minute", 60)
	v.SetDefault("llm.budget.per_hour", 1000)
	v.SetDefault("llm.budget.per_day", 10000)
	v.SetDefault("llm.budget.max_concurrent", 10)

	v.SetDefault("interview.interviewer_name", "Alex")
	v.SetDefault("interview.question_count", 7)
	v.SetDefault("interview.prefix_length", 20)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "1h")

	v.SetDefault("nats.subject_prefix", "pitchcheck")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")
}

// Validate checks that all required configuration values are present.
func (c *Config) Validate() error {
	var missing []string

	if c.Database.Password == "" {
		missing = append(missing, "DATABASE_PASSWORD")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			missing = append(missing, "LLM_OPENAI_API_KEY")
		}
	case ProviderAnthropic:
		if c.LLM.Anthropic.APIKey == "" {
			missing = append(missing, "LLM_ANTHROPIC_API_KEY")
		}
	case ProviderGemini:
		if c.LLM.Gemini.APIKey == "" {
			missing = append(missing, "LLM_GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported llm provider %q (want openai, anthropic or gemini)", c.LLM.Provider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Interview.PrefixLength < 1 {
		return fmt.Errorf("interview.prefix_length must be positive, got %d", c.Interview.PrefixLength)
	}
	if c.Interview.QuestionCount < 1 {
		return fmt.Errorf("interview.question_count must be positive, got %d", c.Interview.QuestionCount)
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
