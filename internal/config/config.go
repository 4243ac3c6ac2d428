// Package config loads application configuration from config.yaml and the
// JACKPOT_* environment, and owns global logger setup.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/jackpot-predict/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Agents    AgentsConfig    `yaml:"agents" mapstructure:"agents"`
	Oracle    OracleConfig    `yaml:"oracle" mapstructure:"oracle"`
	Thinker   ThinkerConfig   `yaml:"thinker" mapstructure:"thinker"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the puzzle archive backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// OpenAIConfig holds OpenAI API settings for the specialist roster.
type OpenAIConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Model        string  `yaml:"model" mapstructure:"model"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateBurst    int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// AnthropicConfig holds Anthropic API settings for the Oracle.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Gemini API settings for the Thinker.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AgentsConfig tunes the specialist roster.
type AgentsConfig struct {
	TimeoutSecs      int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerThreshold int  `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerEnabled   bool `yaml:"breaker_enabled" mapstructure:"breaker_enabled"`
}

// Timeout returns the per-specialist call budget.
func (c AgentsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// OracleConfig tunes the meta-synthesizer.
type OracleConfig struct {
	// SlackSecs is added to the specialist timeout so the Oracle's extra
	// latency hides inside the specialist round-trip.
	SlackSecs int  `yaml:"slack_secs" mapstructure:"slack_secs"`
	Late      bool `yaml:"late" mapstructure:"late"`
	Disabled  bool `yaml:"disabled" mapstructure:"disabled"`
}

// Slack returns the extra Oracle time budget.
func (c OracleConfig) Slack() time.Duration {
	return time.Duration(c.SlackSecs) * time.Second
}

// ThinkerConfig tunes the background deep analyzer.
type ThinkerConfig struct {
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
}

// SessionConfig tunes session lifecycle.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TTL returns the idle expiry window.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("JACKPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "jackpot.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("openai.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("gemini.key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.rate_limit_rps", 10.0)
	v.SetDefault("openai.rate_burst", 5)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("gemini.model", "gemini-2.5-pro")
	v.SetDefault("agents.timeout_secs", 12)
	v.SetDefault("agents.breaker_threshold", 5)
	v.SetDefault("agents.breaker_enabled", true)
	v.SetDefault("oracle.slack_secs", 3)
	v.SetDefault("session.ttl_minutes", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
