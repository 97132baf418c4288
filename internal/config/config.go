package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quantlark/strata/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Engine    EngineConfig              `mapstructure:"engine"`
	Archive   ArchiveConfig             `mapstructure:"archive"`
	Feed      FeedConfig                `mapstructure:"feed"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Alerts    AlertsConfig              `mapstructure:"alerts"`
	LLM       LLMConfig                 `mapstructure:"llm"`
	Advisor   AdvisorConfig             `mapstructure:"advisor"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Logging   LoggingConfig             `mapstructure:"logging"`
}

// EngineConfig holds simulation and sweep defaults. Zero Workers means
// min(GOMAXPROCS, 8) at run time.
type EngineConfig struct {
	TopK            int           `mapstructure:"top_k"`
	Workers         int           `mapstructure:"workers"`
	MaxCombinations int           `mapstructure:"max_combinations"`
	SweepTimeout    time.Duration `mapstructure:"sweep_timeout"`
}

// ArchiveConfig holds run artifact storage settings.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// FeedConfig holds historical data download settings.
type FeedConfig struct {
	Binance BinanceConfig `mapstructure:"binance"`
}

type BinanceConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type NotifierConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	URL      string `mapstructure:"url"`
	// Email notifier fields
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// Webhook notifier fields
	Headers map[string]string `mapstructure:"headers"`
}

// AlertsConfig holds result-quality rules attached to notifications.
type AlertsConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Rules   []AlertRule `mapstructure:"rules"`
}

// AlertRule defines a single result-quality rule.
type AlertRule struct {
	Name     string `mapstructure:"name"`
	Expr     string `mapstructure:"expr"`
	Severity string `mapstructure:"severity"`
	Message  string `mapstructure:"message"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// AdvisorConfig holds post-sweep LLM analysis settings.
type AdvisorConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TopRows    int  `mapstructure:"top_rows"`
	BottomRows int  `mapstructure:"bottom_rows"`
}

// MetricsConfig holds the Prometheus scrape endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return finish(v)
}

// LoadDefault searches the working directory and $HOME/.strata for a
// strata.yaml. When no file exists it returns Defaults.
func LoadDefault() (*Config, error) {
	v := viper.New()
	v.SetConfigName("strata")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".strata"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return finish(v)
}

// finish applies env overrides and ${VAR} expansion, then unmarshals
// over the defaults.
func finish(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("STRATA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			TopK:            50,
			Workers:         0,
			MaxCombinations: 100000,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "runs",
		},
		Feed: FeedConfig{
			Binance: BinanceConfig{
				Endpoint: "https://api.binance.com",
			},
		},
		Advisor: AdvisorConfig{
			TopRows:    10,
			BottomRows: 5,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9101",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Engine.TopK < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.top_k must be at least 1, got %d", c.Engine.TopK))
	}
	if c.Engine.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.workers cannot be negative, got %d", c.Engine.Workers))
	}
	if c.Engine.MaxCombinations < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.max_combinations must be at least 1, got %d", c.Engine.MaxCombinations))
	}
	if c.Engine.SweepTimeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.sweep_timeout cannot be negative, got %s", c.Engine.SweepTimeout))
	}

	switch c.Archive.Type {
	case "localfs":
		if c.Archive.Enabled && c.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive.path required for localfs archive"))
		}
	case "s3":
		if c.Archive.Enabled && c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive.s3.bucket required for s3 archive"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("archive.type must be localfs or s3, got %q", c.Archive.Type))
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("metrics.listen required when metrics enabled"))
	}

	if c.Alerts.Enabled {
		for i, r := range c.Alerts.Rules {
			if r.Name == "" || r.Expr == "" {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("alert rule %d needs a name and an expr", i))
			}
		}
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		}
	}

	if c.Advisor.Enabled && c.LLM.Provider == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("llm.provider required when advisor enabled"))
	}

	return nil
}
