// Package config handles loading and validating the chronovox configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for the chronovox service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	GenAI   GenAIConfig   `mapstructure:"genai"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Journal JournalConfig `mapstructure:"journal"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the API and probe server settings.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	HealthPort     int `mapstructure:"health_port"`
	GRPCHealthPort int `mapstructure:"grpc_health_port"` // 0 disables the gRPC health listener
}

// GenAIConfig holds the generative language API settings.
type GenAIConfig struct {
	APIKey            string `mapstructure:"api_key"` // literal value or "${VAR}" reference
	BaseURL           string `mapstructure:"base_url"`
	ResearchModel     string `mapstructure:"research_model"`
	SpeechModel       string `mapstructure:"speech_model"`
	ImageModel        string `mapstructure:"image_model"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"` // 0 disables the outbound rate cap
}

// RetryConfig tunes the quota backoff applied to remote calls.
type RetryConfig struct {
	MaxRetries    int `mapstructure:"max_retries"`
	DelayMS       int `mapstructure:"delay_ms"`
	AvatarRetries int `mapstructure:"avatar_retries"`
}

// JournalConfig holds the submission journal settings.
type JournalConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./chronovox.yaml, ./configs/chronovox.yaml, /etc/chronovox/chronovox.yaml.
func Load(configFile string) (*Config, error) {
	// Load .env if present so API keys can live outside the config file.
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.grpc_health_port", 0)
	v.SetDefault("genai.api_key", "")
	v.SetDefault("genai.base_url", "")
	v.SetDefault("genai.research_model", "gemini-2.5-flash")
	v.SetDefault("genai.speech_model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("genai.image_model", "gemini-2.0-flash-preview-image-generation")
	v.SetDefault("genai.requests_per_minute", 0)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.delay_ms", 2000)
	v.SetDefault("retry.avatar_retries", 2)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "chronovox.db")
	v.SetDefault("journal.max_entries", 200)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("chronovox")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/chronovox")
	}

	// Environment variables: CHRONOVOX_SERVER_PORT, CHRONOVOX_GENAI_API_KEY, etc.
	v.SetEnvPrefix("CHRONOVOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}")
	cfg.GenAI.APIKey = resolveEnvRef(cfg.GenAI.APIKey)

	// Honor the conventional variable name when no key is configured.
	if cfg.GenAI.APIKey == "" {
		cfg.GenAI.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
