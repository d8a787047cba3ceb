package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all lumine configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Review    ReviewConfig    `mapstructure:"review"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Bind string `mapstructure:"bind" validate:"required"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"` // empty resolves to store.DefaultDBPath()
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"omitempty,min=16"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

type ReviewConfig struct {
	SessionSize     int    `mapstructure:"session_size" validate:"min=1,max=500"`
	InitialInterval int    `mapstructure:"initial_interval" validate:"min=1,max=365"`
	Timezone        string `mapstructure:"timezone" validate:"omitempty,timezone"`
}

type LLMConfig struct {
	Provider     string        `mapstructure:"provider" validate:"oneof=anthropic ollama gemini none"`
	Model        string        `mapstructure:"model"`
	AnthropicKey string        `mapstructure:"anthropic_api_key"`
	GoogleKey    string        `mapstructure:"google_api_key"`
	OllamaURL    string        `mapstructure:"ollama_url" validate:"omitempty,url"`
	OllamaModel  string        `mapstructure:"ollama_model"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries   uint          `mapstructure:"max_retries" validate:"max=10"`
}

type RemindersConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Auth: AuthConfig{
			Issuer:   "lumine",
			TokenTTL: 24 * time.Hour,
		},
		Review: ReviewConfig{
			SessionSize:     20,
			InitialInterval: 3,
		},
		LLM: LLMConfig{
			Provider:    "none",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "llama3.2",
			Timeout:     60 * time.Second,
			MaxRetries:  3,
		},
		Reminders: RemindersConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// envAliases are the conventional variable names honored besides LUMINE_*.
var envAliases = map[string]string{
	"llm.anthropic_api_key": "ANTHROPIC_API_KEY",
	"llm.google_api_key":    "GOOGLE_API_KEY",
	"auth.jwt_secret":       "JWT_SECRET",
	"log.level":             "LOG_LEVEL",
}

// Load reads configFile, or config.yaml from the working directory or
// ~/.lumine when configFile is empty, layered over Default() and the
// environment. Not finding a config file in the search path is fine.
func Load(configFile string) (*Config, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.lumine")
	}

	setDefaults(v, Default())

	v.SetEnvPrefix("LUMINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envKey := "LUMINE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", alias, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("configuration file found but could not be read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("validate configuration: %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(trans))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.bind", d.Server.Bind)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("review.session_size", d.Review.SessionSize)
	v.SetDefault("review.initial_interval", d.Review.InitialInterval)
	v.SetDefault("review.timezone", d.Review.Timezone)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.anthropic_api_key", d.LLM.AnthropicKey)
	v.SetDefault("llm.google_api_key", d.LLM.GoogleKey)
	v.SetDefault("llm.ollama_url", d.LLM.OllamaURL)
	v.SetDefault("llm.ollama_model", d.LLM.OllamaModel)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("reminders.enabled", d.Reminders.Enabled)
	v.SetDefault("reminders.interval", d.Reminders.Interval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Location is the time zone review days are counted in. An empty timezone
// means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Review.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Review.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Review.Timezone, err)
	}
	return loc, nil
}
