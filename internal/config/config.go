package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Handler HandlerConfig `mapstructure:"handler"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type StoreConfig struct {
	Backend          string `mapstructure:"backend" validate:"required,oneof=dynamodb redis sqlite memory"`
	Table            string `mapstructure:"table" validate:"required"`
	KeyAttribute     string `mapstructure:"key_attribute" validate:"required"`
	ValueAttribute   string `mapstructure:"value_attribute" validate:"required,nefield=KeyAttribute"`
	DynamoDBEndpoint string `mapstructure:"dynamodb_endpoint" validate:"omitempty,url"`
	RedisAddr        string `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPrefix      string `mapstructure:"redis_prefix"`
	SQLitePath       string `mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
}

type OpenAIConfig struct {
	APIKey    string        `mapstructure:"api_key" validate:"required"`
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Model     string        `mapstructure:"model" validate:"required"`
	MaxTokens int           `mapstructure:"max_tokens" validate:"gt=0"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type HandlerConfig struct {
	CacheFailedGenerations bool `mapstructure:"cache_failed_generations"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port" validate:"required,numeric"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" validate:"gte=0"`
}

type LogConfig struct {
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

type TracingConfig struct {
	Exporter string `mapstructure:"exporter" validate:"oneof=none stdout"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"store.backend":                    "STORE_BACKEND",
	"store.table":                      "CHATS_TABLE",
	"store.dynamodb_endpoint":          "DYNAMODB_ENDPOINT",
	"store.redis_addr":                 "REDIS_ADDR",
	"store.sqlite_path":                "SQLITE_PATH",
	"openai.api_key":                   "OPENAI_API_KEY",
	"openai.base_url":                  "OPENAI_BASE_URL",
	"openai.model":                     "OPENAI_MODEL",
	"handler.cache_failed_generations": "CACHE_FAILED_GENERATIONS",
	"server.port":                      "PORT",
	"log.env":                          "ENV",
	"log.level":                        "LOG_LEVEL",
	"tracing.exporter":                 "TRACING_EXPORTER",
}

// Load reads configFile (or config.yaml from the usual places when empty),
// applies defaults and environment overrides, and validates the result.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/wondernav")
	}

	v.SetDefault("store.backend", "dynamodb")
	v.SetDefault("store.table", "WonderNAV-Chats")
	v.SetDefault("store.key_attribute", "input")
	v.SetDefault("store.value_attribute", "output")
	v.SetDefault("store.redis_addr", "127.0.0.1:6379")
	v.SetDefault("store.redis_prefix", "wondernav")
	v.SetDefault("store.sqlite_path", "wondernav.db")
	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.model", "gpt-3.5-turbo-instruct")
	v.SetDefault("openai.max_tokens", 900)
	v.SetDefault("openai.timeout", time.Duration(0))
	v.SetDefault("handler.cache_failed_generations", false)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.max_body_bytes", 512*1024)
	v.SetDefault("tracing.exporter", "none")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field in one error.
func (c *Config) Validate() error {
	validate, trans, err := newValidator()
	if err != nil {
		return err
	}

	err = validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validate configuration: %w", err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msgs = append(msgs, fe.Translate(trans))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
