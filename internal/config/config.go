package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Podcast  PodcastConfig  `yaml:"podcast"`
	Social   SocialConfig   `yaml:"social"`
	Resolve  ResolveConfig  `yaml:"resolve"`
	LogLevel string         `yaml:"log_level"`
}

// RabbitMQConfig leaves publishing disabled when URL is empty.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"dbname"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig leaves caching disabled when Addr is empty.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type UpstreamConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Retry        RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type YouTubeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type PodcastConfig struct {
	BaseURL string `yaml:"base_url"`
	Country string `yaml:"country"`
}

type SocialConfig struct {
	BlueskyBaseURL string `yaml:"bluesky_base_url"`
	OEmbedURL      string `yaml:"oembed_url"`
}

type ResolveConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	DegradeToWeb bool          `yaml:"degrade_to_web"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies
// defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports missing settings that have no safe default. Credentials
// are never defaulted.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.YouTube.APIKey) == "" {
		errs = append(errs, errors.New("youtube.api_key is required"))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.DBName == "" {
		errs = append(errs, errors.New("database.dbname is required"))
	}
	if err := checkLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "content_resolver"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "content.resolved"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "resolved_content"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 24 * time.Hour
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 45 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 10 * time.Second
	}
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = "content-resolver/1.0 (+https://github.com/content-resolver)"
	}
	if c.Upstream.Retry.MaxAttempts == 0 {
		c.Upstream.Retry.MaxAttempts = 3
	}
	if c.Upstream.Retry.InitialBackoff == 0 {
		c.Upstream.Retry.InitialBackoff = 500 * time.Millisecond
	}
	if c.Upstream.Retry.MaxBackoff == 0 {
		c.Upstream.Retry.MaxBackoff = 5 * time.Second
	}
	if c.Resolve.Timeout == 0 {
		c.Resolve.Timeout = 30 * time.Second
	}
	if c.Upstream.MaxBodyBytes == 0 {
		c.Upstream.MaxBodyBytes = 10 << 20
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// SetLogLevel overrides log_level, for example from a command line flag.
// An invalid level leaves the config unchanged.
func (c *Config) SetLogLevel(level string) error {
	level = strings.ToLower(strings.TrimSpace(level))
	if err := checkLogLevel(level); err != nil {
		return err
	}
	c.LogLevel = level
	return nil
}

func checkLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log_level %q is not one of debug, info, warn, error", level)
}
