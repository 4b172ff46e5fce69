package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Engine   EngineConfig   `yaml:"engine"`
	Store    StoreConfig    `yaml:"store"`
	Extract  ExtractConfig  `yaml:"extract"`
	Remote   RemoteConfig   `yaml:"remote"`
	Telegram TelegramConfig `yaml:"telegram"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Agent    AgentConfig    `yaml:"agent"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type EngineConfig struct {
	DeadlineWeight         float64 `yaml:"deadline_weight"`
	PriorityWeight         float64 `yaml:"priority_weight"`
	EmergencyThresholdDays int     `yaml:"emergency_threshold_days"`
}

type StoreConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	HistoryPath string `yaml:"history_path"`
	InboxDir    string `yaml:"inbox_dir"`
}

type ExtractConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type RemoteConfig struct {
	BaseURL      string        `yaml:"base_url"`
	TokenURL     string        `yaml:"token_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Folder       string        `yaml:"folder"`
	Timeout      time.Duration `yaml:"timeout"`
}

type TelegramConfig struct {
	Token        string        `yaml:"token"`
	ChatID       int64         `yaml:"chat_id"`
	AllowedChats []int64       `yaml:"allowed_chats"`
	PollTimeout  time.Duration `yaml:"poll_timeout"`
}

type WebhooksConfig struct {
	Workers    int             `yaml:"workers"`
	MaxRetries int             `yaml:"max_retries"`
	RetryDelay time.Duration   `yaml:"retry_delay"`
	Targets    []WebhookTarget `yaml:"targets"`
}

type WebhookTarget struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

type AgentConfig struct {
	Interval      time.Duration `yaml:"interval"`
	SummaryAt     string        `yaml:"summary_at"`
	WebExportPath string        `yaml:"web_export_path"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	Username     string        `yaml:"username"`
	PasswordHash string        `yaml:"password_hash"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			DeadlineWeight:         0.7,
			PriorityWeight:         0.3,
			EmergencyThresholdDays: 3,
		},
		Store: StoreConfig{
			Backend:     "excel",
			Path:        "./data/print_queue.xlsx",
			HistoryPath: "./data/history.db",
			InboxDir:    "./data/inbox",
		},
		Extract: ExtractConfig{
			Model:   "gemini-2.0-flash",
			Timeout: 30 * time.Second,
		},
		Remote: RemoteConfig{
			Folder:  "PrintQueue",
			Timeout: 30 * time.Second,
		},
		Telegram: TelegramConfig{
			PollTimeout: 30 * time.Second,
		},
		Webhooks: WebhooksConfig{
			Workers:    2,
			MaxRetries: 3,
			RetryDelay: 10 * time.Second,
		},
		Agent: AgentConfig{
			Interval:      30 * time.Minute,
			SummaryAt:     "18:00",
			WebExportPath: "./data/web_queue_data.json",
		},
		Auth: AuthConfig{
			Username: "admin",
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRINTQ_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("PRINTQ_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}

	if v := os.Getenv("PRINTQ_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}

	if v := os.Getenv("PRINTQ_GEMINI_API_KEY"); v != "" {
		cfg.Extract.APIKey = v
	}

	if v := os.Getenv("PRINTQ_REMOTE_CLIENT_ID"); v != "" {
		cfg.Remote.ClientID = v
	}

	if v := os.Getenv("PRINTQ_REMOTE_CLIENT_SECRET"); v != "" {
		cfg.Remote.ClientSecret = v
	}

	if v := os.Getenv("PRINTQ_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}

	if v := os.Getenv("PRINTQ_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}

	if v := os.Getenv("PRINTQ_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	if v := os.Getenv("PRINTQ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Engine.DeadlineWeight < 0 {
		return fmt.Errorf("deadline weight must be non-negative")
	}

	if c.Engine.PriorityWeight < 0 {
		return fmt.Errorf("priority weight must be non-negative")
	}

	if c.Engine.EmergencyThresholdDays < 0 {
		return fmt.Errorf("emergency threshold days must be non-negative")
	}

	validBackends := map[string]bool{
		"excel":  true,
		"json":   true,
		"sqlite": true,
	}

	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend: %s (valid: excel, json, sqlite)", c.Store.Backend)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	if c.Extract.Timeout < 0 {
		return fmt.Errorf("extract timeout must be non-negative")
	}

	if c.Remote.BaseURL != "" {
		if c.Remote.TokenURL == "" {
			return fmt.Errorf("remote token url is required when remote base url is set")
		}
		if c.Remote.ClientID == "" || c.Remote.ClientSecret == "" {
			return fmt.Errorf("remote client credentials are required when remote base url is set")
		}
	}

	if c.Webhooks.Workers < 1 {
		return fmt.Errorf("webhook worker count must be at least 1")
	}

	if c.Webhooks.MaxRetries < 0 {
		return fmt.Errorf("webhook max retries must be non-negative")
	}

	if c.Webhooks.RetryDelay < 0 {
		return fmt.Errorf("webhook retry delay must be non-negative")
	}

	for i, target := range c.Webhooks.Targets {
		if target.URL == "" {
			return fmt.Errorf("webhook target %d: url is required", i)
		}
	}

	if c.Agent.Interval <= 0 {
		return fmt.Errorf("agent interval must be positive")
	}

	if c.Agent.SummaryAt != "" {
		if _, err := time.Parse("15:04", c.Agent.SummaryAt); err != nil {
			return fmt.Errorf("invalid agent summary time: %s (expected HH:MM)", c.Agent.SummaryAt)
		}
	}

	if c.Auth.PasswordHash != "" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required when a password hash is configured")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token ttl must be positive")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}

func (c *Config) AuthEnabled() bool {
	return c.Auth.PasswordHash != ""
}

func (c *Config) RemoteEnabled() bool {
	return c.Remote.BaseURL != ""
}

func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != 0
}
