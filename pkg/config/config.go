package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	App      AppConfig
	Guard    GuardConfig
	Triage   TriageConfig
	Approval ApprovalConfig
	Dedup    DedupConfig
	Audit    AuditConfig
	Security SecurityConfig
	Linear   LinearConfig
	Telegram TelegramConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string
	Format string // json or text
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string
	Version     string
	Name        string
}

// GuardConfig holds input/output guardrail configuration
type GuardConfig struct {
	MaxInputLength      int
	InjectionSignatures []string
	OutputGuardEnabled  bool
	URLAllowlist        []string
	URLBehavior         string // strip or reject
}

// TriageConfig holds classifier/extractor configuration
type TriageConfig struct {
	Provider        string // rules, anthropic or openai
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	BaseURL         string // override for tests
	MaxTurns        int
	KBBaseURL       string
}

// ApprovalConfig holds pending-approval configuration
type ApprovalConfig struct {
	TTL                  time.Duration
	Categories           []string
	AutoThreshold        float64
	TelegramApprovalChat string
}

// DedupConfig holds webhook idempotency cache configuration
type DedupConfig struct {
	TTL time.Duration
}

// AuditConfig holds async audit pipeline configuration
type AuditConfig struct {
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// SecurityConfig holds boundary security configuration
type SecurityConfig struct {
	WebhookSecret     string
	ApproveSecret     string
	ApproveSecretHash string // bcrypt hash alternative to ApproveSecret
	ReviewerJWTSecret string
	RateLimitRPM      int
	RateLimitBurst    int
}

// LinearConfig holds ticketing integration configuration
type LinearConfig struct {
	APIKey  string
	TeamID  string
	BaseURL string
}

// TelegramConfig holds messaging integration configuration
type TelegramConfig struct {
	BotToken string
	BaseURL  string
}

// defaultInjectionSignatures is the tuned prompt-injection blocklist. Broad
// standalone phrases ("act as", "disregard", "bypass") are intentionally
// absent so legitimate support phrasing does not trip the guard; override
// via GUARD_INJECTION_SIGNATURES.
var defaultInjectionSignatures = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"system:",
	"[inst]",
	"[/inst]",
	"you are now",
	"forget all previous",
	"developer mode",
	"jailbreak",
	"pretend you are",
	"<|system|>",
	"[system]",
	"###instruction",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "triage"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Name:        getEnv("APP_NAME", "triage-gateway"),
		},
		Guard: GuardConfig{
			MaxInputLength:      getEnvAsInt("MAX_INPUT_LENGTH", 2000),
			InjectionSignatures: getEnvAsSlice("GUARD_INJECTION_SIGNATURES", defaultInjectionSignatures),
			OutputGuardEnabled:  getEnvAsBool("OUTPUT_GUARD_ENABLED", true),
			URLAllowlist:        getEnvAsSlice("GUARD_URL_ALLOWLIST", []string{"support.example.com", "kb.example.com"}),
			URLBehavior:         getEnv("GUARD_URL_BEHAVIOR", "strip"),
		},
		Triage: TriageConfig{
			Provider:        getEnv("TRIAGE_PROVIDER", "rules"),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:         getEnv("TRIAGE_BASE_URL", ""),
			MaxTurns:        getEnvAsInt("TRIAGE_MAX_TURNS", 5),
			KBBaseURL:       getEnv("KB_BASE_URL", "https://kb.example.com/articles"),
		},
		Approval: ApprovalConfig{
			TTL:                  getEnvAsDuration("APPROVAL_TTL", time.Hour),
			Categories:           getEnvAsSlice("APPROVAL_CATEGORIES", []string{"billing"}),
			AutoThreshold:        getEnvAsFloat("AUTO_APPROVE_THRESHOLD", 0.85),
			TelegramApprovalChat: getEnv("TELEGRAM_APPROVAL_CHAT_ID", ""),
		},
		Dedup: DedupConfig{
			TTL: getEnvAsDuration("DEDUP_TTL", 24*time.Hour),
		},
		Audit: AuditConfig{
			QueueSize:  getEnvAsInt("AUDIT_QUEUE_SIZE", 256),
			MaxRetries: getEnvAsInt("AUDIT_MAX_RETRIES", 2),
			RetryDelay: getEnvAsDuration("AUDIT_RETRY_DELAY", 2*time.Second),
		},
		Security: SecurityConfig{
			WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),
			ApproveSecret:     getEnv("APPROVE_SECRET", ""),
			ApproveSecretHash: getEnv("APPROVE_SECRET_HASH", ""),
			ReviewerJWTSecret: getEnv("REVIEWER_JWT_SECRET", ""),
			RateLimitRPM:      getEnvAsInt("RATE_LIMIT_RPM", 30),
			RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Linear: LinearConfig{
			APIKey:  getEnv("LINEAR_API_KEY", ""),
			TeamID:  getEnv("LINEAR_TEAM_ID", ""),
			BaseURL: getEnv("LINEAR_BASE_URL", "https://api.linear.app/graphql"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			BaseURL:  getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if c.Guard.MaxInputLength <= 0 {
		return fmt.Errorf("invalid max input length: %d", c.Guard.MaxInputLength)
	}

	if c.Guard.URLBehavior != "strip" && c.Guard.URLBehavior != "reject" {
		return fmt.Errorf("invalid url guard behavior: %q", c.Guard.URLBehavior)
	}

	switch c.Triage.Provider {
	case "rules", "anthropic", "openai":
	default:
		return fmt.Errorf("invalid triage provider: %q", c.Triage.Provider)
	}

	if c.Approval.AutoThreshold < 0 || c.Approval.AutoThreshold > 1 {
		return fmt.Errorf("invalid auto approve threshold: %f", c.Approval.AutoThreshold)
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
