package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultConfigPath          = "config.toml"
	DefaultHTTPAddr            = ":8080"
	DefaultNamespace           = "default"
	DefaultChatModel           = "gpt-3.5-turbo"
	DefaultEmbeddingModel      = "text-embedding-ada-002"
	DefaultModerationModel     = "omni-moderation-latest"
	DefaultMaxTokens           = 150
	DefaultTemperature         = 0.3
	DefaultSimilarityThreshold = 0.7
	DefaultTopK                = 3
	DefaultSessionTTL          = "2h"
	DefaultSweepSchedule       = "@every 30m"
	DefaultQdrantURL           = "http://127.0.0.1:6334"
	DefaultQdrantCollection    = "argenfuego-chatbot-knowledge-base"
	DefaultPGHost              = "127.0.0.1"
	DefaultPGPort              = 5432
	DefaultPGUser              = "postgres"
	DefaultPGDatabase          = "eva"
	DefaultPGSSLMode           = "disable"
	DefaultLeadRecipient       = "ventas@argenfuego.com"
	DefaultSenderAddress       = "eva@argenfuego.com"
	DefaultSenderName          = "Eva - Argenfuego"
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Chat       ChatConfig       `toml:"chat"`
	Embeddings EmbeddingsConfig `toml:"embeddings"`
	Knowledge  KnowledgeConfig  `toml:"knowledge"`
	Qdrant     QdrantConfig     `toml:"qdrant"`
	Guardrails GuardrailsConfig `toml:"guardrails"`
	Session    SessionConfig    `toml:"session"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Email      EmailConfig      `toml:"email"`
	Telegram   TelegramConfig   `toml:"telegram"`
	Auth       AuthConfig       `toml:"auth"`
}

type LogConfig struct {
	Level      string `toml:"level" validate:"oneof=debug info warn error"`
	Format     string `toml:"format" validate:"oneof=text json"`
	PIIMasking bool   `toml:"pii_masking"`
}

type ServerConfig struct {
	Addr string `toml:"addr" validate:"required"`
}

type ChatConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model" validate:"required"`
	MaxTokens   int     `toml:"max_tokens" validate:"gt=0"`
	Temperature float32 `toml:"temperature" validate:"gte=0,lte=2"`
	Timeout     string  `toml:"timeout"`
}

type EmbeddingsConfig struct {
	Model   string `toml:"model" validate:"required"`
	Timeout string `toml:"timeout"`
}

type KnowledgeConfig struct {
	Namespace           string  `toml:"namespace" validate:"required"`
	SimilarityThreshold float64 `toml:"similarity_threshold" validate:"gte=-1,lte=1"`
	TopK                int     `toml:"top_k" validate:"gt=0,lte=50"`
}

type QdrantConfig struct {
	BaseURL        string `toml:"base_url" validate:"required,url"`
	APIKey         string `toml:"api_key"`
	Collection     string `toml:"collection" validate:"required"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type GuardrailsConfig struct {
	EnableInputModeration  bool   `toml:"enable_input_moderation"`
	EnableTopicValidation  bool   `toml:"enable_topic_validation"`
	EnableOutputModeration bool   `toml:"enable_output_moderation"`
	ModerationProvider     string `toml:"moderation_provider" validate:"oneof=openai keywords"`
	ModerationModel        string `toml:"moderation_model"`
	TopicClassifier        string `toml:"topic_classifier" validate:"oneof=llm keywords"`
	StageTimeout           string `toml:"stage_timeout"`
}

type SessionConfig struct {
	Backend       string `toml:"backend" validate:"oneof=memory postgres"`
	TTL           string `toml:"ttl"`
	SweepSchedule string `toml:"sweep_schedule" validate:"required"`
}

type PostgresConfig struct {
	URL      string `toml:"url"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// DSN returns URL when set, otherwise a postgres:// URL built from the discrete fields.
func (c PostgresConfig) DSN() string {
	if strings.TrimSpace(c.URL) != "" {
		return strings.TrimSpace(c.URL)
	}
	auth := c.User
	if c.Password != "" {
		auth += ":" + c.Password
	}
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=%s", auth, c.Host, c.Port, c.Database, c.SSLMode)
}

type EmailConfig struct {
	Provider      string         `toml:"provider" validate:"oneof=smtp mailgun none"`
	Recipient     string         `toml:"recipient" validate:"omitempty,email"`
	SenderAddress string         `toml:"sender_address" validate:"omitempty,email"`
	SenderName    string         `toml:"sender_name"`
	Timeout       string         `toml:"timeout"`
	SMTP          map[string]any `toml:"smtp"`
	Mailgun       map[string]any `toml:"mailgun"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
}

// AuthConfig guards the operator endpoints. An empty secret disables them.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	TokenTTL  string `toml:"token_ttl"`
}

// Duration parses raw and falls back to def when raw is empty or malformed.
func Duration(raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			PIIMasking: true,
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Chat: ChatConfig{
			Model:       DefaultChatModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			Timeout:     "30s",
		},
		Embeddings: EmbeddingsConfig{
			Model:   DefaultEmbeddingModel,
			Timeout: "10s",
		},
		Knowledge: KnowledgeConfig{
			Namespace:           DefaultNamespace,
			SimilarityThreshold: DefaultSimilarityThreshold,
			TopK:                DefaultTopK,
		},
		Qdrant: QdrantConfig{
			BaseURL:        DefaultQdrantURL,
			Collection:     DefaultQdrantCollection,
			TimeoutSeconds: 10,
		},
		Guardrails: GuardrailsConfig{
			EnableInputModeration:  true,
			EnableTopicValidation:  true,
			EnableOutputModeration: true,
			ModerationProvider:     "openai",
			ModerationModel:        DefaultModerationModel,
			TopicClassifier:        "llm",
			StageTimeout:           "8s",
		},
		Session: SessionConfig{
			Backend:       "memory",
			TTL:           DefaultSessionTTL,
			SweepSchedule: DefaultSweepSchedule,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Email: EmailConfig{
			Provider:      "none",
			Recipient:     DefaultLeadRecipient,
			SenderAddress: DefaultSenderAddress,
			SenderName:    DefaultSenderName,
			Timeout:       "15s",
		},
		Auth: AuthConfig{
			TokenTTL: "24h",
		},
	}
}

// Load reads the TOML file at path on top of Default, then applies environment
// overrides (a .env file in the working directory is loaded first when present).
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Chat.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Chat.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&cfg.Qdrant.BaseURL, "QDRANT_URL")
	setString(&cfg.Knowledge.Namespace, "KNOWLEDGE_NAMESPACE")
	setString(&cfg.Postgres.URL, "DATABASE_URL")
	setString(&cfg.Email.Recipient, "LEAD_RECIPIENT")
	setString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Auth.JWTSecret, "EVA_JWT_SECRET")

	if v := strings.TrimSpace(os.Getenv("MAILGUN_API_KEY")); v != "" {
		if cfg.Email.Mailgun == nil {
			cfg.Email.Mailgun = map[string]any{}
		}
		cfg.Email.Mailgun["api_key"] = v
	}
	if v := strings.TrimSpace(os.Getenv("SMTP_PASSWORD")); v != "" {
		if cfg.Email.SMTP == nil {
			cfg.Email.SMTP = map[string]any{}
		}
		cfg.Email.SMTP["password"] = v
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
}

// Validate checks struct constraints and cross-field requirements.
func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Session.Backend == "postgres" && strings.TrimSpace(cfg.Postgres.URL) == "" && strings.TrimSpace(cfg.Postgres.Host) == "" {
		return fmt.Errorf("invalid config: postgres session backend requires postgres.url or postgres.host")
	}
	if cfg.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return fmt.Errorf("invalid config: telegram.bot_token is required when telegram is enabled")
	}
	if cfg.Email.Provider != "none" && strings.TrimSpace(cfg.Email.Recipient) == "" {
		return fmt.Errorf("invalid config: email.recipient is required when email.provider is %s", cfg.Email.Provider)
	}
	return nil
}
