package config

import (
	"github.com/relaykit/mailrelay/internal/logger"
	"github.com/relaykit/mailrelay/internal/tracing"
)

type Config struct {
	AppConfig      AppConfig
	DatabaseConfig DatabaseConfig
	TelegramConfig TelegramConfig
	RelayConfig    RelayConfig
	Logger         logger.Config
	Jaeger         tracing.JaegerConfig
}

type AppConfig struct {
	APIPort string `env:"PORT" envDefault:"8083"`
	APIKey  string `env:"MAILRELAY_API_KEY" validate:"required"`
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST,required"`
	Port            string `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"POSTGRES_USER,required,unset"`
	DBName          string `env:"POSTGRES_DB,required"`
	Password        string `env:"POSTGRES_PASSWORD,required,unset"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN" envDefault:"10"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN" envDefault:"5"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"300"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN,required,unset"`
	ChatID   string `env:"TELEGRAM_CHAT_ID,required"`
	APIBase  string `env:"TELEGRAM_API_BASE" envDefault:"https://api.telegram.org"`
}

type RelayConfig struct {
	// Upper bound on items fetched per folder per cycle.
	WindowLimit int `env:"RELAY_WINDOW_LIMIT" envDefault:"25"`
	// Seconds to pause between delivered items and between attachments.
	ItemDelaySeconds       int `env:"RELAY_ITEM_DELAY_SECONDS" envDefault:"2"`
	AttachmentDelaySeconds int `env:"RELAY_ATTACHMENT_DELAY_SECONDS" envDefault:"1"`

	MessageCharLimit  int    `env:"RELAY_MESSAGE_CHAR_LIMIT" envDefault:"4000"`
	TruncationMarker  string `env:"RELAY_TRUNCATION_MARKER" envDefault:"... [message truncated]"`
	SkipExtensions    []string `env:"RELAY_SKIP_EXTENSIONS" envSeparator:"," envDefault:".jpg,.jpeg,.png,.gif,.bmp"`
	AttachmentWorkDir string `env:"RELAY_ATTACHMENT_WORK_DIR" envDefault:""`
}
