package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	DatabaseURL string        `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"72h"`
	ClientURL   string        `env:"CLIENT_URL" envDefault:"*"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`

	RedisAddr   string        `env:"REDIS_ADDR"`
	PresenceTTL time.Duration `env:"PRESENCE_TTL" envDefault:"2m"`

	CloudinaryURL string `env:"CLOUDINARY_URL"`
	UploadFolder  string `env:"UPLOAD_FOLDER" envDefault:"chat_app"`

	STUNURLs   []string      `env:"STUN_URLS" envSeparator:"," envDefault:"stun:stun.l.google.com:19302"`
	TURNURLs   []string      `env:"TURN_URLS" envSeparator:","`
	TURNSecret string        `env:"TURN_SECRET"`
	TURNTTL    time.Duration `env:"TURN_TTL" envDefault:"12h"`

	BrevoAPIKey     string `env:"BREVO_API_KEY"`
	EmailSender     string `env:"EMAIL_SENDER"`
	EmailSenderName string `env:"EMAIL_SENDER_NAME"`
}

// Load reads .env (if present) into the process environment and parses the
// environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn(".env file not found, reading from system environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger for the configured level.
func (c Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
