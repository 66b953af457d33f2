// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the application reads at startup.
type Config struct {
	Port               string        `env:"PORT"                 envDefault:"3000"`
	NATSURL            string        `env:"NATS_URL"             envDefault:"nats://localhost:4222"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost:8080"`
	GiphyAPIKey        string        `env:"GIPHY_API_KEY"`
	GiphyBaseURL       string        `env:"GIPHY_BASE_URL"       envDefault:"https://api.giphy.com/v1/gifs"`
	MaxRoomHistory     int           `env:"MAX_ROOM_HISTORY"     envDefault:"500"`
	MaxUploadSize      int64         `env:"MAX_UPLOAD_SIZE"      envDefault:"2097152"`
	UploadBucket       string        `env:"UPLOAD_BUCKET"        envDefault:"chat-uploads"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT"     envDefault:"30s"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
