package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	AllowedOrigins []string
	PostgresURL    string
	LocalDir       string
	StaticDir      string
	DeviceID       string
	ConsolePINHash string
	JWTKey         []byte
	TokenMaxAge    time.Duration
	Debug          bool
	// WSRate is the number of inbound websocket messages a client may send
	// per second.
	WSRate float64
	// ShuffleSeats randomizes the seat order of each new game.
	ShuffleSeats bool
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		Addr:           get("ADDR", ":8080"),
		PostgresURL:    get("POSTGRES_URL", ""),
		LocalDir:       get("LOCAL_DIR", "data"),
		StaticDir:      get("STATIC_DIR", "web/dist"),
		DeviceID:       get("DEVICE_ID", uuid.NewString()),
		ConsolePINHash: get("CONSOLE_PIN_HASH", ""),
		JWTKey:         []byte(get("JWT_KEY", "")),
	}
	for _, o := range strings.Split(get("ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	if len(cfg.JWTKey) == 0 {
		// Tokens then only live as long as the process.
		cfg.JWTKey = []byte(uuid.NewString())
	}

	var err error
	if cfg.TokenMaxAge, err = time.ParseDuration(get("TOKEN_MAX_AGE", "720h")); err != nil {
		return Config{}, fmt.Errorf("TOKEN_MAX_AGE: %w", err)
	}
	if cfg.Debug, err = parseBool(get("DEBUG", "false")); err != nil {
		return Config{}, fmt.Errorf("DEBUG: %w", err)
	}
	if cfg.ShuffleSeats, err = parseBool(get("SHUFFLE_SEATS", "false")); err != nil {
		return Config{}, fmt.Errorf("SHUFFLE_SEATS: %w", err)
	}
	if cfg.WSRate, err = strconv.ParseFloat(get("WS_RATE", "2"), 64); err != nil {
		return Config{}, fmt.Errorf("WS_RATE: %w", err)
	}
	if cfg.WSRate <= 0 {
		return Config{}, fmt.Errorf("WS_RATE: must be positive, got %v", cfg.WSRate)
	}
	return cfg, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
