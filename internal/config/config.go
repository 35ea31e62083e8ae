package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	GameBaseURL string
	GamePushURL string

	PlayerID  string
	AuthToken string

	RedisURL    string
	DatabaseURL string

	MoveTimeout        time.Duration
	JoinTimeout        time.Duration
	PushMaxReconnects  int
	PushReconnectDelay time.Duration

	MessagesDir string
	SnapshotDir string
}

// Load reads the environment after applying an optional .env file.
func Load() (*AppConfig, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file. A missing file is not an error;
// variables already set in the environment win over the file.
func LoadFile(envFile string) (*AppConfig, error) {
	if envFile = strings.TrimSpace(envFile); envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	cfg := &AppConfig{
		MoveTimeout:        15 * time.Second,
		JoinTimeout:        10 * time.Second,
		PushMaxReconnects:  5,
		PushReconnectDelay: time.Second,
	}

	cfg.GameBaseURL = strings.TrimSpace(os.Getenv("GAME_BASE_URL"))
	cfg.GamePushURL = strings.TrimSpace(os.Getenv("GAME_PUSH_URL"))
	cfg.PlayerID = strings.TrimSpace(os.Getenv("PLAYER_ID"))
	cfg.AuthToken = strings.TrimSpace(os.Getenv("AUTH_TOKEN"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	// 0 disables the move deadline
	if d, ok := millisEnv("MOVE_TIMEOUT_MS", true); ok {
		cfg.MoveTimeout = d
	}
	if d, ok := millisEnv("JOIN_TIMEOUT_MS", false); ok {
		cfg.JoinTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("PUSH_MAX_RECONNECTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PushMaxReconnects = n
		}
	}
	if d, ok := millisEnv("PUSH_RECONNECT_DELAY_MS", false); ok {
		cfg.PushReconnectDelay = d
	}

	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.SnapshotDir = strings.TrimSpace(os.Getenv("SNAPSHOT_DIR"))

	if cfg.GameBaseURL == "" {
		return nil, errors.New("GAME_BASE_URL is required")
	}
	if cfg.GamePushURL == "" {
		return nil, errors.New("GAME_PUSH_URL is required")
	}
	if cfg.PlayerID == "" {
		return nil, errors.New("PLAYER_ID is required")
	}

	return cfg, nil
}

func millisEnv(key string, allowZero bool) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}
