package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GAME_BASE_URL", "http://game.local")
	t.Setenv("GAME_PUSH_URL", "ws://game.local/ws")
	t.Setenv("PLAYER_ID", "p1")
}

func TestDefaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"MOVE_TIMEOUT_MS", "JOIN_TIMEOUT_MS", "PUSH_MAX_RECONNECTS", "PUSH_RECONNECT_DELAY_MS"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.MoveTimeout != 15*time.Second || cfg.JoinTimeout != 10*time.Second {
		t.Fatalf("unexpected timeouts %v %v", cfg.MoveTimeout, cfg.JoinTimeout)
	}
	if cfg.PushMaxReconnects != 5 || cfg.PushReconnectDelay != time.Second {
		t.Fatalf("unexpected push settings %+v", cfg)
	}
}

func TestOverridesAndZeroMoveTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("MOVE_TIMEOUT_MS", "0")
	t.Setenv("JOIN_TIMEOUT_MS", "0")
	t.Setenv("PUSH_MAX_RECONNECTS", "2")
	t.Setenv("PUSH_RECONNECT_DELAY_MS", "250")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.MoveTimeout != 0 {
		t.Fatalf("MOVE_TIMEOUT_MS=0 should disable the deadline")
	}
	if cfg.JoinTimeout != 10*time.Second {
		t.Fatalf("zero join timeout should keep the default")
	}
	if cfg.PushMaxReconnects != 2 || cfg.PushReconnectDelay != 250*time.Millisecond {
		t.Fatalf("unexpected push settings %+v", cfg)
	}
}

func TestRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("PLAYER_ID", "")
	if _, err := LoadFile(""); err == nil {
		t.Fatalf("expected error without PLAYER_ID")
	}
}

func TestEnvFile(t *testing.T) {
	t.Setenv("GAME_BASE_URL", "")
	t.Setenv("GAME_PUSH_URL", "ws://from-env/ws")
	t.Setenv("PLAYER_ID", "")
	path := filepath.Join(t.TempDir(), "test.env")
	body := "GAME_BASE_URL=http://from-file\nGAME_PUSH_URL=ws://from-file/ws\nPLAYER_ID=file-player\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	// t.Setenv to "" counts as set, so godotenv leaves those alone; clear them.
	os.Unsetenv("GAME_BASE_URL")
	os.Unsetenv("PLAYER_ID")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.GameBaseURL != "http://from-file" || cfg.PlayerID != "file-player" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.GamePushURL != "ws://from-env/ws" {
		t.Fatalf("environment should win over the file, got %q", cfg.GamePushURL)
	}
}
