package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("RELAY_CONFIG")
	defer os.Setenv("RELAY_CONFIG", originalEnv)

	os.Setenv("RELAY_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidPort verifies run fails when the configured port is out of range.
func TestRun_InvalidPort(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
api:
  host: "127.0.0.1"
  port: 99999

sessions:
  auth_dir: "` + filepath.Join(tmpDir, "auth") + `"
  runner:
    binary: node
    script: ./runner/index.js

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("RELAY_CONFIG")
	defer os.Setenv("RELAY_CONFIG", originalEnv)
	os.Setenv("RELAY_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with out-of-range port")
	}
}

// TestRun_StartupAndShutdown verifies a full startup followed by a clean
// context-driven shutdown. No sessions are started, so the runner binary is
// never spawned.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
api:
  host: "127.0.0.1"
  port: 38317
  timeouts:
    read: 5
    write: 5
    idle: 5

sessions:
  auth_dir: "` + filepath.Join(tmpDir, "auth") + `"
  runner:
    binary: node
    script: ./runner/index.js

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("RELAY_CONFIG")
	defer os.Setenv("RELAY_CONFIG", originalEnv)
	os.Setenv("RELAY_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() returned error: %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("RELAY_CONFIG")
	defer os.Setenv("RELAY_CONFIG", originalEnv)

	os.Unsetenv("RELAY_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("RELAY_CONFIG")
	defer os.Setenv("RELAY_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("RELAY_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
