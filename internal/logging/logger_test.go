package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/i474232898/weather-cycle-dashboard/internal/config"
)

func TestProdLoggerWritesTaggedJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, &config.AppConfig{AppEnv: "prod", LogLevel: slog.LevelInfo}, "dashboard")

	log.Debug("dropped")
	log.Info("fetched", "city", "Dublin")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]string{"app": "dashboard", "env": "prod", "msg": "fetched", "city": "Dublin"} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %q", key, rec[key], want)
		}
	}
	if ts, _ := rec["time"].(string); !strings.HasSuffix(ts, "Z") {
		t.Errorf("time %q is not UTC", ts)
	}
}

func TestDevLoggerWritesConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, &config.AppConfig{AppEnv: "dev", LogLevel: slog.LevelDebug}, "dashboard")

	log.Debug("cache miss", "city", "Cork")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Fatalf("dev output is JSON: %q", out)
	}
	for _, want := range []string{"cache miss", "Cork", "dashboard", "logger_test.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
