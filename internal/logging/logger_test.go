package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"quiet", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "info", Format: "json", Output: &buf})

	logger.Debug().Msg("hidden")
	WithLibrary(logger, "group 1").Info().Int("items", 3).Msg("reading items")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1:\n%s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "reading items" || entry["library"] != "group 1" || entry["items"] != float64(3) {
		t.Errorf("log entry = %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Errorf("log entry missing timestamp: %v", entry)
	}
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLoggingConfig()
	cfg.Output = &buf
	logger := NewLogger(cfg)

	logger.Warn().Str("key", "smith_x_2020").Msg("unparseable date")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("console output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "unparseable date") || !strings.Contains(out, "smith_x_2020") {
		t.Errorf("console output = %q", out)
	}
}

func TestNewLogger_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "quiet", Format: "json", Output: &buf})
	logger.Error().Msg("nope")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
}
