package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_NonTerminalWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Warn("checksum verification skipped", "version", "0.14.1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not a single JSON record: %v\n%s", err, buf.String())
	}
	if record["msg"] != "checksum verification skipped" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["version"] != "0.14.1" {
		t.Errorf("version = %v", record["version"])
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}

	var l Logger = slog.Default()
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}

	// Must not panic.
	Nop().Error("ignored", "k", "v")
}

type captureLogger struct {
	noopLogger
	args []any
}

func (c *captureLogger) Info(_ string, kv ...any) { c.args = kv }

func TestWith(t *testing.T) {
	t.Run("slog", func(t *testing.T) {
		var buf bytes.Buffer
		With(New(&buf, slog.LevelInfo), "op", "abc").Info("installed")

		var record map[string]any
		if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatal(err)
		}
		if record["op"] != "abc" {
			t.Errorf("op = %v", record["op"])
		}
	})

	t.Run("custom_logger", func(t *testing.T) {
		c := &captureLogger{}
		With(c, "op", "abc").Info("installed", "version", "0.14.1")
		want := []any{"op", "abc", "version", "0.14.1"}
		if len(c.args) != len(want) {
			t.Fatalf("args = %v", c.args)
		}
		for i := range want {
			if c.args[i] != want[i] {
				t.Errorf("args[%d] = %v, want %v", i, c.args[i], want[i])
			}
		}
	})

	t.Run("nil", func(t *testing.T) {
		With(nil, "op", "abc").Info("ignored")
	})
}
