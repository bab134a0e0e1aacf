package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDupHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "scan complete",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tscan complete\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "uncertain group",
			want:    "2024-06-15T14:30:45Z\tWARN\top-456\tuncertain group\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "fetched page",
			attrs:   []slog.Attr{slog.Int("page", 2), slog.Int("items", 1000), slog.Int("total", 2000)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tfetched page\tpage=2\titems=1000\ttotal=2000\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &dupHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestDupHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &dupHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*dupHandler)

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\ta=1\tcomponent=vault\tkey=abc") {
		t.Errorf("attrs out of order or missing: %q", got)
	}
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("file and console", func(t *testing.T) {
		dir := t.TempDir()
		var console bytes.Buffer

		logger, f, err := newLogger(dir, "test-op", &console)
		if err != nil {
			t.Fatalf("newLogger() error = %v", err)
		}
		defer f.Close()

		logger.Info("hello", "n", 1)

		data, err := os.ReadFile(filepath.Join(dir, LogFile))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "\ttest-op\thello\tn=1") {
			t.Errorf("log file = %q", data)
		}
		if console.String() != string(data) {
			t.Errorf("console = %q, want same line as file", console.String())
		}
	})

	t.Run("file only", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "log")
		logger, f, err := newLogger(dir, "tui", nil)
		if err != nil {
			t.Fatalf("newLogger() error = %v", err)
		}
		defer f.Close()

		logger.Warn("quiet")

		data, err := os.ReadFile(filepath.Join(dir, LogFile))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "WARN\ttui\tquiet") {
			t.Errorf("log file = %q", data)
		}
	})
}
