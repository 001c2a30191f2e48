package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("aggregator").Info(context.Background(), "event emitted", String("type", "NO_FACE_10S"), Int("seq", 3))

	out := buf.String()
	for _, want := range []string{"event emitted", "component=aggregator", "type=NO_FACE_10S", "seq=3", "source=logger_test.go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer SetLevel(0)

	ctx := context.Background()
	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug output written at info level: %q", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Get().Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug output missing: %q", buf.String())
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "proctor.log")
	if err := Init(WithWriter(&bytes.Buffer{}), WithFile(path), WithJSON()); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Warn(context.Background(), "detector timeout", String("source_name", "faces"))
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"detector timeout"`) {
		t.Fatalf("log file missing entry: %s", data)
	}
}
