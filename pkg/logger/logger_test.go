package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_TextFormatWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "text", Output: &buf})

	log.Info("started", "port", 4001)

	// tint colours attribute keys, closing the colour right after "=".
	out := buf.String()
	if !strings.Contains(out, "started") || !strings.Contains(out, "port=\x1b[0m4001") {
		t.Fatalf("expected message and field in output, got: %s", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info("hello")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Fatalf("expected JSON msg field, got: %s", out)
	}
}

func TestNew_LevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Info("should not appear")
	log.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("expected info to be filtered out, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("expected warn to be logged, got: %s", out)
	}
}

func TestWithComponent_AddsField(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: "info", Format: "json", Output: &buf})
	comp := WithComponent(base, "NXDN")

	comp.Info("admitted")

	out := buf.String()
	if !strings.Contains(out, `"component":"NXDN"`) {
		t.Fatalf("expected component field in output, got: %s", out)
	}
}

func TestWithComponent_NilLoggerFallsBackToDefault(t *testing.T) {
	comp := WithComponent(nil, "test")
	if comp == nil {
		t.Fatal("expected non-nil logger")
	}
}
