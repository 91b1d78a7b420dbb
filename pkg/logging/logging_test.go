package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("purchase rejected", "reason", "not_a_member")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "purchase rejected") || !strings.Contains(out, "reason=not_a_member") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no color codes for non-terminal writer: %q", out)
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing to see")
}
