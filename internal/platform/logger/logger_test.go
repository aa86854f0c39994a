package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelsArePrefixed(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(&buf)

	log.Info("hello")
	log.Warnf("slow step %dms", 12)
	log.Error("boom")
	log.Event("RUN_STARTED", "abc", "3x3x3")

	out := buf.String()
	for _, want := range []string{
		"[AUTOMATA-INFO] ", "hello",
		"[AUTOMATA-WARN] ", "slow step 12ms",
		"[AUTOMATA-ERROR] ", "boom",
		"[EVENT:RUN_STARTED] Run:abc | 3x3x3",
		"logger_test.go",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}
