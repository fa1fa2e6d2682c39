package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_WritesJSONToFile(t *testing.T) {
	restore := Replace(nil)
	defer restore()

	path := filepath.Join(t.TempDir(), "nested", "relay.log")
	if err := Init(Options{Level: "debug", Format: "json", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Info("session_join", zap.String("conn_id", "c1"))
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"session_join"`) || !strings.Contains(string(raw), `"conn_id":"c1"`) {
		t.Fatalf("unexpected log content: %s", raw)
	}
}

func TestReplace_RestoresPrevious(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	L().Info("hello")
	restore()
	L().Info("dropped")
	if logs.Len() != 1 {
		t.Fatalf("want 1 entry on observed logger, got %d", logs.Len())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q): got %v want %v", in, got, want)
		}
	}
}
