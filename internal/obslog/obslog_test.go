package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "/tmp/x.log")
	o := OptionsFromEnv()
	if o.Level != "debug" || o.Format != "json" || o.Console || o.File != "/tmp/x.log" {
		t.Fatalf("unexpected options: %+v", o)
	}
}

func TestBuildWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "duel.log")
	l, err := Build(Options{Level: "info", Format: "json", File: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Info("duel_start", zap.String("game", "g1"))
	_ = l.Sync()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"msg":"duel_start"`) || !strings.Contains(string(b), `"game":"g1"`) {
		t.Fatalf("unexpected log output: %s", b)
	}
}

func TestBuildWithoutSinksIsNop(t *testing.T) {
	l, err := Build(Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if l.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected nop logger")
	}
}

func TestReplaceRestores(t *testing.T) {
	before := L()
	restore := Replace(zap.NewExample())
	if L() == before {
		t.Fatalf("Replace did not install logger")
	}
	restore()
	if L() != before {
		t.Fatalf("restore did not bring back previous logger")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARNING") != zapcore.WarnLevel || parseLevel("bogus") != zapcore.InfoLevel {
		t.Fatalf("parseLevel mismatch")
	}
}
