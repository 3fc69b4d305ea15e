package obslog

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "famhub.log")
	l, err := Build(Options{Level: "info", Format: "json", ToFile: true, FilePath: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Info("hello", zap.String("k", "v"))
	_ = l.Sync()
}

func TestSetNilFallsBackToNop(t *testing.T) {
	Set(nil)
	if L() == nil {
		t.Fatalf("expected non-nil logger")
	}
	Named("calls").Info("ignored")
}
