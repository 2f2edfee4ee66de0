package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewZapLoggerLevels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"DEBUG": zapcore.DebugLevel,
	}
	for level, want := range cases {
		z, err := NewZapLogger(level)
		if err != nil {
			t.Fatalf("%q: %v", level, err)
		}
		if !z.Core().Enabled(want) {
			t.Fatalf("%q: expected %s enabled", level, want)
		}
		if want > zapcore.DebugLevel && z.Core().Enabled(want-1) {
			t.Fatalf("%q: expected %s disabled", level, want-1)
		}
	}
}

func TestNewZapLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewZapLogger("chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestStdLoggerWritesThroughZap(t *testing.T) {
	if StdLogger(zap.NewNop(), "gorm") == nil {
		t.Fatal("expected std logger")
	}
}
