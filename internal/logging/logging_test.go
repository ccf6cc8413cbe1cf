package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		format string
		debug  bool
		want   zapcore.Level
	}{
		{"json", false, zapcore.InfoLevel},
		{"console", false, zapcore.InfoLevel},
		{"console", true, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		logger, err := New(tt.format, tt.debug)
		if err != nil {
			t.Fatalf("New(%q, %v): %v", tt.format, tt.debug, err)
		}
		if !logger.Core().Enabled(tt.want) {
			t.Fatalf("New(%q, %v): level %v not enabled", tt.format, tt.debug, tt.want)
		}
		if tt.want == zapcore.InfoLevel && logger.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("New(%q, %v): debug unexpectedly enabled", tt.format, tt.debug)
		}
	}
}
