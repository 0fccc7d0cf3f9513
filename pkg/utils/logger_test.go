package utils

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantDebug bool
	}{
		{"development", true, true},
		{"production", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.debug)
			if err != nil {
				t.Fatalf("NewLogger(%v) error: %v", tt.debug, err)
			}
			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if !logger.Core().Enabled(zapcore.InfoLevel) {
				t.Error("info level disabled")
			}

			core, logs := observer.New(zapcore.DebugLevel)
			tagged, err := NewLogger(tt.debug, zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))
			if err != nil {
				t.Fatal(err)
			}
			tagged.Info("started", zap.Int("port", 5000))
			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["service"] != ServiceName {
				t.Errorf("service = %v, want %q", fields["service"], ServiceName)
			}
			if fields["port"] != int64(5000) {
				t.Errorf("port = %v", fields["port"])
			}
		})
	}
}
