package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{" Warn ", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPackageLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		_ = SetLevel(LevelInfo)
	})

	require.NoError(t, SetLevel(LevelInfo))
	require.False(t, IsDebugEnabled())

	Debug("hidden")
	Info("cleanup finished", "removed", 3)
	Warn("slow")
	Error("failed", "key", "a")
	require.Equal(t, "cleanup finished removed=3\n[WARN] slow\n[ERROR] failed key=a\n", buf.String())

	buf.Reset()
	require.NoError(t, SetLevel(LevelDebug))
	require.True(t, IsDebugEnabled())
	Default().Debug("visible")
	require.Equal(t, "[DEBUG] visible\n", buf.String())

	require.Error(t, SetLevel("verbose"))
}

func TestHandlerAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo)).
		With("component", "janitor").
		WithGroup("store")

	logger.Info("reaped", "count", 2)
	require.Equal(t, "reaped component=janitor store.count=2\n", buf.String())
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
