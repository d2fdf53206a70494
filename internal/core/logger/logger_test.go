package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, done := New("nonsense", true)
	defer done()
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewWithRotate_WritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "api.log")
	l, done := NewWithRotate("debug", true, FileRotate{Enable: true, Filename: file, MaxSizeMB: 1})
	l.Info("sweep finished", zap.Int64("count", 3))
	done()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"sweep finished"`)
	assert.Contains(t, string(b), `"count":3`)
}

func TestToStdLogger(t *testing.T) {
	l, done := New("info", true)
	defer done()
	std := ToStdLogger(l, zapcore.WarnLevel)
	require.NotNil(t, std)
	std.Printf("slow query %d ms", 250)
}
