package logger

import (
	"testing"

	"github.com/jengzang/resilient-routing/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	dev := New(&config.Config{Environment: "development"})
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
	dev.Sync()

	prod := New(&config.Config{Environment: "production"})
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, prod.Core().Enabled(zapcore.InfoLevel))
	prod.Sync()
}
