package responses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerLevel(t *testing.T) {
	InitLogger("debug")
	assert.True(t, Logger().Core().Enabled(zapcore.DebugLevel))

	InitLogger("warn")
	assert.False(t, Logger().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger().Core().Enabled(zapcore.WarnLevel))
}

func TestInitLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	InitLogger("nonsense")
	assert.True(t, Logger().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Logger().Core().Enabled(zapcore.DebugLevel))
}
