package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/crawl/internal/game/world"
)

var _ world.MessageLog = (*MessageSink)(nil)

func TestMessageSink_LevelsBySeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewMessageSink(zap.New(core))

	sink.AddMessage("The orc hits you for 4 damage.", world.SeverityCombat)
	sink.AddMessage("You feel a chill.", world.SeverityWarning)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "The orc hits you for 4 damage.", entries[0].Message)
	assert.Equal(t, "combat", entries[0].ContextMap()["severity"])
	assert.Equal(t, "messages", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestMessageSink_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMessageSink(nil).AddMessage("quiet", world.SeverityInfo)
	})
}

func TestTee_FansOut(t *testing.T) {
	a, b := world.NewBufferLog(), world.NewBufferLog()
	Tee{a, nil, b}.AddMessage("hello", world.SeverityInfo)
	assert.True(t, a.Contains("hello"))
	assert.True(t, b.Contains("hello"))
}
