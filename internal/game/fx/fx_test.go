package fx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/crawl/internal/game/fx"
)

func TestRecorder_CopiesParams(t *testing.T) {
	var r fx.Recorder
	params := map[string]any{"x": 1}
	r.CreateEffect(fx.KindSlash, "", params)
	params["x"] = 99
	require.Equal(t, 1, r.Len())
	assert.Equal(t, 1, r.Effects()[0].Params["x"])
}

// TestDelayed_DoesNotBlock verifies the caller returns before delivery.
func TestDelayed_DoesNotBlock(t *testing.T) {
	rec := &fx.Recorder{}
	d := fx.Delayed{Next: rec, Delay: 50 * time.Millisecond}
	d.CreateEffect(fx.KindExplosion, "fire", map[string]any{"radius": 2})
	assert.Equal(t, 0, rec.Len())
	require.Eventually(t, func() bool { return rec.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "fire", rec.Effects()[0].Element)
}

func TestDelayed_ZeroDelayStillAsync(t *testing.T) {
	rec := &fx.Recorder{}
	fx.Delayed{Next: rec}.CreateEffect(fx.KindHeal, "", nil)
	require.Eventually(t, func() bool { return rec.Len() == 1 }, time.Second, 5*time.Millisecond)
	fx.Delayed{}.CreateEffect(fx.KindHeal, "", nil)
}

func TestLogger_WritesDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fx.Logger{L: zap.New(core)}.CreateEffect(fx.KindDeath, "", map[string]any{"actor": "rat"})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "death", logs.All()[0].ContextMap()["kind"])
	fx.Nop{}.CreateEffect(fx.KindDeath, "", nil)
}
