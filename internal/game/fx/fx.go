// Package fx carries fire-and-forget visual-effect notifications to a renderer.
// Nothing in fx is ever read back into game state.
package fx

import (
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Effect kinds emitted by the engine.
const (
	KindSlash      = "slash"
	KindProjectile = "projectile"
	KindExplosion  = "explosion"
	KindDeath      = "death"
	KindHeal       = "heal"
	KindSummon     = "summon"
)

// Sink receives visual-effect requests.
type Sink interface {
	CreateEffect(kind, element string, params map[string]any)
}

// Effect is one recorded request.
type Effect struct {
	Kind    string
	Element string
	Params  map[string]any
}

// Nop drops every effect.
type Nop struct{}

// CreateEffect implements Sink.
func (Nop) CreateEffect(string, string, map[string]any) {}

// Recorder keeps every effect it receives.
// All methods are safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	effects []Effect
}

// CreateEffect implements Sink.
func (r *Recorder) CreateEffect(kind, element string, params map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, Effect{Kind: kind, Element: element, Params: maps.Clone(params)})
}

// Effects returns a copy of the recorded effects.
func (r *Recorder) Effects() []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Effect(nil), r.effects...)
}

// Len returns the number of recorded effects.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.effects)
}

// Delayed forwards each effect to Next after Delay on a timer goroutine.
// CreateEffect never blocks and never waits for delivery.
type Delayed struct {
	Next  Sink
	Delay time.Duration
}

// CreateEffect implements Sink. params is copied before scheduling.
func (d Delayed) CreateEffect(kind, element string, params map[string]any) {
	if d.Next == nil {
		return
	}
	p := maps.Clone(params)
	if d.Delay <= 0 {
		go d.Next.CreateEffect(kind, element, p)
		return
	}
	time.AfterFunc(d.Delay, func() { d.Next.CreateEffect(kind, element, p) })
}

// Logger writes each effect to a zap logger at debug level.
type Logger struct {
	L *zap.Logger
}

// CreateEffect implements Sink.
func (l Logger) CreateEffect(kind, element string, params map[string]any) {
	if l.L == nil {
		return
	}
	l.L.Debug("effect", zap.String("kind", kind), zap.String("element", element), zap.Any("params", params))
}
