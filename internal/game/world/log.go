package world

import (
	"strings"
	"sync"
)

// Severity classifies a log message for presentation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityCombat  Severity = "combat"
	SeverityMagic   Severity = "magic"
	SeverityDeath   Severity = "death"
	SeverityWarning Severity = "warning"
)

// MessageLog receives player-facing messages.
type MessageLog interface {
	AddMessage(text string, severity Severity)
}

// Message is one recorded log line.
type Message struct {
	Text     string
	Severity Severity
}

// BufferLog is an in-memory MessageLog.
// All methods are safe for concurrent use.
type BufferLog struct {
	mu       sync.Mutex
	messages []Message
}

// NewBufferLog returns an empty BufferLog.
func NewBufferLog() *BufferLog {
	return &BufferLog{}
}

// AddMessage implements MessageLog.
func (b *BufferLog) AddMessage(text string, severity Severity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, Message{Text: text, Severity: severity})
}

// Messages returns a copy of every recorded message.
func (b *BufferLog) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.messages...)
}

// Contains reports whether any message text contains substr.
func (b *BufferLog) Contains(substr string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.messages {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// Reset discards all recorded messages.
func (b *BufferLog) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
}

type discardLog struct{}

func (discardLog) AddMessage(string, Severity) {}

// Discard is a MessageLog that drops every message.
var Discard MessageLog = discardLog{}
