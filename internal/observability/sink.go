package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/crawl/internal/game/world"
)

// MessageSink writes player-facing messages to a zap logger. Warnings are
// logged at warn level, everything else at info.
type MessageSink struct {
	logger *zap.Logger
}

// NewMessageSink returns a sink over logger. A nil logger drops every message.
func NewMessageSink(logger *zap.Logger) *MessageSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageSink{logger: logger.Named("messages")}
}

// AddMessage implements world.MessageLog.
func (s *MessageSink) AddMessage(text string, severity world.Severity) {
	level := zapcore.InfoLevel
	if severity == world.SeverityWarning {
		level = zapcore.WarnLevel
	}
	s.logger.Log(level, text, zap.String("severity", string(severity)))
}

// Tee fans messages out to every non-nil log.
type Tee []world.MessageLog

// AddMessage implements world.MessageLog.
func (t Tee) AddMessage(text string, severity world.Severity) {
	for _, l := range t {
		if l != nil {
			l.AddMessage(text, severity)
		}
	}
}
