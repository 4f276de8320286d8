package goSession

import (
	"context"
	"io"

	"github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one session lifecycle record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = audit.Sink

// NoOpSink drops events.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// Audit event types.
const (
	AuditBootstrap     = audit.TypeBootstrap
	AuditLoginSuccess  = audit.TypeLoginSuccess
	AuditLoginRejected = audit.TypeLoginRejected
	AuditLogout        = audit.TypeLogout
	AuditForcedLogout  = audit.TypeForcedLogout
	AuditExpired       = audit.TypeExpired
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func (s *Store) emitAudit(ctx context.Context, event AuditEvent) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, event)
}
