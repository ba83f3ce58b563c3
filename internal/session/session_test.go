package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sergeyvolkov/chatflow/internal/message"
	"github.com/sergeyvolkov/chatflow/internal/session"
)

func inboundAt(ts time.Time) *message.Message {
	return &message.Message{
		ID:                ts.String(),
		Direction:         message.DirectionInbound,
		LastInteractionAt: &ts,
	}
}

func TestIsOpenBoundaries(t *testing.T) {
	last := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	messages := []*message.Message{inboundAt(last)}

	tests := []struct {
		name string
		now  time.Time
		open bool
	}{
		{name: "one minute before the window closes", now: last.Add(23*time.Hour + 59*time.Minute), open: true},
		{name: "exactly 24 hours", now: last.Add(24 * time.Hour), open: true},
		{name: "one minute past the window", now: last.Add(24*time.Hour + 1*time.Minute), open: false},
		{name: "thirty hours later", now: last.Add(30 * time.Hour), open: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.open, session.IsOpen(messages, tt.now, 24))
		})
	}
}

func TestIsOpenNoInboundMessages(t *testing.T) {
	now := time.Now()
	assert.False(t, session.IsOpen(nil, now, 24))

	// outbound-only history never opens the window
	outbound := []*message.Message{{ID: "a", Direction: message.DirectionOutbound}}
	assert.False(t, session.IsOpen(outbound, now, 24))

	// inbound without an interaction timestamp does not count either
	inbound := []*message.Message{{ID: "b", Direction: message.DirectionInbound}}
	assert.False(t, session.IsOpen(inbound, now, 24))
}

func TestIsOpenPicksNewestInteraction(t *testing.T) {
	old := time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC)
	recent := old.Add(40 * time.Hour)
	messages := []*message.Message{inboundAt(old), inboundAt(recent)}

	assert.True(t, session.IsOpen(messages, recent.Add(2*time.Hour), 24))
	assert.False(t, session.IsOpen(messages, recent.Add(25*time.Hour), 24))
}

func TestAllowsKind(t *testing.T) {
	assert.True(t, session.AllowsKind(true, message.KindText))
	assert.True(t, session.AllowsKind(true, message.KindImage))
	assert.True(t, session.AllowsKind(false, message.KindTemplate))
	assert.False(t, session.AllowsKind(false, message.KindText))
	assert.False(t, session.AllowsKind(false, message.KindImage))
}
