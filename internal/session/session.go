// Package session implements the provider's customer-service window rule:
// free-form outbound messages are allowed only within a fixed number of
// hours after the partner's most recent inbound interaction.
package session

import (
	"time"

	"github.com/sergeyvolkov/chatflow/internal/message"
)

const DefaultWindowHours = 24

// LastInboundInteraction returns the newest inbound interaction timestamp,
// or false when no inbound message carries one.
func LastInboundInteraction(messages []*message.Message) (time.Time, bool) {
	var newest time.Time
	found := false
	for _, m := range messages {
		if !m.IsInbound() || m.LastInteractionAt == nil {
			continue
		}
		if !found || m.LastInteractionAt.After(newest) {
			newest = *m.LastInteractionAt
			found = true
		}
	}
	return newest, found
}

// IsOpen reports whether the window is open at now. With no inbound
// interaction on record the window is closed. The caller must re-evaluate
// before every send attempt; wall-clock time moves independently of store
// mutations, so the result must never be cached.
func IsOpen(messages []*message.Message, now time.Time, windowHours int) bool {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}
	newest, found := LastInboundInteraction(messages)
	if !found {
		return false
	}
	elapsed := now.Sub(newest).Hours()
	return elapsed <= float64(windowHours)
}

// AllowsKind reports whether the window state permits sending the given
// message kind. Template sends are allowed regardless of the window.
func AllowsKind(open bool, kind message.Kind) bool {
	if kind == message.KindTemplate {
		return true
	}
	return open
}
