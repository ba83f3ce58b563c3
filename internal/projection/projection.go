// Package projection derives the read-only, date-grouped view of a
// conversation that presentation consumes. It is a pure function over a
// store snapshot and is recomputed on every mutation.
package projection

import (
	"time"

	"github.com/sergeyvolkov/chatflow/internal/message"
	"github.com/sergeyvolkov/chatflow/internal/reaction"
)

const dateLayout = "02 Jan 2006"

// DecoratedMessage is one message enriched with the presentation flags the
// raw record does not carry.
type DecoratedMessage struct {
	*message.Message
	IsTick         bool
	IsFailed       bool
	IsSending      bool
	LocalReaction  string
	RemoteReaction string
	HasReaction    bool
	// ReplyTarget is resolved best-effort; a dangling reply-to id leaves it
	// nil without failing the projection.
	ReplyTarget *message.Message
}

type Group struct {
	DateLabel string
	Messages  []DecoratedMessage
}

// View is the grouped projection. Empty is the sentinel for a conversation
// with no history yet, where the caller surfaces the initial-template
// call-to-action instead of an empty list.
type View struct {
	Groups []Group
	Empty  bool
}

type lookup interface {
	Find(id string) (*message.Message, bool)
}

// Build folds a store snapshot into date groups. Group order is first-seen
// and intra-group order preserves snapshot order.
func Build(messages []*message.Message, finder lookup, now time.Time) View {
	if len(messages) == 0 {
		return View{Empty: true}
	}

	today := truncateToDay(now)
	yesterday := today.AddDate(0, 0, -1)

	var groups []Group
	index := make(map[string]int)

	for _, m := range messages {
		dec := decorate(m, finder)
		label := dateLabel(m.CreatedAt, today, yesterday)

		i, ok := index[label]
		if !ok {
			groups = append(groups, Group{DateLabel: label})
			i = len(groups) - 1
			index[label] = i
		}
		groups[i].Messages = append(groups[i].Messages, dec)
	}

	return View{Groups: groups}
}

func decorate(m *message.Message, finder lookup) DecoratedMessage {
	dec := DecoratedMessage{Message: m}

	// Status decorations belong to the sender's copy only; inbound records
	// never show spinners or ticks.
	if !m.IsInbound() {
		dec.IsFailed = m.Status == message.StatusFailed
		dec.IsSending = m.Status == message.StatusUnset || m.Status == message.StatusSending
		switch m.Status {
		case message.StatusSent, message.StatusDelivered, message.StatusSeen:
			dec.IsTick = true
		}
	}

	r := reaction.Parse(m.Reaction)
	dec.LocalReaction = r.Local
	dec.RemoteReaction = r.Remote
	dec.HasReaction = r.HasAny()

	if m.ReplyToID != nil && finder != nil {
		if target, ok := finder.Find(*m.ReplyToID); ok {
			dec.ReplyTarget = target
		}
	}

	return dec
}

func dateLabel(createdAt, today, yesterday time.Time) string {
	day := truncateToDay(createdAt.In(today.Location()))
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(yesterday):
		return "Yesterday"
	default:
		return day.Format(dateLayout)
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
