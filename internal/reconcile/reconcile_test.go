package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sergeyvolkov/chatflow/internal/feed"
	"github.com/sergeyvolkov/chatflow/internal/message"
	"github.com/sergeyvolkov/chatflow/internal/reconcile"
	"github.com/sergeyvolkov/chatflow/internal/store"
)

const partner = "p1"

func newReconciler(t *testing.T) (*reconcile.Reconciler, *store.Store) {
	t.Helper()
	s := store.New()
	return reconcile.New(s, partner, nil, zap.NewNop()), s
}

func event(kind feed.EventKind, msg *message.Message) feed.Event {
	return feed.Event{Kind: kind, PartnerID: partner, Message: msg}
}

func TestNewEventInsertsAndScrolls(t *testing.T) {
	r, s := newReconciler(t)

	outcome := r.Apply(event(feed.EventNew, &message.Message{ID: "m1", Body: "hi"}))

	assert.True(t, outcome.Mutated)
	assert.True(t, outcome.ScrollToLatest)
	assert.Equal(t, 1, s.Len())
}

func TestDuplicateNewIsIdempotentReplace(t *testing.T) {
	r, s := newReconciler(t)

	r.Apply(event(feed.EventNew, &message.Message{ID: "m1", Body: "first"}))
	r.Apply(event(feed.EventNew, &message.Message{ID: "m1", Body: "second"}))

	require.Equal(t, 1, s.Len())
	got, _ := s.Find("m1")
	assert.Equal(t, "second", got.Body)
}

func TestOtherPartnerEventsAreDiscarded(t *testing.T) {
	r, s := newReconciler(t)

	outcome := r.Apply(feed.Event{
		Kind:      feed.EventNew,
		PartnerID: "someone-else",
		Message:   &message.Message{ID: "m1"},
	})

	assert.False(t, outcome.Mutated)
	assert.Equal(t, 0, s.Len())
}

func TestStatusEvent(t *testing.T) {
	r, s := newReconciler(t)
	r.Apply(event(feed.EventNew, &message.Message{ID: "m1", Status: message.StatusSent}))

	outcome := r.Apply(event(feed.EventStatus, &message.Message{ID: "m1", Status: message.StatusDelivered}))
	assert.True(t, outcome.Mutated)

	got, _ := s.Find("m1")
	assert.Equal(t, message.StatusDelivered, got.Status)
}

func TestStatusEventBeforeOptimisticRecordIsNoOp(t *testing.T) {
	r, s := newReconciler(t)

	outcome := r.Apply(event(feed.EventStatus, &message.Message{ID: "ghost", Status: message.StatusSent}))

	assert.False(t, outcome.Mutated)
	assert.Equal(t, 0, s.Len())
}

func TestReactEventUpdatesReactionAndInteraction(t *testing.T) {
	r, s := newReconciler(t)
	r.Apply(event(feed.EventNew, &message.Message{ID: "m1", Direction: message.DirectionInbound}))

	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	outcome := r.Apply(event(feed.EventReact, &message.Message{
		ID:                "m1",
		Reaction:          "|🔥",
		LastInteractionAt: &ts,
	}))

	assert.True(t, outcome.Mutated)
	got, _ := s.Find("m1")
	assert.Equal(t, "|🔥", got.Reaction)
	require.NotNil(t, got.LastInteractionAt)
	assert.Equal(t, ts, *got.LastInteractionAt)
}

func TestUpdateEventTouchesContentOnly(t *testing.T) {
	r, s := newReconciler(t)
	r.Apply(event(feed.EventNew, &message.Message{ID: "m1", Body: "before", Status: message.StatusSeen}))

	outcome := r.Apply(event(feed.EventUpdate, &message.Message{ID: "m1", Body: "after"}))

	assert.True(t, outcome.Mutated)
	got, _ := s.Find("m1")
	assert.Equal(t, "after", got.Body)
	assert.Equal(t, message.StatusSeen, got.Status)
}

func TestDeleteEvent(t *testing.T) {
	r, s := newReconciler(t)
	r.Apply(event(feed.EventNew, &message.Message{ID: "m1"}))

	outcome := r.Apply(event(feed.EventDelete, &message.Message{ID: "m1"}))
	assert.True(t, outcome.Mutated)
	assert.Equal(t, 0, s.Len())

	// deleting again is absorbed
	outcome = r.Apply(event(feed.EventDelete, &message.Message{ID: "m1"}))
	assert.False(t, outcome.Mutated)
}

func TestAbsentIDEventsLeaveStoreUnchanged(t *testing.T) {
	r, s := newReconciler(t)
	r.Apply(event(feed.EventNew, &message.Message{ID: "m1", Body: "keep"}))

	for _, kind := range []feed.EventKind{feed.EventStatus, feed.EventReact, feed.EventUpdate} {
		outcome := r.Apply(event(kind, &message.Message{ID: "ghost", Body: "x", Status: message.StatusSent}))
		assert.False(t, outcome.Mutated, string(kind))
	}

	require.Equal(t, 1, s.Len())
	got, _ := s.Find("m1")
	assert.Equal(t, "keep", got.Body)
}

func TestEventSequenceNeverDuplicatesIDs(t *testing.T) {
	r, s := newReconciler(t)

	seq := []feed.Event{
		event(feed.EventNew, &message.Message{ID: "a", Body: "1"}),
		event(feed.EventNew, &message.Message{ID: "b", Body: "2"}),
		event(feed.EventStatus, &message.Message{ID: "a", Status: message.StatusSent}),
		event(feed.EventNew, &message.Message{ID: "a", Body: "1-again"}),
		event(feed.EventReact, &message.Message{ID: "b", Reaction: "|👍"}),
		event(feed.EventDelete, &message.Message{ID: "b"}),
		event(feed.EventNew, &message.Message{ID: "b", Body: "2-again"}),
	}
	for _, ev := range seq {
		r.Apply(ev)
	}

	seen := make(map[string]bool)
	for _, m := range s.All() {
		require.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
	assert.Equal(t, 2, s.Len())
}
