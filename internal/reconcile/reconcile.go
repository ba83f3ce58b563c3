// Package reconcile applies live feed events to the conversation store.
// Events are applied strictly in arrival order; the feed is at-least-once
// and racy against local optimistic state, so unknown identifiers are
// absorbed silently rather than raised.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/sergeyvolkov/chatflow/internal/feed"
	"github.com/sergeyvolkov/chatflow/internal/message"
	"github.com/sergeyvolkov/chatflow/internal/observability"
	"github.com/sergeyvolkov/chatflow/internal/store"
)

// Outcome tells the engine what a single event did to the store.
type Outcome struct {
	Mutated bool
	// ScrollToLatest is set for new messages so presentation can follow the
	// conversation tail.
	ScrollToLatest bool
}

type Reconciler struct {
	store     *store.Store
	partnerID string
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func New(st *store.Store, partnerID string, metrics *observability.Metrics, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:     st,
		partnerID: partnerID,
		metrics:   metrics,
		logger:    logger,
	}
}

// Apply dispatches one event. Events addressed to another partner are
// discarded before touching the store.
func (r *Reconciler) Apply(ev feed.Event) Outcome {
	if ev.PartnerID != r.partnerID {
		r.logger.Debug("discarding event for other partner",
			zap.String("event_partner", ev.PartnerID),
			zap.String("event_kind", string(ev.Kind)),
		)
		return Outcome{}
	}

	r.metrics.RecordEvent(string(ev.Kind))

	switch ev.Kind {
	case feed.EventNew:
		return r.applyNew(ev.Message)
	case feed.EventStatus:
		return r.applyStatus(ev.Message)
	case feed.EventReact:
		return r.applyReact(ev.Message)
	case feed.EventUpdate:
		return r.applyUpdate(ev.Message)
	case feed.EventDelete:
		return r.applyDelete(ev.Message)
	}
	return Outcome{}
}

// applyNew upserts the full incoming record. A duplicate delivery for an
// already-present identifier degrades to an idempotent replace.
func (r *Reconciler) applyNew(msg *message.Message) Outcome {
	r.store.Upsert(msg)
	r.logger.Debug("applied new message", zap.String("message_id", msg.ID))
	return Outcome{Mutated: true, ScrollToLatest: true}
}

// applyStatus updates the status field only. The event may arrive before
// the local optimistic record exists; that is a no-op, never an error.
func (r *Reconciler) applyStatus(msg *message.Message) Outcome {
	if _, ok := r.store.Find(msg.ID); !ok {
		r.logger.Debug("status event for unknown message", zap.String("message_id", msg.ID))
		return Outcome{}
	}
	changed := r.store.UpdateStatus(msg.ID, msg.Status)
	return Outcome{Mutated: changed}
}

func (r *Reconciler) applyReact(msg *message.Message) Outcome {
	existing, ok := r.store.Find(msg.ID)
	if !ok {
		r.logger.Debug("react event for unknown message", zap.String("message_id", msg.ID))
		return Outcome{}
	}
	existing.Reaction = msg.Reaction
	if msg.LastInteractionAt != nil {
		existing.LastInteractionAt = msg.LastInteractionAt
	}
	return Outcome{Mutated: true}
}

func (r *Reconciler) applyUpdate(msg *message.Message) Outcome {
	existing, ok := r.store.Find(msg.ID)
	if !ok {
		r.logger.Debug("update event for unknown message", zap.String("message_id", msg.ID))
		return Outcome{}
	}
	existing.Body = msg.Body
	return Outcome{Mutated: true}
}

func (r *Reconciler) applyDelete(msg *message.Message) Outcome {
	if _, ok := r.store.Find(msg.ID); !ok {
		return Outcome{}
	}
	r.store.Remove(msg.ID)
	r.logger.Debug("removed message", zap.String("message_id", msg.ID))
	return Outcome{Mutated: true}
}
