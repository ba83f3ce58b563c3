// Package outbound drives the send pipeline: session-window gate, draft
// validation, optimistic local commit, provider payload composition,
// rate-limited submission and result reconciliation. A failed submission
// never rolls the optimistic record back; it stays visible, marked failed.
package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sergeyvolkov/chatflow/internal/backend"
	"github.com/sergeyvolkov/chatflow/internal/common/errors"
	"github.com/sergeyvolkov/chatflow/internal/message"
	"github.com/sergeyvolkov/chatflow/internal/observability"
	"github.com/sergeyvolkov/chatflow/internal/provider"
	"github.com/sergeyvolkov/chatflow/internal/reaction"
	"github.com/sergeyvolkov/chatflow/internal/session"
	"github.com/sergeyvolkov/chatflow/internal/store"
)

// Backend is the slice of the service boundary the pipeline needs.
type Backend interface {
	CreateMessageRecord(ctx context.Context, partnerID string, msg *message.Message) (*message.Message, error)
	SubmitProviderMessage(ctx context.Context, payload provider.Payload, messageID string, isReaction bool, reactionValue string) (*backend.SubmitResult, error)
}

// Result reports a completed send. ClearDraft tells the caller to reset the
// compose box and reply-target state; it is set for successful text and
// image sends only.
type Result struct {
	Message    *message.Message
	ClearDraft bool
}

type Pipeline struct {
	backend     Backend
	store       *store.Store
	builder     *provider.Builder
	partnerID   string
	windowHours int
	limiter     *rate.Limiter
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func New(b Backend, st *store.Store, builder *provider.Builder, partnerID string, windowHours int, limiter *rate.Limiter, metrics *observability.Metrics, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		backend:     b,
		store:       st,
		builder:     builder,
		partnerID:   partnerID,
		windowHours: windowHours,
		limiter:     limiter,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock overrides the pipeline's clock, used by tests to pin the session
// window.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Submit runs the full pipeline for a text, image or template draft.
func (p *Pipeline) Submit(ctx context.Context, draft message.Draft) (*Result, error) {
	// The window is recomputed on every attempt; wall-clock time advances
	// independently of store mutations.
	open := session.IsOpen(p.store.All(), p.now(), p.windowHours)
	if !session.AllowsKind(open, draft.Kind) {
		p.metrics.RecordSend(string(draft.Kind), "policy_rejected", 0)
		return nil, errors.PolicyViolation("the 24-hour session window is closed, only template messages can be sent")
	}

	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	committed, err := p.commitLocal(ctx, draft)
	if err != nil {
		p.metrics.RecordSend(string(draft.Kind), "commit_failed", 0)
		return nil, err
	}

	payload, err := p.compose(draft)
	if err != nil {
		// Validation covered everything composition checks; reaching this
		// still must not strand a silent record.
		p.store.UpdateStatus(committed.ID, message.StatusFailed)
		return nil, err
	}

	if err := p.submitRemote(ctx, committed, payload, string(draft.Kind), false, ""); err != nil {
		return nil, err
	}

	clearDraft := draft.Kind == message.KindText || draft.Kind == message.KindImage
	return &Result{Message: committed, ClearDraft: clearDraft}, nil
}

// SetReaction replaces the local half of the target's reaction and drives a
// reaction send keyed to the target's provider id. The store is updated
// before the remote call and kept as-is if the call fails.
func (p *Pipeline) SetReaction(ctx context.Context, targetID, glyph string) error {
	target, ok := p.store.Find(targetID)
	if !ok {
		return errors.NotFound("message is no longer in this conversation")
	}

	packed := reaction.SetLocal(target.Reaction, glyph)
	target.Reaction = packed

	if !target.HasProviderID() {
		// Nothing to address the provider send to yet; the optimistic local
		// reaction stands on its own.
		p.logger.Debug("reaction target has no provider id, keeping local only",
			zap.String("message_id", targetID))
		return nil
	}

	payload, err := p.builder.Reaction(*target.ProviderMessageID, glyph)
	if err != nil {
		return err
	}

	return p.submitRemote(ctx, target, payload, "reaction", true, packed)
}

// ClearReaction empties the local half, preserving the partner's reaction.
func (p *Pipeline) ClearReaction(ctx context.Context, targetID string) error {
	return p.SetReaction(ctx, targetID, "")
}

func validateDraft(draft message.Draft) error {
	switch draft.Kind {
	case message.KindText:
		if draft.Body == "" {
			return errors.Validation("message text is empty")
		}
	case message.KindImage:
		if draft.MediaHandle == "" {
			return errors.Validation("image has not finished uploading")
		}
	case message.KindTemplate:
		if draft.Template == nil || draft.Template.Name == "" {
			return errors.Validation("template name is required")
		}
		if draft.Template.LanguageCode == "" {
			return errors.Validation("template language code is required")
		}
	default:
		return errors.Validation("unsupported message kind")
	}
	return nil
}

// commitLocal creates the backend record and inserts it into the store with
// status sending, before any provider traffic.
func (p *Pipeline) commitLocal(ctx context.Context, draft message.Draft) (*message.Message, error) {
	local := &message.Message{
		ID:        uuid.New().String(),
		Direction: message.DirectionOutbound,
		Kind:      draft.Kind,
		Body:      draft.Body,
		MediaLink: draft.MediaHandle,
		Status:    message.StatusSending,
		CreatedAt: p.now(),
		ReplyToID: draft.ReplyToID,
	}
	if draft.Template != nil {
		local.TemplateName = draft.Template.Name
	}

	p.store.Upsert(local)

	created, err := p.backend.CreateMessageRecord(ctx, p.partnerID, local)
	if err != nil {
		// A record that never committed anywhere must not linger locally.
		p.store.Remove(local.ID)
		return nil, err
	}
	if created.Status == message.StatusUnset {
		created.Status = message.StatusSending
	}

	// The backend owns the final identifier; keep the insertion position the
	// optimistic record claimed.
	p.store.Rekey(local.ID, created.ID)
	p.store.Upsert(created)
	p.logger.Debug("committed optimistic record",
		zap.String("message_id", created.ID),
		zap.String("kind", string(created.Kind)),
	)
	return created, nil
}

func (p *Pipeline) compose(draft message.Draft) (provider.Payload, error) {
	replyTo := p.resolveReplyContext(draft.ReplyToID)
	switch draft.Kind {
	case message.KindText:
		return p.builder.Text(draft.Body, replyTo)
	case message.KindImage:
		return p.builder.Image(draft.MediaHandle, replyTo)
	case message.KindTemplate:
		return p.builder.Template(draft.Template)
	}
	return provider.Payload{}, errors.Validation("unsupported message kind")
}

// resolveReplyContext maps a local reply-target id to the provider message
// id the wire contract references. A dangling or not-yet-confirmed target
// simply drops the context.
func (p *Pipeline) resolveReplyContext(replyToID *string) *string {
	if replyToID == nil {
		return nil
	}
	target, ok := p.store.Find(*replyToID)
	if !ok || !target.HasProviderID() {
		return nil
	}
	return target.ProviderMessageID
}

func (p *Pipeline) submitRemote(ctx context.Context, committed *message.Message, payload provider.Payload, kind string, isReaction bool, reactionValue string) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.markFailed(committed, isReaction)
			return errors.RemoteSubmission("message could not be sent", err)
		}
	}

	start := time.Now()
	result, err := p.backend.SubmitProviderMessage(ctx, payload, committed.ID, isReaction, reactionValue)
	elapsed := time.Since(start)

	if err != nil {
		p.markFailed(committed, isReaction)
		p.metrics.RecordSend(kind, "failed", elapsed)
		p.logger.Warn("provider submission failed",
			zap.String("message_id", committed.ID),
			zap.Bool("is_reaction", isReaction),
			zap.Error(err),
		)
		return err
	}

	if !isReaction {
		if result.Status != message.StatusUnset {
			committed.Status = result.Status
		} else {
			committed.Status = message.StatusSent
		}
		if result.ProviderMessageID != "" {
			id := result.ProviderMessageID
			committed.ProviderMessageID = &id
		}
	}

	p.metrics.RecordSend(kind, "sent", elapsed)
	return nil
}

// markFailed leaves the optimistic record visible. Reactions carry no
// status of their own, so a failed reaction send changes nothing.
func (p *Pipeline) markFailed(committed *message.Message, isReaction bool) {
	if isReaction {
		return
	}
	p.store.UpdateStatus(committed.ID, message.StatusFailed)
}
