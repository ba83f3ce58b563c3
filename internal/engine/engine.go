// Package engine runs one conversation: it owns the message store, consumes
// the live event feed and executes send requests, all on a single goroutine
// so every store mutation is applied one at a time in arrival order.
package engine

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sergeyvolkov/chatflow/internal/backend"
	"github.com/sergeyvolkov/chatflow/internal/common/errors"
	"github.com/sergeyvolkov/chatflow/internal/feed"
	"github.com/sergeyvolkov/chatflow/internal/message"
	"github.com/sergeyvolkov/chatflow/internal/observability"
	"github.com/sergeyvolkov/chatflow/internal/outbound"
	"github.com/sergeyvolkov/chatflow/internal/projection"
	"github.com/sergeyvolkov/chatflow/internal/provider"
	"github.com/sergeyvolkov/chatflow/internal/reconcile"
	"github.com/sergeyvolkov/chatflow/internal/session"
	"github.com/sergeyvolkov/chatflow/internal/store"
	"github.com/sergeyvolkov/chatflow/internal/upload"
)

// ViewUpdate is published after every store mutation. The channel is
// latest-wins; a slow consumer only ever misses intermediate frames.
type ViewUpdate struct {
	View           projection.View
	SessionOpen    bool
	ScrollToLatest bool
}

// Subscriber abstracts the feed for tests; internal/feed.Feed satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, partnerID string) (*feed.Subscription, error)
}

// Config carries the per-conversation knobs the engine wires into its
// pipeline and reconciler.
type Config struct {
	PartnerID        string
	WindowHours      int
	MessagingProduct string
	TemplateButtons  bool
	RateLimitEnabled bool
	SendsPerMinute   int
	Burst            int
}

type Engine struct {
	partnerID   string
	windowHours int

	backend    backend.Client
	subscriber Subscriber
	store      *store.Store
	pipeline   *outbound.Pipeline
	reconciler *reconcile.Reconciler
	uploader   *upload.Uploader
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time

	bundle *backend.Bundle
	cmds   chan command
	views  chan ViewUpdate
	done   chan struct{}
}

type command struct {
	fn   func()
	done chan struct{}
}

func New(cfg Config, client backend.Client, subscriber Subscriber, uploader *upload.Uploader, metrics *observability.Metrics, logger *zap.Logger) *Engine {
	st := store.New()
	builder := provider.NewBuilder(cfg.MessagingProduct, cfg.PartnerID, cfg.TemplateButtons)

	var limiter *rate.Limiter
	if cfg.RateLimitEnabled && cfg.SendsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.SendsPerMinute)/60.0), cfg.Burst)
	}

	return &Engine{
		partnerID:   cfg.PartnerID,
		windowHours: cfg.WindowHours,
		backend:     client,
		subscriber:  subscriber,
		store:       st,
		pipeline:    outbound.New(client, st, builder, cfg.PartnerID, cfg.WindowHours, limiter, metrics, logger),
		reconciler:  reconcile.New(st, cfg.PartnerID, metrics, logger),
		uploader:    uploader,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		cmds:        make(chan command),
		views:       make(chan ViewUpdate, 1),
		done:        make(chan struct{}),
	}
}

// SetClock overrides the engine's clock for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	e.pipeline.SetClock(now)
}

// Start loads the conversation bundle, seeds the store, marks unseen inbound
// messages seen, subscribes to the live feed and launches the owning loop.
func (e *Engine) Start(ctx context.Context) error {
	bundle, err := e.backend.FetchConversationBundle(ctx, e.partnerID)
	if err != nil {
		return err
	}
	e.bundle = bundle

	for _, m := range bundle.Messages {
		e.store.Upsert(m)
	}
	e.metrics.SetStoreSize(e.store.Len())

	e.markInboundSeen(ctx, bundle.Messages)

	sub, err := e.subscriber.Subscribe(ctx, e.partnerID)
	if err != nil {
		return err
	}

	e.logger.Info("conversation opened",
		zap.String("partner", bundle.PartnerDisplayName),
		zap.Int("messages", e.store.Len()),
		zap.Int("templates", len(bundle.AvailableTemplates)),
	)

	// The initial frame must go out before the loop starts; once run is
	// live the store belongs to it alone.
	e.publish(true)
	go e.run(ctx, sub)
	return nil
}

// Views is the projection subscription consumed by presentation.
func (e *Engine) Views() <-chan ViewUpdate {
	return e.views
}

// Done closes when the owning loop has stopped.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) PartnerDisplayName() string {
	if e.bundle == nil {
		return ""
	}
	return e.bundle.PartnerDisplayName
}

func (e *Engine) AvailableTemplates() []backend.Template {
	if e.bundle == nil {
		return nil
	}
	return e.bundle.AvailableTemplates
}

// SendText submits a free-form text draft, optionally threaded onto a reply
// target.
func (e *Engine) SendText(ctx context.Context, body string, replyToID *string) (*outbound.Result, error) {
	return e.submit(ctx, message.Draft{Kind: message.KindText, Body: body, ReplyToID: replyToID})
}

// SendImage submits an already-uploaded image by its content handle.
func (e *Engine) SendImage(ctx context.Context, handle string, replyToID *string) (*outbound.Result, error) {
	return e.submit(ctx, message.Draft{Kind: message.KindImage, MediaHandle: handle, ReplyToID: replyToID})
}

// SendImageFile uploads the content first, then submits the resulting
// handle. The upload round trips run outside the owning loop; only the send
// itself is serialized.
func (e *Engine) SendImageFile(ctx context.Context, name, contentType string, content io.Reader, length int64, progress upload.Progress) (*outbound.Result, error) {
	if e.uploader == nil {
		return nil, errors.Internal("uploads are not configured", nil)
	}
	handle, err := e.uploader.Upload(ctx, name, contentType, content, length, progress)
	if err != nil {
		return nil, err
	}
	return e.SendImage(ctx, handle, nil)
}

// SendTemplate submits a template draft; templates are allowed even when
// the session window is closed.
func (e *Engine) SendTemplate(ctx context.Context, draft *message.TemplateDraft) (*outbound.Result, error) {
	return e.submit(ctx, message.Draft{Kind: message.KindTemplate, Template: draft})
}

func (e *Engine) SetReaction(ctx context.Context, targetID, glyph string) error {
	var err error
	if execErr := e.call(ctx, func() {
		err = e.pipeline.SetReaction(ctx, targetID, glyph)
		e.publish(false)
	}); execErr != nil {
		return execErr
	}
	return err
}

func (e *Engine) ClearReaction(ctx context.Context, targetID string) error {
	return e.SetReaction(ctx, targetID, "")
}

// submit runs the whole pipeline, backend round trips included, on the
// owning goroutine; feed events queue behind an in-flight send.
func (e *Engine) submit(ctx context.Context, draft message.Draft) (*outbound.Result, error) {
	var (
		res *outbound.Result
		err error
	)
	if execErr := e.call(ctx, func() {
		res, err = e.pipeline.Submit(ctx, draft)
		e.metrics.SetStoreSize(e.store.Len())
		e.publish(err == nil)
	}); execErr != nil {
		return nil, execErr
	}
	if err != nil {
		e.logger.Warn("send rejected", zap.String("reason", errors.UserMessage(err)))
	}
	return res, err
}

// call runs fn on the owning goroutine and waits for it.
func (e *Engine) call(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return errors.Internal("conversation is closed", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) run(ctx context.Context, sub *feed.Subscription) {
	defer close(e.done)
	defer sub.Close()

	for {
		select {
		case cmd := <-e.cmds:
			cmd.fn()
			close(cmd.done)

		case ev, ok := <-sub.Events():
			if !ok {
				e.logger.Info("event feed ended, closing conversation")
				return
			}
			outcome := e.reconciler.Apply(ev)
			if outcome.Mutated {
				e.metrics.SetStoreSize(e.store.Len())
				e.publish(outcome.ScrollToLatest)
			}

		case <-ctx.Done():
			// Navigating away: pending reconciliations are dropped with the
			// loop, never surfaced as a fault.
			e.logger.Info("conversation closed")
			return
		}
	}
}

// publish recomputes the projection and replaces any unconsumed frame.
func (e *Engine) publish(scrollToLatest bool) {
	snapshot := e.store.All()
	update := ViewUpdate{
		View:           projection.Build(snapshot, e.store, e.now()),
		SessionOpen:    session.IsOpen(snapshot, e.now(), e.windowHours),
		ScrollToLatest: scrollToLatest,
	}

	for {
		select {
		case e.views <- update:
			return
		default:
			select {
			case <-e.views:
			default:
			}
		}
	}
}

func (e *Engine) markInboundSeen(ctx context.Context, messages []*message.Message) {
	var ids []string
	for _, m := range messages {
		if m.IsInbound() && m.Status != message.StatusSeen {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	count, err := e.backend.MarkMessagesSeen(ctx, ids)
	if err != nil {
		e.logger.Warn("could not mark messages seen", zap.Error(err))
		return
	}
	e.logger.Debug("marked messages seen", zap.Int("count", count))
}
