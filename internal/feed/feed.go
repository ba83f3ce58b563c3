package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sergeyvolkov/chatflow/internal/common/config"
)

// Subscription is the handle returned by Subscribe. Events arrive on a
// buffered channel; the channel closes when the subscription ends.
type Subscription struct {
	events chan Event
	cancel context.CancelFunc
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
	})
}

// NewSubscription wraps a caller-owned event channel in a handle. The feed
// builds its own; tests use it to inject synthetic event streams.
func NewSubscription(events chan Event, cancel context.CancelFunc) *Subscription {
	if cancel == nil {
		cancel = func() {}
	}
	return &Subscription{events: events, cancel: cancel}
}

// Feed dials the backend's event socket and turns frames into typed events.
type Feed struct {
	cfg    config.FeedConfig
	logger *zap.Logger
}

func New(cfg config.FeedConfig, logger *zap.Logger) *Feed {
	return &Feed{cfg: cfg, logger: logger}
}

// Subscribe opens one socket for the given partner and starts the read
// pump. The returned handle stays valid until Close or ctx cancellation.
func (f *Feed) Subscribe(ctx context.Context, partnerID string) (*Subscription, error) {
	url := fmt.Sprintf("%s?partner_id=%s", f.cfg.URL, partnerID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial event feed: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := NewSubscription(make(chan Event, f.cfg.BufferSize), cancel)

	go func() {
		<-subCtx.Done()
		_ = conn.Close()
	}()

	go f.readPump(subCtx, conn, sub, partnerID)
	go f.pingLoop(subCtx, conn)

	f.logger.Info("subscribed to event feed", zap.String("partner_id", partnerID))
	return sub, nil
}

func (f *Feed) readPump(ctx context.Context, conn *websocket.Conn, sub *Subscription, partnerID string) {
	defer close(sub.events)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Warn("event feed closed",
					zap.String("partner_id", partnerID),
					zap.Error(err),
				)
			}
			return
		}

		ev, err := ParseEvent(frame)
		if err != nil {
			f.logger.Warn("dropping malformed event frame", zap.Error(err))
			continue
		}

		select {
		case sub.events <- ev:
		case <-ctx.Done():
			return
		default:
			f.logger.Warn("subscription channel full, dropping event",
				zap.String("partner_id", partnerID),
				zap.String("event_kind", string(ev.Kind)),
			)
		}
	}
}

func (f *Feed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	interval := f.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
