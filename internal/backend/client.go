package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sergeyvolkov/chatflow/internal/circuitbreaker"
	"github.com/sergeyvolkov/chatflow/internal/common/config"
	"github.com/sergeyvolkov/chatflow/internal/common/errors"
	"github.com/sergeyvolkov/chatflow/internal/message"
	"github.com/sergeyvolkov/chatflow/internal/provider"
	"github.com/sergeyvolkov/chatflow/internal/retry"
)

// HTTPClient is the resty-backed implementation of Client. A circuit breaker
// wraps every call; the idempotent bundle fetch additionally retries with
// backoff. Sends and chunk uploads are never retried here.
type HTTPClient struct {
	http     *resty.Client
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg retry.Config
	logger   *zap.Logger
}

func NewHTTPClient(cfg config.BackendConfig, logger *zap.Logger) *HTTPClient {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "application/json")

	retryCfg := retry.DefaultConfig()
	if cfg.FetchRetries > 0 {
		retryCfg.MaxAttempts = cfg.FetchRetries
	}

	return &HTTPClient{
		http:     http,
		breaker:  circuitbreaker.New(5, 30*time.Second),
		retryCfg: retryCfg,
		logger:   logger,
	}
}

func (c *HTTPClient) call(fn func() error) error {
	return c.breaker.Call(fn)
}

func (c *HTTPClient) FetchConversationBundle(ctx context.Context, partnerID string) (*Bundle, error) {
	var bundle Bundle
	err := retry.WithBackoff(ctx, c.retryCfg, func() error {
		return c.call(func() error {
			resp, err := c.http.R().
				SetContext(ctx).
				SetResult(&bundle).
				Get(fmt.Sprintf("/conversations/%s", partnerID))
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("fetch conversation bundle: %s", resp.Status())
			}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Internal("could not load conversation", err)
	}
	c.logger.Debug("conversation bundle fetched",
		zap.String("partner_id", partnerID),
		zap.Int("messages", len(bundle.Messages)),
	)
	return &bundle, nil
}

func (c *HTTPClient) CreateMessageRecord(ctx context.Context, partnerID string, msg *message.Message) (*message.Message, error) {
	var created message.Message
	err := c.call(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(msg).
			SetResult(&created).
			Post(fmt.Sprintf("/conversations/%s/messages", partnerID))
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("create message record: %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		return nil, errors.LocalCommit("could not save message", err)
	}
	return &created, nil
}

type submitRequest struct {
	Payload       provider.Payload `json:"payload"`
	MessageID     string           `json:"message_id"`
	IsReaction    bool             `json:"is_reaction"`
	ReactionValue string           `json:"reaction_value,omitempty"`
}

func (c *HTTPClient) SubmitProviderMessage(ctx context.Context, payload provider.Payload, messageID string, isReaction bool, reactionValue string) (*SubmitResult, error) {
	var result SubmitResult
	err := c.call(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(submitRequest{
				Payload:       payload,
				MessageID:     messageID,
				IsReaction:    isReaction,
				ReactionValue: reactionValue,
			}).
			SetResult(&result).
			Post("/provider/messages")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("submit provider message: %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		return nil, errors.RemoteSubmission("message could not be sent", err)
	}
	if result.ErrorCode == ErrorCodeConfigurationMissing {
		return &result, errors.ConfigurationMissing("messaging account is not configured yet")
	}
	if result.ErrorCode != "" {
		return &result, errors.RemoteSubmission("message could not be sent", fmt.Errorf("provider error %s", result.ErrorCode))
	}
	return &result, nil
}

type seenRequest struct {
	MessageIDs []string `json:"message_ids"`
}

type seenResponse struct {
	Count int `json:"count"`
}

func (c *HTTPClient) MarkMessagesSeen(ctx context.Context, messageIDs []string) (int, error) {
	var result seenResponse
	err := c.call(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(seenRequest{MessageIDs: messageIDs}).
			SetResult(&result).
			Post("/messages/seen")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("mark messages seen: %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		return 0, errors.Internal("could not mark messages seen", err)
	}
	return result.Count, nil
}

type uploadSessionRequest struct {
	Name        string `json:"name"`
	Length      int64  `json:"length"`
	ContentType string `json:"content_type"`
}

type uploadSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (c *HTTPClient) StartUploadSession(ctx context.Context, name string, length int64, contentType string) (string, error) {
	var result uploadSessionResponse
	err := c.call(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(uploadSessionRequest{Name: name, Length: length, ContentType: contentType}).
			SetResult(&result).
			Post("/uploads/sessions")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("start upload session: %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		return "", errors.Upload("could not start upload", err)
	}
	if result.SessionID == "" {
		return "", errors.Upload("could not start upload", fmt.Errorf("backend returned no session id"))
	}
	return result.SessionID, nil
}

type uploadChunkRequest struct {
	Content string `json:"content"`
	Cursor  int64  `json:"cursor"`
	Length  int    `json:"length"`
	Name    string `json:"name"`
}

type uploadChunkResponse struct {
	Handle string `json:"handle"`
}

func (c *HTTPClient) UploadChunk(ctx context.Context, sessionID, base64Content string, cursor int64, length int, name string) (string, error) {
	var result uploadChunkResponse
	err := c.call(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(uploadChunkRequest{Content: base64Content, Cursor: cursor, Length: length, Name: name}).
			SetResult(&result).
			Post(fmt.Sprintf("/uploads/sessions/%s/chunks", sessionID))
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("upload chunk at %d: %s", cursor, resp.Status())
		}
		return nil
	})
	if err != nil {
		return "", errors.Upload("upload failed", err)
	}
	return result.Handle, nil
}
