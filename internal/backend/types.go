// Package backend talks to the service boundary that owns persistence,
// provider credentials and the provider itself. Everything here is
// request/response; the live feed lives in internal/feed.
package backend

import (
	"context"

	"github.com/sergeyvolkov/chatflow/internal/message"
	"github.com/sergeyvolkov/chatflow/internal/provider"
)

// Template is one pre-approved template available to the account.
type Template struct {
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
	HeaderParams int    `json:"header_params"`
	BodyParams   int    `json:"body_params"`
}

// Bundle is everything needed to open a conversation with one partner.
type Bundle struct {
	Messages           []*message.Message `json:"messages"`
	PartnerDisplayName string             `json:"partner_display_name"`
	PartnerContact     string             `json:"partner_contact"`
	ThemePreference    string             `json:"theme_preference"`
	AvailableTemplates []Template         `json:"available_templates"`
}

// SubmitResult is the backend's reconciliation of one provider submission.
type SubmitResult struct {
	Status            message.Status `json:"status"`
	ProviderMessageID string         `json:"provider_message_id"`
	ErrorCode         string         `json:"error_code,omitempty"`
}

// ErrorCodeConfigurationMissing is the distinguished provider error for an
// account without a working messaging configuration. It must surface as a
// different user-facing message than a generic send failure.
const ErrorCodeConfigurationMissing = "configuration_missing"

type Client interface {
	FetchConversationBundle(ctx context.Context, partnerID string) (*Bundle, error)
	CreateMessageRecord(ctx context.Context, partnerID string, msg *message.Message) (*message.Message, error)
	SubmitProviderMessage(ctx context.Context, payload provider.Payload, messageID string, isReaction bool, reactionValue string) (*SubmitResult, error)
	MarkMessagesSeen(ctx context.Context, messageIDs []string) (int, error)
	StartUploadSession(ctx context.Context, name string, length int64, contentType string) (string, error)
	UploadChunk(ctx context.Context, sessionID, base64Content string, cursor int64, length int, name string) (string, error)
}
