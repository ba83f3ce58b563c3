package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sergeyvolkov/chatflow/internal/backend"
	"github.com/sergeyvolkov/chatflow/internal/common/config"
	"github.com/sergeyvolkov/chatflow/internal/common/errors"
	"github.com/sergeyvolkov/chatflow/internal/message"
	"github.com/sergeyvolkov/chatflow/internal/provider"
)

func newClient(t *testing.T, handler http.Handler) *backend.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return backend.NewHTTPClient(config.BackendConfig{
		BaseURL:        srv.URL,
		Token:          "test-token",
		RequestTimeout: 5 * time.Second,
		FetchRetries:   1,
	}, zap.NewNop())
}

func TestFetchConversationBundle(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/p1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(backend.Bundle{
			PartnerDisplayName: "Ada",
			PartnerContact:     "15550001111",
			Messages:           []*message.Message{{ID: "m1", Body: "hi"}},
			AvailableTemplates: []backend.Template{{Name: "reopen", LanguageCode: "en"}},
		})
	}))

	bundle, err := client.FetchConversationBundle(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", bundle.PartnerDisplayName)
	require.Len(t, bundle.Messages, 1)
	assert.Equal(t, "m1", bundle.Messages[0].ID)
	require.Len(t, bundle.AvailableTemplates, 1)
}

func TestSubmitMapsConfigurationMissing(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(backend.SubmitResult{
			ErrorCode: backend.ErrorCodeConfigurationMissing,
		})
	}))

	_, err := client.SubmitProviderMessage(context.Background(), provider.Payload{}, "m1", false, "")
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationMissing(err))
}

func TestSubmitMapsGenericProviderError(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(backend.SubmitResult{ErrorCode: "131026"})
	}))

	_, err := client.SubmitProviderMessage(context.Background(), provider.Payload{}, "m1", false, "")
	require.Error(t, err)
	assert.False(t, errors.IsConfigurationMissing(err))
	assert.ErrorIs(t, err, errors.ErrRemoteSubmission)
}

func TestSubmitSuccess(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MessageID  string `json:"message_id"`
			IsReaction bool   `json:"is_reaction"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m1", req.MessageID)
		assert.False(t, req.IsReaction)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(backend.SubmitResult{
			Status:            message.StatusSent,
			ProviderMessageID: "wamid.m1",
		})
	}))

	result, err := client.SubmitProviderMessage(context.Background(), provider.Payload{}, "m1", false, "")
	require.NoError(t, err)
	assert.Equal(t, message.StatusSent, result.Status)
	assert.Equal(t, "wamid.m1", result.ProviderMessageID)
}

func TestStartUploadSessionRejectsMissingID(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.StartUploadSession(context.Background(), "a.jpg", 100, "image/jpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUploadFailed)
}

func TestMarkMessagesSeen(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MessageIDs []string `json:"message_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"count": len(req.MessageIDs)})
	}))

	count, err := client.MarkMessagesSeen(context.Background(), []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestServerErrorSurfacesAsRemoteSubmission(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.SubmitProviderMessage(context.Background(), provider.Payload{}, "m1", false, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRemoteSubmission)
}
