package feed_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeyvolkov/chatflow/internal/feed"
	"github.com/sergeyvolkov/chatflow/internal/message"
)

func TestParseEventKinds(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		kind  feed.EventKind
	}{
		{
			name:  "new",
			frame: `{"event_kind":"new","partner_id":"p1","message":{"id":"m1","direction":"inbound","kind":"text","body":"hi"}}`,
			kind:  feed.EventNew,
		},
		{
			name:  "status",
			frame: `{"event_kind":"status","partner_id":"p1","message":{"id":"m1","status":"delivered"}}`,
			kind:  feed.EventStatus,
		},
		{
			name:  "react",
			frame: `{"event_kind":"react","partner_id":"p1","message":{"id":"m1","reaction":"|🔥"}}`,
			kind:  feed.EventReact,
		},
		{
			name:  "update",
			frame: `{"event_kind":"update","partner_id":"p1","message":{"id":"m1","body":"edited"}}`,
			kind:  feed.EventUpdate,
		},
		{
			name:  "delete",
			frame: `{"event_kind":"delete","partner_id":"p1","message":{"id":"m1"}}`,
			kind:  feed.EventDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := feed.ParseEvent([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, "p1", ev.PartnerID)
			require.NotNil(t, ev.Message)
			assert.Equal(t, "m1", ev.Message.ID)
		})
	}
}

func TestParseEventFieldMapping(t *testing.T) {
	frame := `{"event_kind":"new","partner_id":"p1","message":{
		"id":"m1","direction":"inbound","kind":"text","body":"hello",
		"status":"delivered","reaction":"👍|","reply_to_id":"m0",
		"provider_message_id":"wamid.x"}}`

	ev, err := feed.ParseEvent([]byte(frame))
	require.NoError(t, err)

	m := ev.Message
	assert.Equal(t, message.DirectionInbound, m.Direction)
	assert.Equal(t, message.KindText, m.Kind)
	assert.Equal(t, "hello", m.Body)
	assert.Equal(t, message.StatusDelivered, m.Status)
	assert.Equal(t, "👍|", m.Reaction)
	require.NotNil(t, m.ReplyToID)
	assert.Equal(t, "m0", *m.ReplyToID)
	require.NotNil(t, m.ProviderMessageID)
	assert.Equal(t, "wamid.x", *m.ProviderMessageID)
}

func TestParseEventRejections(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{name: "unknown kind", frame: `{"event_kind":"typing","partner_id":"p1","message":{"id":"m1"}}`},
		{name: "missing kind", frame: `{"partner_id":"p1","message":{"id":"m1"}}`},
		{name: "no message", frame: `{"event_kind":"new","partner_id":"p1"}`},
		{name: "not json", frame: `garbage`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := feed.ParseEvent([]byte(tt.frame))
			assert.Error(t, err)
		})
	}
}
