package message

import (
	"time"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindTemplate Kind = "template"
	KindOther    Kind = "other"
)

type Status string

const (
	StatusUnset     Status = ""
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
	StatusFailed    Status = "failed"
)

var statusRank = map[Status]int{
	StatusUnset:     0,
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusSeen:      3,
}

// CanTransition reports whether moving from s to next respects the monotonic
// sending -> sent -> delivered -> seen order, with failed reachable from
// sending only. Late duplicate status events therefore degrade to no-ops.
func (s Status) CanTransition(next Status) bool {
	if s == StatusFailed {
		return false
	}
	if next == StatusFailed {
		return s == StatusSending || s == StatusUnset
	}
	return statusRank[next] >= statusRank[s]
}

// Message is the central record of a conversation. The identifier is assigned
// by the backend; an optimistic local record carries a client-generated id
// until the create round trip replaces it.
type Message struct {
	ID                string     `json:"id"`
	Direction         Direction  `json:"direction"`
	Kind              Kind       `json:"kind"`
	Body              string     `json:"body"`
	MediaLink         string     `json:"media_link,omitempty"`
	TemplateName      string     `json:"template_name,omitempty"`
	Status            Status     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`
	Reaction          string     `json:"reaction,omitempty"`
	ReplyToID         *string    `json:"reply_to_id,omitempty"`
	ProviderMessageID *string    `json:"provider_message_id,omitempty"`
}

func (m *Message) IsInbound() bool {
	return m.Direction == DirectionInbound
}

func (m *Message) HasProviderID() bool {
	return m.ProviderMessageID != nil && *m.ProviderMessageID != ""
}

// TemplateParam is one positional text parameter of a template component.
type TemplateParam struct {
	Text string `json:"text"`
}

// TemplateDraft describes a pre-approved template send: name, language and
// the parameter lists the provider substitutes into the approved body.
type TemplateDraft struct {
	Name         string
	LanguageCode string
	HeaderParams []TemplateParam
	BodyParams   []TemplateParam
	HeaderImage  string
	ButtonParams []TemplateParam
}

// Draft is what the outbound pipeline accepts. Exactly one of Body,
// MediaHandle or Template is meaningful depending on Kind.
type Draft struct {
	Kind        Kind
	Body        string
	MediaHandle string
	Template    *TemplateDraft
	ReplyToID   *string
}
