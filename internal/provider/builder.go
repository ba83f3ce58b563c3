package provider

import (
	"strconv"

	"github.com/sergeyvolkov/chatflow/internal/common/errors"
	"github.com/sergeyvolkov/chatflow/internal/message"
)

// Builder composes provider payloads for one conversation partner.
type Builder struct {
	messagingProduct string
	to               string
	templateButtons  bool
}

func NewBuilder(messagingProduct, to string, templateButtons bool) *Builder {
	return &Builder{
		messagingProduct: messagingProduct,
		to:               to,
		templateButtons:  templateButtons,
	}
}

func (b *Builder) base(msgType string) Payload {
	return Payload{
		MessagingProduct: b.messagingProduct,
		To:               b.to,
		Type:             msgType,
	}
}

func withContext(p Payload, replyToProviderID *string) Payload {
	if replyToProviderID != nil && *replyToProviderID != "" {
		p.Context = &Context{MessageID: *replyToProviderID}
	}
	return p
}

func (b *Builder) Text(body string, replyToProviderID *string) (Payload, error) {
	if body == "" {
		return Payload{}, errors.Validation("message text is empty")
	}
	p := b.base("text")
	p.Text = &TextContent{Body: body}
	return withContext(p, replyToProviderID), nil
}

func (b *Builder) Image(link string, replyToProviderID *string) (Payload, error) {
	if link == "" {
		return Payload{}, errors.Validation("image link is empty")
	}
	p := b.base("image")
	p.Image = &ImageContent{Link: link}
	return withContext(p, replyToProviderID), nil
}

// Template builds the components array from the draft's parameter lists.
// Button components are composed but only included when the builder was
// configured to emit them.
func (b *Builder) Template(draft *message.TemplateDraft) (Payload, error) {
	if draft == nil || draft.Name == "" {
		return Payload{}, errors.Validation("template name is required")
	}
	if draft.LanguageCode == "" {
		return Payload{}, errors.Validation("template language code is required")
	}

	var components []Component

	if draft.HeaderImage != "" {
		components = append(components, Component{
			Type: "header",
			Parameters: []Parameter{{
				Type:  "image",
				Image: &ImageContent{Link: draft.HeaderImage},
			}},
		})
	} else if len(draft.HeaderParams) > 0 {
		components = append(components, Component{
			Type:       "header",
			Parameters: textParams(draft.HeaderParams),
		})
	}

	if len(draft.BodyParams) > 0 {
		components = append(components, Component{
			Type:       "body",
			Parameters: textParams(draft.BodyParams),
		})
	}

	if b.templateButtons {
		for i, p := range draft.ButtonParams {
			components = append(components, Component{
				Type:       "button",
				SubType:    "quick_reply",
				Index:      strconv.Itoa(i),
				Parameters: []Parameter{{Type: "payload", Text: p.Text}},
			})
		}
	}

	if components == nil {
		components = []Component{}
	}

	p := b.base("template")
	p.Template = &TemplateContent{
		Name:       draft.Name,
		Language:   Language{Code: draft.LanguageCode},
		Components: components,
	}
	return p, nil
}

// Reaction targets the provider id of an existing message. No reply context
// applies to reactions.
func (b *Builder) Reaction(targetProviderID, emoji string) (Payload, error) {
	if targetProviderID == "" {
		return Payload{}, errors.Validation("reaction target has no provider message id")
	}
	p := b.base("reaction")
	p.Reaction = &ReactionContent{MessageID: targetProviderID, Emoji: emoji}
	return p, nil
}

func textParams(params []message.TemplateParam) []Parameter {
	out := make([]Parameter, 0, len(params))
	for _, p := range params {
		out = append(out, Parameter{Type: "text", Text: p.Text})
	}
	return out
}
