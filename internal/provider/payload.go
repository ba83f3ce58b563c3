// Package provider declares the Cloud API message payload contract. The
// shape is a fixed external JSON contract and must be reproduced exactly for
// interoperability.
package provider

type Payload struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Context          *Context         `json:"context,omitempty"`
	Text             *TextContent     `json:"text,omitempty"`
	Image            *ImageContent    `json:"image,omitempty"`
	Template         *TemplateContent `json:"template,omitempty"`
	Reaction         *ReactionContent `json:"reaction,omitempty"`
}

// Context carries the provider-side reply threading reference.
type Context struct {
	MessageID string `json:"message_id"`
}

type TextContent struct {
	Body string `json:"body"`
}

type ImageContent struct {
	Link string `json:"link"`
}

type TemplateContent struct {
	Name       string      `json:"name"`
	Language   Language    `json:"language"`
	Components []Component `json:"components"`
}

type Language struct {
	Code string `json:"code"`
}

type Component struct {
	Type       string      `json:"type"`
	SubType    string      `json:"sub_type,omitempty"`
	Index      string      `json:"index,omitempty"`
	Parameters []Parameter `json:"parameters"`
}

type Parameter struct {
	Type  string        `json:"type"`
	Text  string        `json:"text,omitempty"`
	Image *ImageContent `json:"image,omitempty"`
}

type ReactionContent struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}
