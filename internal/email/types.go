package email

import "html/template"

type ProviderName string

// FieldSchema describes a single configuration field of an adapter.
type FieldSchema struct {
	Key         string   `json:"key"`
	Type        string   `json:"type"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Example     any      `json:"example,omitempty"`
	Order       int      `json:"order"`
}

type ConfigSchema struct {
	Fields []FieldSchema `json:"fields"`
}

type ProviderMeta struct {
	Provider     string       `json:"provider"`
	DisplayName  string       `json:"display_name"`
	ConfigSchema ConfigSchema `json:"config_schema"`
}

// OutboundEmail is a message handed to a Sender. When Template is set the
// HTML body is rendered from it with Data; Body then holds the plain-text
// alternative.
type OutboundEmail struct {
	FromAddress string             `json:"from_address,omitempty"`
	FromName    string             `json:"from_name,omitempty"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	Body        string             `json:"body"`
	HTML        bool               `json:"html,omitempty"`
	Template    *template.Template `json:"-"`
	Data        any                `json:"-"`
}
