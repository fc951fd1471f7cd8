package channel

import (
	"strings"
	"time"
)

// ChannelType identifies a messaging gateway (e.g. telegram, webhook).
type ChannelType string

func (c ChannelType) String() string {
	return string(c)
}

func normalizeChannelType(raw string) ChannelType {
	return ChannelType(strings.ToLower(strings.TrimSpace(raw)))
}

// InboundMessage is one user utterance received from a gateway.
type InboundMessage struct {
	Channel    ChannelType
	SenderID   string
	ChatID     string
	Text       string
	ReceivedAt time.Time
}

// SessionKey is the per-user conversation key passed to the pipeline. It is
// prefixed with the channel so ids from different gateways never collide.
func (m InboundMessage) SessionKey() string {
	id := strings.TrimSpace(m.ChatID)
	if id == "" {
		id = strings.TrimSpace(m.SenderID)
	}
	if id == "" {
		return ""
	}
	return m.Channel.String() + ":" + id
}

// OutboundMessage is a plain-text reply addressed to a gateway target.
type OutboundMessage struct {
	Target string
	Text   string
}
