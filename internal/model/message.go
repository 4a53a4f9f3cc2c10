package model

import (
	"strings"
	"time"
)

// MessageKind tags one fulfillment message coming back from the NLU backend.
type MessageKind string

const (
	KindText       MessageKind = "text"
	KindCard       MessageKind = "card"
	KindAttachment MessageKind = "attachment"
)

func (k MessageKind) String() string { return string(k) }

func (k MessageKind) Valid() bool {
	return k == KindText || k == KindCard || k == KindAttachment
}

// ParseMessageKind normalizes input; empty => text.
// Returns (value, true) if valid; otherwise (text, false).
func ParseMessageKind(s string) (MessageKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return KindText, true
	case "card":
		return KindCard, true
	case "attachment", "image":
		return KindAttachment, true
	default:
		return KindText, false
	}
}

// Message is one fulfillment message; exactly one payload field is set per
// kind. Consecutive card messages are merged into a single carousel when paced.
type Message struct {
	Kind          MessageKind
	Text          string
	Card          *Card
	AttachmentURL string
}

// Card is one carousel tile.
type Card struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle,omitempty"`
	ImageURL string       `json:"image_url,omitempty"`
	URL      string       `json:"url,omitempty"` // default tap-through target
	Buttons  []CardButton `json:"buttons,omitempty"`
}

type CardButton struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// QuickReplyOption is one tappable reply attached to an outgoing message.
type QuickReplyOption struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// DirectiveKind tags one schedulable outbound send.
type DirectiveKind string

const (
	DirectiveText       DirectiveKind = "text"
	DirectiveQuickReply DirectiveKind = "quick_reply"
	DirectiveCarousel   DirectiveKind = "carousel"
	DirectiveAttachment DirectiveKind = "attachment"
	DirectiveGif        DirectiveKind = "gif"
)

func (k DirectiveKind) String() string { return string(k) }

// Directive is a fully formed instruction to send one message to one
// recipient, Offset relative to the moment its batch was scheduled.
type Directive struct {
	Kind    DirectiveKind
	Offset  time.Duration
	Text    string
	Replies []QuickReplyOption
	Cards   []Card
	URL     string // attachment / gif source
}
