package model

// WebhookBody is the envelope the messaging platform posts to /webhook.
// Object is "page" for everything we care about.
type WebhookBody struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one page's batch of events. Messaging carries events while this
// app controls the thread; Standby carries the same shapes while another
// receiver does.
type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging,omitempty"`
	Standby   []MessagingEvent `json:"standby,omitempty"`
}

// Principal identifies a conversation participant by PSID.
type Principal struct {
	ID string `json:"id"`
}

// MessagingEvent is one event in an entry. At most one of the payload
// pointers is set; classification checks them in a fixed order.
type MessagingEvent struct {
	Sender    Principal `json:"sender"`
	Recipient Principal `json:"recipient"`
	Timestamp int64     `json:"timestamp"`

	Optin             *Optin             `json:"optin,omitempty"`
	Message           *InboundMessage    `json:"message,omitempty"`
	Delivery          *Delivery          `json:"delivery,omitempty"`
	Postback          *Postback          `json:"postback,omitempty"`
	Read              *Read              `json:"read,omitempty"`
	AccountLinking    *AccountLinking    `json:"account_linking,omitempty"`
	PassThreadControl *PassThreadControl `json:"pass_thread_control,omitempty"`
}

// InboundMessage is a user (or echoed page) message.
type InboundMessage struct {
	MID         string              `json:"mid"`
	IsEcho      bool                `json:"is_echo,omitempty"`
	AppID       int64               `json:"app_id,omitempty"`
	Metadata    string              `json:"metadata,omitempty"`
	Text        string              `json:"text,omitempty"`
	QuickReply  *QuickReply         `json:"quick_reply,omitempty"`
	Attachments []InboundAttachment `json:"attachments,omitempty"`
}

// QuickReply is the tapped option's developer payload.
type QuickReply struct {
	Payload string `json:"payload"`
}

type InboundAttachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url,omitempty"`
	} `json:"payload"`
}

// Postback is a button or persistent-menu tap.
type Postback struct {
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

// Optin is a plugin opt-in ("Send to Messenger").
type Optin struct {
	Ref string `json:"ref,omitempty"`
}

// Delivery confirms messages up to a watermark were delivered.
type Delivery struct {
	MIDs      []string `json:"mids,omitempty"`
	Watermark int64    `json:"watermark"`
	Seq       int64    `json:"seq,omitempty"`
}

// Read confirms messages up to a watermark were read.
type Read struct {
	Watermark int64 `json:"watermark"`
	Seq       int64 `json:"seq,omitempty"`
}

type AccountLinking struct {
	Status            string `json:"status"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}

// PassThreadControl hands thread ownership to this app.
type PassThreadControl struct {
	NewOwnerAppID int64  `json:"new_owner_app_id,omitempty"`
	Metadata      string `json:"metadata,omitempty"`
}
