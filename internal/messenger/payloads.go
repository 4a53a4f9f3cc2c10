package messenger

import "github.com/doinghun/merlabot-public/internal/model"

// Send API wire shapes.
// https://developers.facebook.com/docs/messenger-platform/reference/send-api

type recipient struct {
	ID string `json:"id"`
}

type sendRequest struct {
	Recipient    recipient `json:"recipient"`
	Message      *message  `json:"message,omitempty"`
	SenderAction string    `json:"sender_action,omitempty"` // typing_on|typing_off|mark_seen
}

type message struct {
	Text         string       `json:"text,omitempty"`
	QuickReplies []quickReply `json:"quick_replies,omitempty"`
	Attachment   *attachment  `json:"attachment,omitempty"`
}

type quickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type attachment struct {
	Type    string            `json:"type"` // image|audio|video|file|template
	Payload attachmentPayload `json:"payload"`
}

type attachmentPayload struct {
	URL          string    `json:"url,omitempty"`
	TemplateType string    `json:"template_type,omitempty"`
	Elements     []element `json:"elements,omitempty"`
}

type element struct {
	Title         string         `json:"title"`
	ImageURL      string         `json:"image_url,omitempty"`
	Subtitle      string         `json:"subtitle,omitempty"`
	DefaultAction *defaultAction `json:"default_action,omitempty"`
	Buttons       []button       `json:"buttons,omitempty"`
}

type defaultAction struct {
	Type               string `json:"type"`
	URL                string `json:"url"`
	WebviewHeightRatio string `json:"webview_height_ratio,omitempty"`
}

type button struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

func quickReplies(opts []model.QuickReplyOption) []quickReply {
	out := make([]quickReply, 0, len(opts))
	for _, o := range opts {
		out = append(out, quickReply{ContentType: "text", Title: o.Title, Payload: o.Payload})
	}
	return out
}

func elements(cards []model.Card) []element {
	out := make([]element, 0, len(cards))
	for _, c := range cards {
		el := element{
			Title:    c.Title,
			ImageURL: c.ImageURL,
			Subtitle: c.Subtitle,
		}
		if c.URL != "" {
			el.DefaultAction = &defaultAction{
				Type:               "web_url",
				URL:                c.URL,
				WebviewHeightRatio: "tall",
			}
		}
		for _, b := range c.Buttons {
			el.Buttons = append(el.Buttons, button{Type: "web_url", URL: b.URL, Title: b.Title})
		}
		out = append(out, el)
	}
	return out
}
