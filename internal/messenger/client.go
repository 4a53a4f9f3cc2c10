// Package messenger is the outbound send collaborator: a thin client for the
// Graph Send API. Sends are fire-and-forget from the bot's point of view;
// callers log failures and move on.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doinghun/merlabot-public/internal/model"
)

// Sender is the interface the bot core sends through.
type Sender interface {
	SendText(ctx context.Context, recipientID, text string) error
	SendQuickReply(ctx context.Context, recipientID, text string, replies []model.QuickReplyOption) error
	SendCarousel(ctx context.Context, recipientID string, cards []model.Card) error
	SendAttachment(ctx context.Context, recipientID, attachmentType, url string) error
	TypingOn(ctx context.Context, recipientID string) error
	TypingOff(ctx context.Context, recipientID string) error
}

type Client struct {
	baseURL   string
	pageToken string
	client    *http.Client
}

var _ Sender = (*Client)(nil)

func NewClient(baseURL, pageToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		pageToken: pageToken,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	return c.post(ctx, sendRequest{
		Recipient: recipient{ID: recipientID},
		Message:   &message{Text: text},
	})
}

func (c *Client) SendQuickReply(ctx context.Context, recipientID, text string, replies []model.QuickReplyOption) error {
	return c.post(ctx, sendRequest{
		Recipient: recipient{ID: recipientID},
		Message:   &message{Text: text, QuickReplies: quickReplies(replies)},
	})
}

func (c *Client) SendCarousel(ctx context.Context, recipientID string, cards []model.Card) error {
	return c.post(ctx, sendRequest{
		Recipient: recipient{ID: recipientID},
		Message: &message{Attachment: &attachment{
			Type:    "template",
			Payload: attachmentPayload{TemplateType: "generic", Elements: elements(cards)},
		}},
	})
}

func (c *Client) SendAttachment(ctx context.Context, recipientID, attachmentType, srcURL string) error {
	if attachmentType == "" {
		attachmentType = "file"
	}
	return c.post(ctx, sendRequest{
		Recipient: recipient{ID: recipientID},
		Message: &message{Attachment: &attachment{
			Type:    attachmentType,
			Payload: attachmentPayload{URL: srcURL},
		}},
	})
}

func (c *Client) TypingOn(ctx context.Context, recipientID string) error {
	return c.senderAction(ctx, recipientID, "typing_on")
}

func (c *Client) TypingOff(ctx context.Context, recipientID string) error {
	return c.senderAction(ctx, recipientID, "typing_off")
}

func (c *Client) senderAction(ctx context.Context, recipientID, action string) error {
	return c.post(ctx, sendRequest{
		Recipient:    recipient{ID: recipientID},
		SenderAction: action,
	})
}

func (c *Client) post(ctx context.Context, body sendRequest) error {
	b, _ := json.Marshal(body)

	u := c.baseURL + "/me/messages?access_token=" + url.QueryEscape(c.pageToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("send api status=%d body=%s", res.StatusCode, snippet)
	}

	return nil
}
