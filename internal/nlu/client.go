// Package nlu talks to the Dialogflow v2 detectIntent REST endpoint and maps
// its response into the bot's own message model.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/doinghun/merlabot-public/internal/model"
)

// Detector is the interface the bot core detects intents through. The
// correlation id groups all calls for one sender into one conversation.
type Detector interface {
	DetectText(ctx context.Context, correlationID, text string) (*model.NLUResponse, error)
	DetectEvent(ctx context.Context, correlationID, eventName string) (*model.NLUResponse, error)
}

type Client struct {
	baseURL      string
	projectID    string
	languageCode string
	token        string
	client       *http.Client
}

var _ Detector = (*Client)(nil)

func NewClient(baseURL, projectID, languageCode, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		projectID:    projectID,
		languageCode: languageCode,
		token:        token,
		client:       &http.Client{Timeout: timeout},
	}
}

func (c *Client) DetectText(ctx context.Context, correlationID, text string) (*model.NLUResponse, error) {
	return c.detect(ctx, correlationID, queryInput{
		Text: &textInput{Text: text, LanguageCode: c.languageCode},
	})
}

func (c *Client) DetectEvent(ctx context.Context, correlationID, eventName string) (*model.NLUResponse, error) {
	return c.detect(ctx, correlationID, queryInput{
		Event: &eventInput{Name: eventName, LanguageCode: c.languageCode},
	})
}

func (c *Client) detect(ctx context.Context, correlationID string, qi queryInput) (*model.NLUResponse, error) {
	body, _ := json.Marshal(detectRequest{QueryInput: qi})

	u := fmt.Sprintf("%s/projects/%s/agent/sessions/%s:detectIntent",
		c.baseURL, c.projectID, correlationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("detect intent status=%d body=%s", res.StatusCode, snippet)
	}

	var dr detectResponse
	if err := json.NewDecoder(res.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decode detect intent response: %w", err)
	}

	return dr.QueryResult.toModel(), nil
}

// ---- wire shapes ----

type detectRequest struct {
	QueryInput queryInput `json:"queryInput"`
}

type queryInput struct {
	Text  *textInput  `json:"text,omitempty"`
	Event *eventInput `json:"event,omitempty"`
}

type textInput struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type eventInput struct {
	Name         string `json:"name"`
	LanguageCode string `json:"languageCode"`
}

type detectResponse struct {
	QueryResult queryResult `json:"queryResult"`
}

type queryResult struct {
	FulfillmentText     string                `json:"fulfillmentText"`
	FulfillmentMessages []fulfillmentMessage  `json:"fulfillmentMessages"`
	Action              string                `json:"action"`
	OutputContexts      []model.OutputContext `json:"outputContexts"`
	Parameters          map[string]any        `json:"parameters"`
}

type fulfillmentMessage struct {
	Text  *wireText  `json:"text,omitempty"`
	Card  *wireCard  `json:"card,omitempty"`
	Image *wireImage `json:"image,omitempty"`
}

type wireText struct {
	Text []string `json:"text"`
}

type wireCard struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle,omitempty"`
	ImageURI string           `json:"imageUri,omitempty"`
	Buttons  []wireCardButton `json:"buttons,omitempty"`
}

type wireCardButton struct {
	Text     string `json:"text"`
	Postback string `json:"postback"`
}

type wireImage struct {
	ImageURI string `json:"imageUri"`
}

func (qr queryResult) toModel() *model.NLUResponse {
	out := &model.NLUResponse{
		FulfillmentText: qr.FulfillmentText,
		Action:          qr.Action,
		OutputContexts:  qr.OutputContexts,
		Parameters:      qr.Parameters,
	}
	for _, m := range qr.FulfillmentMessages {
		switch {
		case m.Card != nil:
			card := model.Card{
				Title:    m.Card.Title,
				Subtitle: m.Card.Subtitle,
				ImageURL: m.Card.ImageURI,
			}
			for _, b := range m.Card.Buttons {
				card.Buttons = append(card.Buttons, model.CardButton{Title: b.Text, URL: b.Postback})
			}
			if len(card.Buttons) > 0 {
				card.URL = card.Buttons[0].URL
			}
			out.FulfillmentMessages = append(out.FulfillmentMessages, model.Message{
				Kind: model.KindCard,
				Card: &card,
			})
		case m.Image != nil:
			out.FulfillmentMessages = append(out.FulfillmentMessages, model.Message{
				Kind:          model.KindAttachment,
				AttachmentURL: m.Image.ImageURI,
			})
		case m.Text != nil:
			if len(m.Text.Text) == 0 {
				continue
			}
			out.FulfillmentMessages = append(out.FulfillmentMessages, model.Message{
				Kind: model.KindText,
				Text: m.Text.Text[0],
			})
		}
	}
	return out
}
