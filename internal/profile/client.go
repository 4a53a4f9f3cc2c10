// Package profile resolves user profiles through the Graph API.
package profile

import (
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

type Client struct {
	baseURL   string
	pageToken string
	client    *http.Client
}

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

// Fetch loads the sender's public profile fields.
func (c *Client) Fetch(ctx context.Context, senderID string) (*model.UserProfile, error) {
	u := fmt.Sprintf("%s/%s?fields=first_name,last_name,profile_pic,locale,timezone,gender&access_token=%s",
		c.baseURL, url.PathEscape(senderID), url.QueryEscape(c.pageToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("profile status=%d body=%s", res.StatusCode, snippet)
	}

	var p model.UserProfile
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = senderID
	}
	return &p, nil
}
