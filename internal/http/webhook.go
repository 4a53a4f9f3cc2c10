package http

import (
	"context"
	"net/http"

	"github.com/doinghun/merlabot-public/internal/bot"
	"github.com/doinghun/merlabot-public/internal/model"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// verifyWebhookHandler answers the platform's subscription handshake: echo
// the challenge back when the verify token matches, 403 otherwise.
func verifyWebhookHandler(verifyToken string) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode := c.QueryParam("hub.mode")
		token := c.QueryParam("hub.verify_token")
		challenge := c.QueryParam("hub.challenge")

		if mode == "subscribe" && token == verifyToken {
			return c.String(http.StatusOK, challenge)
		}

		log.Warn("webhook verification failed: token mismatch")
		return c.NoContent(http.StatusForbidden)
	}
}

// eventsHandler accepts a webhook event batch and acknowledges it
// immediately. Dispatch runs on its own goroutine: ack latency must not
// depend on NLU round trips or outbound sends.
func eventsHandler(b *bot.Bot) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body model.WebhookBody
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		if body.Object != "page" {
			return c.NoContent(http.StatusNotFound)
		}

		go b.HandleWebhook(context.Background(), body)

		return c.NoContent(http.StatusOK)
	}
}
