package bot

import (
	"context"
	"time"

	"github.com/doinghun/merlabot-public/internal/logger"
	"github.com/doinghun/merlabot-public/internal/metrics"
	"github.com/doinghun/merlabot-public/internal/model"
	"go.uber.org/zap"
)

// HandleWebhook fans a webhook body out to per-event handlers. The HTTP
// layer calls this on its own goroutine and acknowledges the platform
// immediately; nothing here may assume the request is still open.
func (b *Bot) HandleWebhook(ctx context.Context, body model.WebhookBody) {
	for _, entry := range body.Entry {
		// Secondary receiver is in control: observe only.
		for _, ev := range entry.Standby {
			metrics.WebhookEventsTotal.WithLabelValues(classify(ev), "standby").Inc()
			logger.L().Info("standby event observed",
				zap.String("page_id", entry.ID),
				zap.String("sender_id", ev.Sender.ID))
		}

		for _, ev := range entry.Messaging {
			metrics.WebhookEventsTotal.WithLabelValues(classify(ev), "active").Inc()
			b.handleEvent(ctx, ev)
		}
	}
}

func classify(ev model.MessagingEvent) string {
	switch {
	case ev.Optin != nil:
		return "optin"
	case ev.Message != nil:
		return "message"
	case ev.Delivery != nil:
		return "delivery"
	case ev.Postback != nil:
		return "postback"
	case ev.Read != nil:
		return "read"
	case ev.AccountLinking != nil:
		return "account_linking"
	case ev.PassThreadControl != nil:
		return "pass_thread_control"
	default:
		return "unknown"
	}
}

// handleEvent dispatches one active-channel event. First match wins.
func (b *Bot) handleEvent(ctx context.Context, ev model.MessagingEvent) {
	switch {
	case ev.Optin != nil:
		b.receivedAuthentication(ev)
	case ev.Message != nil:
		b.receivedMessage(ctx, ev)
	case ev.Delivery != nil:
		b.receivedDeliveryConfirmation(ev)
	case ev.Postback != nil:
		b.receivedPostback(ctx, ev)
	case ev.Read != nil:
		b.receivedMessageRead(ev)
	case ev.AccountLinking != nil:
		b.receivedAccountLink(ev)
	case ev.PassThreadControl != nil:
		// thread control handed to us; nothing to do with the metadata yet
	default:
		logger.L().Warn("unknown messaging event",
			zap.String("sender_id", ev.Sender.ID),
			zap.Int64("timestamp", ev.Timestamp))
	}
}

func (b *Bot) receivedMessage(ctx context.Context, ev model.MessagingEvent) {
	senderID := ev.Sender.ID
	msg := ev.Message

	b.registry.EnsureSession(senderID)
	b.registry.EnsureUser(ctx, senderID)

	if msg.IsEcho {
		logger.L().Debug("echo message",
			zap.String("mid", msg.MID),
			zap.Int64("app_id", msg.AppID),
			zap.String("metadata", msg.Metadata))
		return
	}

	switch {
	case msg.QuickReply != nil:
		b.routeQuickReply(ctx, senderID, msg.QuickReply.Payload)
	case msg.Text != "":
		go b.queryText(ctx, senderID, msg.Text)
	case len(msg.Attachments) > 0:
		b.handleMessageAttachments(ctx, senderID, msg.Attachments)
	}
}

func (b *Bot) receivedPostback(ctx context.Context, ev model.MessagingEvent) {
	senderID := ev.Sender.ID
	payload := ev.Postback.Payload

	b.registry.EnsureSession(senderID)
	b.registry.EnsureUser(ctx, senderID)

	switch payload {
	case "FACEBOOK_WELCOME", "GET_STARTED":
		b.greetUser(ctx, senderID)
	case "FOOD_TYPE":
		go b.queryEvent(ctx, senderID, "FOOD_TYPE")
	default:
		b.deliver(ctx, senderID, model.Directive{Kind: model.DirectiveText, Text: postbackUnknownText})
	}

	logger.L().Info("postback received",
		zap.String("sender_id", senderID),
		zap.String("payload", payload))
}

// routeQuickReply maps a quick-reply payload either to a named NLU event or,
// for anything unrecognized, back into a free-text query. There is no error
// path here.
func (b *Bot) routeQuickReply(ctx context.Context, senderID, payload string) {
	switch payload {
	case "HOME":
		go b.queryEvent(ctx, senderID, "FACEBOOK_WELCOME")
	case "MENU_RECOMMENDATION":
		go b.queryEvent(ctx, senderID, "MENU_RECOMMENDATION")
	case "FOOD_TYPE":
		go b.queryEvent(ctx, senderID, "FOOD_TYPE")
	default:
		go b.queryText(ctx, senderID, payload)
	}
}

func (b *Bot) handleMessageAttachments(ctx context.Context, senderID string, atts []model.InboundAttachment) {
	logger.L().Info("attachments received",
		zap.String("sender_id", senderID),
		zap.Int("count", len(atts)))
	b.deliver(ctx, senderID, model.Directive{Kind: model.DirectiveText, Text: attachmentAckText})
}

// greetUser sends the welcome flow once the sender's profile is around. A
// cold cache gets one retry after two seconds; the fetch was kicked off by
// EnsureUser already.
func (b *Bot) greetUser(ctx context.Context, senderID string) {
	if _, ok := b.registry.User(senderID); !ok {
		b.sched.AfterFunc(2*time.Second, func() {
			b.typingOn(ctx, senderID)
			b.queryEvent(ctx, senderID, "FACEBOOK_WELCOME")
		})
		return
	}
	b.typingOn(ctx, senderID)
	go b.queryEvent(ctx, senderID, "FACEBOOK_WELCOME")
}

// --- log-only handlers ---

func (b *Bot) receivedAuthentication(ev model.MessagingEvent) {
	logger.L().Info("authentication received",
		zap.String("sender_id", ev.Sender.ID),
		zap.String("ref", ev.Optin.Ref),
		zap.Int64("timestamp", ev.Timestamp))
}

func (b *Bot) receivedDeliveryConfirmation(ev model.MessagingEvent) {
	for _, mid := range ev.Delivery.MIDs {
		logger.L().Debug("delivery confirmed", zap.String("mid", mid))
	}
	logger.L().Debug("delivery watermark",
		zap.String("sender_id", ev.Sender.ID),
		zap.Int64("watermark", ev.Delivery.Watermark))
}

func (b *Bot) receivedMessageRead(ev model.MessagingEvent) {
	logger.L().Debug("message read",
		zap.String("sender_id", ev.Sender.ID),
		zap.Int64("watermark", ev.Read.Watermark),
		zap.Int64("seq", ev.Read.Seq))
}

func (b *Bot) receivedAccountLink(ev model.MessagingEvent) {
	logger.L().Info("account linking",
		zap.String("sender_id", ev.Sender.ID),
		zap.String("status", ev.AccountLinking.Status))
}
