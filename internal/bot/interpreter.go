package bot

import (
	"context"

	"github.com/doinghun/merlabot-public/internal/logger"
	"github.com/doinghun/merlabot-public/internal/metrics"
	"github.com/doinghun/merlabot-public/internal/model"
	"go.uber.org/zap"
)

// queryText forwards free text to the NLU backend under the sender's
// correlation id. NLU failures are contained here: logged, counted, and the
// reply is dropped.
func (b *Bot) queryText(ctx context.Context, senderID, text string) {
	correlationID := b.registry.EnsureSession(senderID)
	b.typingOn(ctx, senderID)

	resp, err := b.detector.DetectText(ctx, correlationID, text)
	if err != nil {
		metrics.NLURequestsTotal.WithLabelValues("text", "error").Inc()
		logger.L().Error("detect intent (text) failed",
			zap.String("sender_id", senderID), zap.Error(err))
		b.typingOff(ctx, senderID)
		return
	}
	metrics.NLURequestsTotal.WithLabelValues("text", "ok").Inc()

	b.HandleNLUResponse(ctx, senderID, resp)
}

// queryEvent triggers a named NLU event instead of free text.
func (b *Bot) queryEvent(ctx context.Context, senderID, eventName string) {
	correlationID := b.registry.EnsureSession(senderID)

	resp, err := b.detector.DetectEvent(ctx, correlationID, eventName)
	if err != nil {
		metrics.NLURequestsTotal.WithLabelValues("event", "error").Inc()
		logger.L().Error("detect intent (event) failed",
			zap.String("sender_id", senderID),
			zap.String("event", eventName), zap.Error(err))
		b.typingOff(ctx, senderID)
		return
	}
	metrics.NLURequestsTotal.WithLabelValues("event", "ok").Inc()

	b.HandleNLUResponse(ctx, senderID, resp)
}

// HandleNLUResponse interprets one NLU response. Decision order: named
// action choreography, then fulfillment messages, then the clarification
// fallback when the backend produced nothing, then plain fulfillment text.
func (b *Bot) HandleNLUResponse(ctx context.Context, senderID string, resp *model.NLUResponse) {
	b.typingOff(ctx, senderID)

	switch {
	case resp.Action != "":
		b.dispatchAction(ctx, senderID, ParseAction(resp.Action), resp)
	case len(resp.FulfillmentMessages) > 0:
		b.scheduleDirectives(senderID, PaceMessages(resp.FulfillmentMessages, b.quantum))
	case resp.FulfillmentText == "":
		b.deliver(ctx, senderID, model.Directive{Kind: model.DirectiveText, Text: fallbackText})
	default:
		b.deliver(ctx, senderID, model.Directive{Kind: model.DirectiveText, Text: resp.FulfillmentText})
	}
}
