// Package bot is the orchestration core: it classifies inbound webhook
// events, keeps per-sender session state, interprets NLU responses, and turns
// them into paced outbound sends.
package bot

import (
	"context"
	"time"

	"github.com/doinghun/merlabot-public/internal/events"
	"github.com/doinghun/merlabot-public/internal/logger"
	"github.com/doinghun/merlabot-public/internal/messenger"
	"github.com/doinghun/merlabot-public/internal/metrics"
	"github.com/doinghun/merlabot-public/internal/model"
	"github.com/doinghun/merlabot-public/internal/nlu"
	"github.com/doinghun/merlabot-public/internal/restaurant"
	"github.com/doinghun/merlabot-public/internal/schedule"
	"github.com/doinghun/merlabot-public/internal/session"
	"go.uber.org/zap"
)

const fallbackText = "I'm not sure what you want. Can you be more specific?"

type Bot struct {
	registry    *session.Registry
	detector    nlu.Detector
	sender      messenger.Sender
	restaurants restaurant.Finder
	sched       schedule.Scheduler
	emitter     *events.Emitter // nil => events disabled

	quantum       time.Duration
	serverURL     string
	lookupTimeout time.Duration
}

type Options struct {
	Registry    *session.Registry
	Detector    nlu.Detector
	Sender      messenger.Sender
	Restaurants restaurant.Finder
	Scheduler   schedule.Scheduler
	Emitter     *events.Emitter

	Quantum       time.Duration // pacing quantum, default 1100ms
	ServerURL     string        // public base URL for static assets
	LookupTimeout time.Duration // restaurant lookup budget, default 5s
}

func New(opts Options) *Bot {
	if opts.Quantum <= 0 {
		opts.Quantum = 1100 * time.Millisecond
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 5 * time.Second
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.Wall{}
	}
	return &Bot{
		registry:      opts.Registry,
		detector:      opts.Detector,
		sender:        opts.Sender,
		restaurants:   opts.Restaurants,
		sched:         opts.Scheduler,
		emitter:       opts.Emitter,
		quantum:       opts.Quantum,
		serverURL:     opts.ServerURL,
		lookupTimeout: opts.LookupTimeout,
	}
}

// Registry exposes the session registry (used by the HTTP surface for health
// introspection).
func (b *Bot) Registry() *session.Registry { return b.registry }

// scheduleDirectives queues every directive at its offset. The recipient id
// is captured now; nothing re-reads session state at fire time.
func (b *Bot) scheduleDirectives(recipientID string, directives []model.Directive) {
	for _, d := range directives {
		d := d
		b.sched.AfterFunc(d.Offset, func() {
			b.deliver(context.Background(), recipientID, d)
		})
	}
}

// deliver performs one send. Failures are logged, counted, and published as
// delivery events; they never propagate.
func (b *Bot) deliver(ctx context.Context, recipientID string, d model.Directive) {
	var err error
	switch d.Kind {
	case model.DirectiveText:
		err = b.sender.SendText(ctx, recipientID, d.Text)
	case model.DirectiveQuickReply:
		err = b.sender.SendQuickReply(ctx, recipientID, d.Text, d.Replies)
	case model.DirectiveCarousel:
		err = b.sender.SendCarousel(ctx, recipientID, d.Cards)
	case model.DirectiveAttachment:
		err = b.sender.SendAttachment(ctx, recipientID, "image", d.URL)
	case model.DirectiveGif:
		err = b.sender.SendAttachment(ctx, recipientID, "image", d.URL)
	default:
		logger.L().Warn("unknown directive kind", zap.String("kind", d.Kind.String()))
		return
	}

	if err != nil {
		logger.L().Warn("send failed",
			zap.String("recipient_id", recipientID),
			zap.String("kind", d.Kind.String()),
			zap.Error(err))
		metrics.DirectivesTotal.WithLabelValues(d.Kind.String(), "failed").Inc()
		b.emitter.Emit(ctx, recipientID, d.Kind.String(), model.DeliveryFailed, err.Error())
		return
	}

	metrics.DirectivesTotal.WithLabelValues(d.Kind.String(), "sent").Inc()
	b.emitter.Emit(ctx, recipientID, d.Kind.String(), model.DeliverySent, "")
}

// typingOn/typingOff are best-effort sender actions outside the directive
// pipeline; they carry no payload worth counting.
func (b *Bot) typingOn(ctx context.Context, recipientID string) {
	if err := b.sender.TypingOn(ctx, recipientID); err != nil {
		logger.L().Debug("typing_on failed", zap.String("recipient_id", recipientID), zap.Error(err))
	}
}

func (b *Bot) typingOff(ctx context.Context, recipientID string) {
	if err := b.sender.TypingOff(ctx, recipientID); err != nil {
		logger.L().Debug("typing_off failed", zap.String("recipient_id", recipientID), zap.Error(err))
	}
}
