// Package events publishes per-directive delivery events to Kafka so that
// fire-and-forget sends and silently dropped choreography steps stay
// observable. The emitter is optional: a nil *Emitter swallows everything.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/doinghun/merlabot-public/internal/kafka"
	"github.com/doinghun/merlabot-public/internal/logger"
	"github.com/doinghun/merlabot-public/internal/model"
	"github.com/doinghun/merlabot-public/internal/util"
	"go.uber.org/zap"
)

type Emitter struct {
	producer *kafka.Producer
}

func NewEmitter(producer *kafka.Producer) *Emitter {
	return &Emitter{producer: producer}
}

// Emit publishes one delivery event, keyed by recipient so per-sender events
// stay ordered within a partition. Publish failures are logged and dropped.
func (e *Emitter) Emit(ctx context.Context, recipientID, kind string, status model.DeliveryStatus, detail string) {
	if e == nil || e.producer == nil {
		return
	}

	ev := model.DeliveryEvent{
		ID:          util.New(),
		RecipientID: recipientID,
		Kind:        kind,
		Status:      status.String(),
		Detail:      detail,
		At:          time.Now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	if err := e.producer.Publish(ctx, []byte(recipientID), payload); err != nil {
		logger.L().Warn("delivery event publish failed",
			zap.String("recipient_id", recipientID), zap.Error(err))
	}
}

func (e *Emitter) Close() error {
	if e == nil || e.producer == nil {
		return nil
	}
	return e.producer.Close()
}
