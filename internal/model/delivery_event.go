package model

import "time"

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliveryDropped DeliveryStatus = "dropped"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) Valid() bool {
	return s == DeliverySent || s == DeliveryFailed || s == DeliveryDropped
}

// DeliveryEvent is the best-effort observability record published per outbound
// directive (and per silently dropped choreography step).
type DeliveryEvent struct {
	ID          string    `json:"id" db:"id"`
	RecipientID string    `json:"recipient_id" db:"recipient_id"`
	Kind        string    `json:"kind" db:"kind"`     // directive kind, or "typing"
	Status      string    `json:"status" db:"status"` // sent|failed|dropped
	Detail      string    `json:"detail,omitempty" db:"detail"`
	At          time.Time `json:"at" db:"at"`
}
