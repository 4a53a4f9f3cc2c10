package repository

import (
	"context"

	"github.com/doinghun/merlabot-public/internal/model"
	"github.com/jmoiron/sqlx"
)

// DeliveriesRepository stores and lists delivery events in ClickHouse.
type DeliveriesRepository interface {
	InsertBatch(ctx context.Context, events []model.DeliveryEvent) error
	ListRecent(ctx context.Context, recipientID, status string, limit, offset int) ([]model.DeliveryEvent, error)
}

type deliveriesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewDeliveriesRepository(ch *sqlx.DB) DeliveriesRepository {
	return &deliveriesRepository{ch: ch}
}

func (r *deliveriesRepository) InsertBatch(ctx context.Context, events []model.DeliveryEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO delivery_events (id, recipient_id, kind, status, detail, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.ID, ev.RecipientID, ev.Kind, ev.Status, ev.Detail, ev.At); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *deliveriesRepository) ListRecent(ctx context.Context, recipientID, status string, limit, offset int) ([]model.DeliveryEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, recipient_id, kind, status, detail, at
		FROM delivery_events
		WHERE 1 = 1
	`
	var args []any

	if recipientID != "" {
		q += " AND recipient_id = ?"
		args = append(args, recipientID)
	}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}

	q += " ORDER BY at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.DeliveryEvent
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
