package repository

import (
	"context"
	"errors"
	"time"

	"smartline-backend/internal/db"
	"smartline-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// AvitoRepository keeps the ledger of chats already converted into orders so
// repeated sync runs never create duplicates.
type AvitoRepository struct {
	DB *db.Postgres
}

func (r AvitoRepository) IsSynced(ctx context.Context, chatID string) (bool, error) {
	var exists bool
	err := r.DB.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM avito_synced_chats WHERE chat_id = $1)`, chatID).Scan(&exists)
	return exists, err
}

type SyncedChatInput struct {
	ChatID        string
	AvitoUserID   string
	LastMessageID string
	ClientName    string
	Phone         string
	Service       string
	Comment       string
}

// CreateOrderFromChat writes the order and the ledger row in one transaction:
// either the chat becomes an order and is marked synced, or neither happens.
func (r AvitoRepository) CreateOrderFromChat(ctx context.Context, in SyncedChatInput) (*domain.Order, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (client_name, phone, car_info, service, status, comment, source)
		VALUES ($1,$2,'',$3,'new',$4,'avito')
		RETURNING id, client_id, client_name, phone, car_info, service, status, comment, source, created_at
	`, in.ClientName, in.Phone, in.Service, in.Comment)
	o, err := scanOrder(row.Scan)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO avito_synced_chats (chat_id, avito_user_id, order_id, last_message_id)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (chat_id) DO NOTHING
	`, in.ChatID, in.AvitoUserID, o.ID, in.LastMessageID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

type SyncStats struct {
	TotalSynced int64
	LastSync    *time.Time
}

func (r AvitoRepository) Stats(ctx context.Context) (*SyncStats, error) {
	var s SyncStats
	if err := r.DB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM avito_synced_chats`).Scan(&s.TotalSynced); err != nil {
		return nil, err
	}
	var last pgtype.Timestamptz
	err := r.DB.Pool.QueryRow(ctx,
		`SELECT synced_at FROM avito_synced_chats ORDER BY synced_at DESC LIMIT 1`).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if last.Valid {
		s.LastSync = &last.Time
	}
	return &s, nil
}
