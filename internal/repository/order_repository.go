package repository

import (
	"context"

	"smartline-backend/internal/db"
	"smartline-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
)

type OrderRepository struct {
	DB *db.Postgres
}

func (r OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, client_id, client_name, phone, car_info, service, status, comment, source, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

type CreateOrderInput struct {
	ClientID   *int64
	ClientName string
	Phone      string
	CarInfo    string
	Service    string
	Comment    string
	Source     string
}

func (r OrderRepository) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO orders (client_id, client_name, phone, car_info, service, status, comment, source)
		VALUES ($1,$2,$3,$4,$5,'new',$6,$7)
		RETURNING id, client_id, client_name, phone, car_info, service, status, comment, source, created_at
	`, in.ClientID, in.ClientName, in.Phone, in.CarInfo, in.Service, in.Comment, in.Source)
	return scanOrder(row.Scan)
}

func (r OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	ct, err := r.DB.Pool.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOrder(scan func(...any) error) (*domain.Order, error) {
	var o domain.Order
	var clientID pgtype.Int8
	var phone, carInfo, service, comment, source pgtype.Text
	var status string
	if err := scan(&o.ID, &clientID, &o.ClientName, &phone, &carInfo, &service, &status, &comment, &source, &o.CreatedAt); err != nil {
		return nil, err
	}
	if clientID.Valid {
		o.ClientID = &clientID.Int64
	}
	o.Phone = phone.String
	o.CarInfo = carInfo.String
	o.Service = service.String
	o.Status = domain.OrderStatus(status)
	o.Comment = comment.String
	o.Source = source.String
	return &o, nil
}
