package repository

import (
	"context"
	"errors"

	"smartline-backend/internal/db"
	"smartline-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type SupplierRepository struct {
	DB *db.Postgres
}

// List returns suppliers with their receipt count and lifetime supplied total.
func (r SupplierRepository) List(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT s.id, s.name, s.contact_person, s.phone, s.email, s.inn, s.address, s.notes, s.is_active, s.created_at,
		       COUNT(sr.id), COALESCE(SUM(sr.total_amount), 0)
		FROM suppliers s
		LEFT JOIN stock_receipts sr ON sr.supplier_id = s.id
		GROUP BY s.id
		ORDER BY s.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Supplier
	for rows.Next() {
		var s domain.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.INN, &s.Address, &s.Notes,
			&s.Active, &s.CreatedAt, &s.ReceiptCount, &s.TotalSupplied); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r SupplierRepository) Create(ctx context.Context, s domain.Supplier) (*domain.Supplier, error) {
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, contact_person, phone, email, inn, address, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, name, contact_person, phone, email, inn, address, notes, is_active, created_at
	`, s.Name, s.ContactPerson, s.Phone, s.Email, s.INN, s.Address, s.Notes).
		Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.INN, &s.Address, &s.Notes, &s.Active, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type UpdateSupplierInput struct {
	Name          *string
	ContactPerson *string
	Phone         *string
	Email         *string
	INN           *string
	Address       *string
	Notes         *string
	Active        *bool
}

func (in UpdateSupplierInput) Empty() bool {
	return in.Name == nil && in.ContactPerson == nil && in.Phone == nil && in.Email == nil &&
		in.INN == nil && in.Address == nil && in.Notes == nil && in.Active == nil
}

func (r SupplierRepository) Update(ctx context.Context, id int64, in UpdateSupplierInput) (*domain.Supplier, error) {
	var s domain.Supplier
	err := r.DB.Pool.QueryRow(ctx, `
		UPDATE suppliers
		SET name = COALESCE($1, name),
			contact_person = COALESCE($2, contact_person),
			phone = COALESCE($3, phone),
			email = COALESCE($4, email),
			inn = COALESCE($5, inn),
			address = COALESCE($6, address),
			notes = COALESCE($7, notes),
			is_active = COALESCE($8, is_active)
		WHERE id = $9
		RETURNING id, name, contact_person, phone, email, inn, address, notes, is_active, created_at
	`, in.Name, in.ContactPerson, in.Phone, in.Email, in.INN, in.Address, in.Notes, in.Active, id).
		Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.INN, &s.Address, &s.Notes, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
