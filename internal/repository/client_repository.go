package repository

import (
	"context"
	"errors"

	"smartline-backend/internal/db"
	"smartline-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type ClientRepository struct {
	DB *db.Postgres
}

// List returns all clients newest-first with their active cars attached.
// Cars are fetched in one query and grouped in memory by client id.
func (r ClientRepository) List(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, phone, email, comment, created_at
		FROM clients
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		var email, comment pgtype.Text
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &email, &comment, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Email = email.String
		c.Comment = comment.String
		c.Cars = []domain.Car{}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return clients, nil
	}

	carRows, err := r.DB.Pool.Query(ctx, `
		SELECT id, client_id, brand, model, year, vin
		FROM cars
		WHERE is_active = TRUE
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer carRows.Close()

	carsByClient := make(map[int64][]domain.Car)
	for carRows.Next() {
		var car domain.Car
		var year, vin pgtype.Text
		if err := carRows.Scan(&car.ID, &car.ClientID, &car.Brand, &car.Model, &year, &vin); err != nil {
			return nil, err
		}
		car.Year = year.String
		car.VIN = vin.String
		car.Active = true
		carsByClient[car.ClientID] = append(carsByClient[car.ClientID], car)
	}
	if err := carRows.Err(); err != nil {
		return nil, err
	}

	for i := range clients {
		if cars, ok := carsByClient[clients[i].ID]; ok {
			clients[i].Cars = cars
		}
	}
	return clients, nil
}

func (r ClientRepository) Create(ctx context.Context, c domain.Client) (*domain.Client, error) {
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO clients (name, phone, email, comment)
		VALUES ($1,$2,$3,$4)
		RETURNING id, name, phone, email, comment, created_at
	`, c.Name, c.Phone, c.Email, c.Comment).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Comment, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Cars = []domain.Car{}
	return &c, nil
}

type UpdateClientInput struct {
	Name    *string
	Phone   *string
	Email   *string
	Comment *string
}

func (in UpdateClientInput) Empty() bool {
	return in.Name == nil && in.Phone == nil && in.Email == nil && in.Comment == nil
}

func (r ClientRepository) Update(ctx context.Context, id int64, in UpdateClientInput) (*domain.Client, error) {
	var c domain.Client
	err := r.DB.Pool.QueryRow(ctx, `
		UPDATE clients
		SET name = COALESCE($1, name),
			phone = COALESCE($2, phone),
			email = COALESCE($3, email),
			comment = COALESCE($4, comment)
		WHERE id = $5
		RETURNING id, name, phone, email, comment, created_at
	`, in.Name, in.Phone, in.Email, in.Comment, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Comment, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Cars = []domain.Car{}
	return &c, nil
}

func (r ClientRepository) AddCar(ctx context.Context, car domain.Car) (*domain.Car, error) {
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO cars (client_id, brand, model, year, vin)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, client_id, brand, model, year, vin, is_active
	`, car.ClientID, car.Brand, car.Model, car.Year, car.VIN).
		Scan(&car.ID, &car.ClientID, &car.Brand, &car.Model, &car.Year, &car.VIN, &car.Active)
	if err != nil {
		return nil, err
	}
	return &car, nil
}

// DeleteCar soft-deletes: the row stays for referential history.
func (r ClientRepository) DeleteCar(ctx context.Context, carID int64) error {
	ct, err := r.DB.Pool.Exec(ctx, `UPDATE cars SET is_active = FALSE WHERE id = $1`, carID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
