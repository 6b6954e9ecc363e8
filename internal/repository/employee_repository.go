package repository

import (
	"context"
	"errors"

	"smartline-backend/internal/db"
	"smartline-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type EmployeeRepository struct {
	DB *db.Postgres
}

func (r EmployeeRepository) List(ctx context.Context) ([]domain.Employee, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, role, phone, email, is_active, created_at
		FROM employees
		ORDER BY is_active DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Employee
	for rows.Next() {
		var e domain.Employee
		var role string
		if err := rows.Scan(&e.ID, &e.Name, &role, &e.Phone, &e.Email, &e.Active, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Role = domain.EmployeeRole(role)
		items = append(items, e)
	}
	return items, rows.Err()
}

type CreateEmployeeInput struct {
	Name  string
	Role  domain.EmployeeRole
	Phone string
	Email string
}

func (r EmployeeRepository) Create(ctx context.Context, in CreateEmployeeInput) (*domain.Employee, error) {
	var e domain.Employee
	var role string
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO employees (name, role, phone, email)
		VALUES ($1,$2,$3,$4)
		RETURNING id, name, role, phone, email, is_active, created_at
	`, in.Name, in.Role, in.Phone, in.Email).
		Scan(&e.ID, &e.Name, &role, &e.Phone, &e.Email, &e.Active, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Role = domain.EmployeeRole(role)
	return &e, nil
}

type UpdateEmployeeInput struct {
	Name   *string
	Role   *domain.EmployeeRole
	Phone  *string
	Email  *string
	Active *bool
}

func (in UpdateEmployeeInput) Empty() bool {
	return in.Name == nil && in.Role == nil && in.Phone == nil && in.Email == nil && in.Active == nil
}

func (r EmployeeRepository) Update(ctx context.Context, id int64, in UpdateEmployeeInput) (*domain.Employee, error) {
	var e domain.Employee
	var role string
	err := r.DB.Pool.QueryRow(ctx, `
		UPDATE employees
		SET name = COALESCE($1, name),
			role = COALESCE($2, role),
			phone = COALESCE($3, phone),
			email = COALESCE($4, email),
			is_active = COALESCE($5, is_active)
		WHERE id = $6
		RETURNING id, name, role, phone, email, is_active, created_at
	`, in.Name, in.Role, in.Phone, in.Email, in.Active, id).
		Scan(&e.ID, &e.Name, &role, &e.Phone, &e.Email, &e.Active, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.Role = domain.EmployeeRole(role)
	return &e, nil
}

// Delete removes an employee outright when nothing references them; an
// employee attached to work orders is deactivated instead so history keeps
// its names. On deactivation the refreshed row is returned alongside true.
func (r EmployeeRepository) Delete(ctx context.Context, id int64) (*domain.Employee, bool, error) {
	var refs int64
	err := r.DB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM work_orders WHERE employee_id = $1`, id).Scan(&refs)
	if err != nil {
		return nil, false, err
	}
	if refs > 0 {
		var e domain.Employee
		var role string
		err := r.DB.Pool.QueryRow(ctx, `
			UPDATE employees SET is_active = FALSE WHERE id = $1
			RETURNING id, name, role, phone, email, is_active, created_at
		`, id).Scan(&e.ID, &e.Name, &role, &e.Phone, &e.Email, &e.Active, &e.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, false, ErrNotFound
			}
			return nil, false, err
		}
		e.Role = domain.EmployeeRole(role)
		return &e, true, nil
	}
	ct, err := r.DB.Pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return nil, false, err
	}
	if ct.RowsAffected() == 0 {
		return nil, false, ErrNotFound
	}
	return nil, false, nil
}
