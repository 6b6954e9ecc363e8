package repository

import (
	"context"
	"errors"

	"smartline-backend/internal/db"
	"smartline-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

// ProductRepository manages the warehouse catalog. quantity is a derived
// balance: receipts add to it, work-order part usage subtracts from it, and it
// is allowed to go negative on over-consumption (accepted over-sell signal).
type ProductRepository struct {
	DB *db.Postgres
}

type ProductFilter struct {
	Search   string
	Category string
	LowStock bool
}

func (r ProductRepository) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	query := `
		SELECT id, sku, name, description, category, unit, purchase_price, quantity, min_quantity, is_active, created_at, updated_at
		FROM products
	`
	var where []string
	var args []any
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, "(name ILIKE $1 OR sku ILIKE $1)")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		switch len(args) {
		case 1:
			where = append(where, "category = $1")
		case 2:
			where = append(where, "category = $2")
		}
	}
	if f.LowStock {
		where = append(where, "quantity <= min_quantity")
	}
	if len(where) > 0 {
		query += " WHERE " + where[0]
		for _, w := range where[1:] {
			query += " AND " + w
		}
	}
	query += " ORDER BY name"

	rows, err := r.DB.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Unit,
			&p.PurchasePrice, &p.Quantity, &p.MinQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r ProductRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT id, sku, name, description, category, unit, purchase_price, quantity, min_quantity, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Unit,
		&p.PurchasePrice, &p.Quantity, &p.MinQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a product; a duplicate SKU reports ErrConflict.
func (r ProductRepository) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, description, category, unit, purchase_price, quantity, min_quantity)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, sku, name, description, category, unit, purchase_price, quantity, min_quantity, is_active, created_at, updated_at
	`, p.SKU, p.Name, p.Description, p.Category, p.Unit, p.PurchasePrice, p.Quantity, p.MinQuantity).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Unit,
			&p.PurchasePrice, &p.Quantity, &p.MinQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &p, nil
}

type UpdateProductInput struct {
	SKU           *string
	Name          *string
	Description   *string
	Category      *string
	Unit          *string
	PurchasePrice *float64
	Quantity      *int
	MinQuantity   *int
	Active        *bool
}

func (in UpdateProductInput) Empty() bool {
	return in.SKU == nil && in.Name == nil && in.Description == nil && in.Category == nil &&
		in.Unit == nil && in.PurchasePrice == nil && in.Quantity == nil && in.MinQuantity == nil &&
		in.Active == nil
}

func (r ProductRepository) Update(ctx context.Context, id int64, in UpdateProductInput) (*domain.Product, error) {
	var p domain.Product
	err := r.DB.Pool.QueryRow(ctx, `
		UPDATE products
		SET sku = COALESCE($1, sku),
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			category = COALESCE($4, category),
			unit = COALESCE($5, unit),
			purchase_price = COALESCE($6, purchase_price),
			quantity = COALESCE($7, quantity),
			min_quantity = COALESCE($8, min_quantity),
			is_active = COALESCE($9, is_active),
			updated_at = NOW()
		WHERE id = $10
		RETURNING id, sku, name, description, category, unit, purchase_price, quantity, min_quantity, is_active, created_at, updated_at
	`, in.SKU, in.Name, in.Description, in.Category, in.Unit, in.PurchasePrice, in.Quantity, in.MinQuantity, in.Active, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Unit,
			&p.PurchasePrice, &p.Quantity, &p.MinQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &p, nil
}

type ProductCategory struct {
	Name  string
	Count int64
}

func (r ProductRepository) Categories(ctx context.Context) ([]ProductCategory, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT category, COUNT(*)
		FROM products
		WHERE category <> '' AND category IS NOT NULL
		GROUP BY category
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []ProductCategory
	for rows.Next() {
		var c ProductCategory
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

type WarehouseSummary struct {
	TotalProducts  int64
	TotalQuantity  int64
	TotalValue     float64
	LowStock       int64
	TotalSuppliers int64
	TotalReceipts  int64
}

// Dashboard aggregates the warehouse header numbers in one round trip.
func (r ProductRepository) Dashboard(ctx context.Context) (WarehouseSummary, error) {
	var s WarehouseSummary
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products WHERE is_active = TRUE),
			(SELECT COALESCE(SUM(quantity), 0) FROM products WHERE is_active = TRUE),
			(SELECT COALESCE(SUM(purchase_price * quantity), 0) FROM products WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM products WHERE quantity <= min_quantity AND is_active = TRUE),
			(SELECT COUNT(*) FROM suppliers WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM stock_receipts)
	`).Scan(&s.TotalProducts, &s.TotalQuantity, &s.TotalValue, &s.LowStock, &s.TotalSuppliers, &s.TotalReceipts)
	return s, err
}
