package repository

import (
	"context"
	"errors"

	"smartline-backend/internal/db"
	"smartline-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ReceiptRepository records supplier deliveries. Creating a receipt is the
// only way inventory grows: each item row increments its product's quantity
// and overwrites the purchase price (last receipt price wins), all inside the
// receipt's transaction.
type ReceiptRepository struct {
	DB *db.Postgres
}

func (r ReceiptRepository) List(ctx context.Context) ([]domain.StockReceipt, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT sr.id, sr.receipt_number, sr.supplier_id, sr.document_number, sr.document_date,
		       sr.total_amount, sr.notes, sr.created_at,
		       COALESCE(s.name, ''), COUNT(sri.id)
		FROM stock_receipts sr
		LEFT JOIN suppliers s ON s.id = sr.supplier_id
		LEFT JOIN stock_receipt_items sri ON sri.receipt_id = sr.id
		GROUP BY sr.id, s.name
		ORDER BY sr.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.StockReceipt
	for rows.Next() {
		sr, err := scanReceipt(rows.Scan, true)
		if err != nil {
			return nil, err
		}
		items = append(items, *sr)
	}
	return items, rows.Err()
}

// Get loads a receipt with its item lines joined to product sku/name/unit.
func (r ReceiptRepository) Get(ctx context.Context, id int64) (*domain.StockReceipt, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT sr.id, sr.receipt_number, sr.supplier_id, sr.document_number, sr.document_date,
		       sr.total_amount, sr.notes, sr.created_at,
		       COALESCE(s.name, '')
		FROM stock_receipts sr
		LEFT JOIN suppliers s ON s.id = sr.supplier_id
		WHERE sr.id = $1
	`, id)
	sr, err := scanReceipt(row.Scan, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.DB.Pool.Query(ctx, `
		SELECT sri.id, sri.receipt_id, sri.product_id, sri.quantity, sri.price,
		       p.sku, p.name, p.unit
		FROM stock_receipt_items sri
		JOIN products p ON p.id = sri.product_id
		WHERE sri.receipt_id = $1
		ORDER BY sri.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.StockReceiptItem
		if err := rows.Scan(&it.ID, &it.ReceiptID, &it.ProductID, &it.Quantity, &it.Price,
			&it.ProductSKU, &it.ProductName, &it.Unit); err != nil {
			return nil, err
		}
		sr.Items = append(sr.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sr.ItemCount = int64(len(sr.Items))
	return sr, nil
}

type CreateReceiptInput struct {
	SupplierID     *int64
	DocumentNumber string
	DocumentDate   *string
	Notes          string
	Items          []CreateReceiptItem
}

type CreateReceiptItem struct {
	ProductID int64
	Quantity  int
	Price     float64
}

// Create allocates the next sequential receipt number, computes the total at
// insert time and applies every item's inventory increment in one transaction.
// Items with no product or non-positive quantity are dropped.
func (r ReceiptRepository) Create(ctx context.Context, in CreateReceiptInput) (*domain.StockReceipt, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var nextID int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM stock_receipts`).Scan(&nextID); err != nil {
		return nil, err
	}

	total := receiptTotal(in.Items)

	row := tx.QueryRow(ctx, `
		INSERT INTO stock_receipts (receipt_number, supplier_id, document_number, document_date, total_amount, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, receipt_number, supplier_id, document_number, document_date, total_amount, notes, created_at, ''::text
	`, domain.ReceiptNumber(nextID), in.SupplierID, in.DocumentNumber, in.DocumentDate, total, in.Notes)
	sr, err := scanReceipt(row.Scan, false)
	if err != nil {
		return nil, err
	}

	for _, it := range in.Items {
		if !recordableReceiptItem(it) {
			continue
		}
		var line domain.StockReceiptItem
		err := tx.QueryRow(ctx, `
			INSERT INTO stock_receipt_items (receipt_id, product_id, quantity, price)
			VALUES ($1,$2,$3,$4)
			RETURNING id, receipt_id, product_id, quantity, price
		`, sr.ID, it.ProductID, it.Quantity, it.Price).
			Scan(&line.ID, &line.ReceiptID, &line.ProductID, &line.Quantity, &line.Price)
		if err != nil {
			return nil, err
		}
		// Most-recent-price-wins; past receipts are never retro-adjusted.
		_, err = tx.Exec(ctx, `
			UPDATE products SET quantity = quantity + $1, purchase_price = $2, updated_at = NOW() WHERE id = $3
		`, it.Quantity, it.Price, it.ProductID)
		if err != nil {
			return nil, err
		}
		sr.Items = append(sr.Items, line)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	sr.ItemCount = int64(len(sr.Items))
	return sr, nil
}

func scanReceipt(scan func(...any) error, withCount bool) (*domain.StockReceipt, error) {
	var sr domain.StockReceipt
	var supplierID pgtype.Int8
	var docNumber, notes pgtype.Text
	var docDate pgtype.Date
	dest := []any{&sr.ID, &sr.ReceiptNumber, &supplierID, &docNumber, &docDate, &sr.TotalAmount, &notes, &sr.CreatedAt, &sr.SupplierName}
	if withCount {
		dest = append(dest, &sr.ItemCount)
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}
	if supplierID.Valid {
		sr.SupplierID = &supplierID.Int64
	}
	sr.DocumentNumber = docNumber.String
	if docDate.Valid {
		t := docDate.Time
		sr.DocumentDate = &t
	}
	sr.Notes = notes.String
	return &sr, nil
}
