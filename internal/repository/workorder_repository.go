package repository

import (
	"context"
	"errors"

	"smartline-backend/internal/db"
	"smartline-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// WorkOrderRepository owns the work-order aggregate and the inventory side
// effects of its part items. Every mutation that touches products.quantity
// runs in the same transaction as the row change that causes it.
type WorkOrderRepository struct {
	DB *db.Postgres
}

type CreateWorkOrderInput struct {
	OrderID       *int64
	ClientID      *int64
	CarID         *int64
	ClientName    string
	CarInfo       string
	Master        string
	PayerClientID *int64
	PayerName     string
	EmployeeID    *int64
	Works         []AddWorkInput
	Parts         []AddPartInput
}

type AddWorkInput struct {
	WorkOrderID   int64
	Name          string
	Price         float64
	Qty           float64
	NormHours     float64
	NormHourPrice float64
	Discount      float64
}

type AddPartInput struct {
	WorkOrderID   int64
	Name          string
	Qty           int
	SellPrice     float64
	PurchasePrice float64
	ProductID     *int64
}

type UpdateWorkOrderInput struct {
	Status        *domain.WorkOrderStatus
	Master        *string
	PayerClientID *int64
	PayerSet      bool
	PayerName     *string
	EmployeeID    *int64
	EmployeeSet   bool
}

func (in UpdateWorkOrderInput) Empty() bool {
	return in.Status == nil && in.Master == nil && !in.PayerSet && in.PayerName == nil && !in.EmployeeSet
}

type UpdateWorkInput struct {
	Name          *string
	Price         *float64
	Qty           *float64
	NormHours     *float64
	NormHourPrice *float64
	Discount      *float64
}

func (in UpdateWorkInput) Empty() bool {
	return in.Name == nil && in.Price == nil && in.Qty == nil &&
		in.NormHours == nil && in.NormHourPrice == nil && in.Discount == nil
}

type UpdatePartInput struct {
	Name          *string
	Qty           *int
	SellPrice     *float64
	PurchasePrice *float64
}

func (in UpdatePartInput) Empty() bool {
	return in.Name == nil && in.Qty == nil && in.SellPrice == nil && in.PurchasePrice == nil
}

// List returns all work orders newest-first with VIN, client phone and employee
// name denormalized, and works/parts grouped in memory after one batched fetch
// per child table.
func (r WorkOrderRepository) List(ctx context.Context) ([]domain.WorkOrder, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT wo.id, wo.order_id, wo.client_id, wo.car_id, wo.client_name, wo.car_info,
		       wo.status, wo.master, wo.payer_client_id, wo.payer_name, wo.employee_id,
		       wo.issued_at, wo.created_at,
		       c.vin, cl.phone, e.name
		FROM work_orders wo
		LEFT JOIN cars c ON wo.car_id = c.id
		LEFT JOIN clients cl ON wo.client_id = cl.id
		LEFT JOIN employees e ON wo.employee_id = e.id
		ORDER BY wo.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.WorkOrder
	var ids []int64
	for rows.Next() {
		wo, err := scanWorkOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		ids = append(ids, wo.ID)
		orders = append(orders, *wo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	worksByID, err := r.worksFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	partsByID, err := r.partsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Works = worksByID[orders[i].ID]
		orders[i].Parts = partsByID[orders[i].ID]
	}
	return orders, nil
}

// Get loads one work order with its children.
func (r WorkOrderRepository) Get(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT wo.id, wo.order_id, wo.client_id, wo.car_id, wo.client_name, wo.car_info,
		       wo.status, wo.master, wo.payer_client_id, wo.payer_name, wo.employee_id,
		       wo.issued_at, wo.created_at,
		       c.vin, cl.phone, e.name
		FROM work_orders wo
		LEFT JOIN cars c ON wo.car_id = c.id
		LEFT JOIN clients cl ON wo.client_id = cl.id
		LEFT JOIN employees e ON wo.employee_id = e.id
		WHERE wo.id = $1
	`, id)
	wo, err := scanWorkOrder(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	worksByID, err := r.worksFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	partsByID, err := r.partsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	wo.Works = worksByID[id]
	wo.Parts = partsByID[id]
	return wo, nil
}

// Create inserts the header and all items in one transaction. Works with a
// blank name are skipped. A part referencing a missing product aborts with
// ErrNotFound; a linked part decrements the product quantity by its qty, with
// no lower bound.
func (r WorkOrderRepository) Create(ctx context.Context, in CreateWorkOrderInput) (*domain.WorkOrder, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO work_orders (order_id, client_id, car_id, client_name, car_info, status, master, payer_client_id, payer_name, employee_id)
		VALUES ($1,$2,$3,$4,$5,'new',$6,$7,$8,$9)
		RETURNING id, order_id, client_id, car_id, client_name, car_info, status, master,
		          payer_client_id, payer_name, employee_id, issued_at, created_at,
		          NULL::text, NULL::text, NULL::text
	`, in.OrderID, in.ClientID, in.CarID, in.ClientName, in.CarInfo, in.Master, in.PayerClientID, in.PayerName, in.EmployeeID)
	wo, err := scanWorkOrder(row.Scan)
	if err != nil {
		return nil, err
	}

	for _, w := range in.Works {
		if w.Name == "" {
			continue
		}
		w.WorkOrderID = wo.ID
		item, err := insertWork(ctx, tx, w)
		if err != nil {
			return nil, err
		}
		wo.Works = append(wo.Works, *item)
	}

	for _, p := range in.Parts {
		p.WorkOrderID = wo.ID
		item, err := insertPart(ctx, tx, p)
		if err != nil {
			if errors.Is(err, errSkipPart) {
				continue
			}
			return nil, err
		}
		wo.Parts = append(wo.Parts, *item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return wo, nil
}

// Update applies a sparse header change. A transition to "issued" stamps
// issued_at once; there is no un-issue path.
func (r WorkOrderRepository) Update(ctx context.Context, id int64, in UpdateWorkOrderInput) (*domain.WorkOrder, error) {
	issued := in.Status != nil && *in.Status == domain.WorkOrderIssued
	ct, err := r.DB.Pool.Exec(ctx, `
		UPDATE work_orders
		SET status = COALESCE($1, status),
			master = COALESCE($2, master),
			payer_client_id = CASE WHEN $3 THEN $4 ELSE payer_client_id END,
			payer_name = COALESCE($5, payer_name),
			employee_id = CASE WHEN $6 THEN $7 ELSE employee_id END,
			issued_at = CASE WHEN $8 AND issued_at IS NULL THEN NOW() ELSE issued_at END
		WHERE id = $9
	`, in.Status, in.Master, in.PayerSet, in.PayerClientID, in.PayerName, in.EmployeeSet, in.EmployeeID, issued, id)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r WorkOrderRepository) AddWork(ctx context.Context, in AddWorkInput) (*domain.WorkItem, error) {
	return insertWork(ctx, r.DB.Pool, in)
}

func (r WorkOrderRepository) UpdateWork(ctx context.Context, workID int64, in UpdateWorkInput) (*domain.WorkItem, error) {
	var w domain.WorkItem
	err := r.DB.Pool.QueryRow(ctx, `
		UPDATE work_order_works
		SET name = COALESCE($1, name),
			price = COALESCE($2, price),
			qty = COALESCE($3, qty),
			norm_hours = COALESCE($4, norm_hours),
			norm_hour_price = COALESCE($5, norm_hour_price),
			discount = COALESCE($6, discount)
		WHERE id = $7
		RETURNING id, work_order_id, name, price, qty, norm_hours, norm_hour_price, discount
	`, in.Name, in.Price, in.Qty, in.NormHours, in.NormHourPrice, in.Discount, workID).
		Scan(&w.ID, &w.WorkOrderID, &w.Name, &w.Price, &w.Qty, &w.NormHours, &w.NormHourPrice, &w.Discount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r WorkOrderRepository) DeleteWork(ctx context.Context, workID int64) error {
	_, err := r.DB.Pool.Exec(ctx, `DELETE FROM work_order_works WHERE id = $1`, workID)
	return err
}

func (r WorkOrderRepository) AddPart(ctx context.Context, in AddPartInput) (*domain.PartItem, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	item, err := insertPart(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdatePart recomputes net consumption on qty change: the linked product gets
// old_qty - new_qty added back, atomically with the row update.
func (r WorkOrderRepository) UpdatePart(ctx context.Context, partID int64, in UpdatePartInput) (*domain.PartItem, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	old, err := selectPart(ctx, tx, partID)
	if err != nil {
		return nil, err
	}

	if diff := partQtyAdjustment(old.Qty, in.Qty, old.ProductID != nil); diff != 0 {
		_, err = tx.Exec(ctx, `
			UPDATE products SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2
		`, diff, *old.ProductID)
		if err != nil {
			return nil, err
		}
	}

	var p domain.PartItem
	var productID pgtype.Int8
	err = tx.QueryRow(ctx, `
		UPDATE work_order_parts
		SET name = COALESCE($1, name),
			qty = COALESCE($2, qty),
			sell_price = COALESCE($3, sell_price),
			purchase_price = COALESCE($4, purchase_price)
		WHERE id = $5
		RETURNING id, work_order_id, name, qty, sell_price, purchase_price, product_id
	`, in.Name, in.Qty, in.SellPrice, in.PurchasePrice, partID).
		Scan(&p.ID, &p.WorkOrderID, &p.Name, &p.Qty, &p.SellPrice, &p.PurchasePrice, &productID)
	if err != nil {
		return nil, err
	}
	if productID.Valid {
		p.ProductID = &productID.Int64
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePart returns the part's full qty to the linked product before removing
// the row, in one transaction.
func (r WorkOrderRepository) DeletePart(ctx context.Context, partID int64) error {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	old, err := selectPart(ctx, tx, partID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Delete is unconditional; a missing part is already gone.
			return nil
		}
		return err
	}
	if back := partReturnQty(old.Qty, old.ProductID != nil); back != 0 {
		_, err = tx.Exec(ctx, `
			UPDATE products SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2
		`, back, *old.ProductID)
		if err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM work_order_parts WHERE id = $1`, partID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// dbtx is the subset of pgx.Tx and pgxpool.Pool the item helpers need, so the
// same code serves both the aggregate create transaction and single-item calls.
type dbtx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// errSkipPart marks a part row with neither a name nor a product link; the
// aggregate create silently drops such entries.
var errSkipPart = errors.New("part has no name and no product")

func insertWork(ctx context.Context, q dbtx, in AddWorkInput) (*domain.WorkItem, error) {
	var w domain.WorkItem
	err := q.QueryRow(ctx, `
		INSERT INTO work_order_works (work_order_id, name, price, qty, norm_hours, norm_hour_price, discount)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, work_order_id, name, price, qty, norm_hours, norm_hour_price, discount
	`, in.WorkOrderID, in.Name, in.Price, in.Qty, in.NormHours, in.NormHourPrice, in.Discount).
		Scan(&w.ID, &w.WorkOrderID, &w.Name, &w.Price, &w.Qty, &w.NormHours, &w.NormHourPrice, &w.Discount)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// insertPart verifies the product link, defaults name and purchase price from
// the product record, decrements the product quantity (no lower bound) and
// inserts the row. Caller supplies the transaction.
func insertPart(ctx context.Context, q dbtx, in AddPartInput) (*domain.PartItem, error) {
	if in.ProductID != nil {
		var prodName string
		var prodPurchase float64
		err := q.QueryRow(ctx, `
			SELECT name, purchase_price FROM products WHERE id = $1
		`, *in.ProductID).Scan(&prodName, &prodPurchase)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if in.Name == "" {
			in.Name = prodName
		}
		if in.PurchasePrice == 0 {
			in.PurchasePrice = prodPurchase
		}
		if in.Qty != 0 {
			_, err = q.Exec(ctx, `
				UPDATE products SET quantity = quantity - $1, updated_at = NOW() WHERE id = $2
			`, in.Qty, *in.ProductID)
			if err != nil {
				return nil, err
			}
		}
	} else if in.Name == "" {
		return nil, errSkipPart
	}

	var p domain.PartItem
	var productID pgtype.Int8
	err := q.QueryRow(ctx, `
		INSERT INTO work_order_parts (work_order_id, name, qty, sell_price, purchase_price, product_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, work_order_id, name, qty, sell_price, purchase_price, product_id
	`, in.WorkOrderID, in.Name, in.Qty, in.SellPrice, in.PurchasePrice, in.ProductID).
		Scan(&p.ID, &p.WorkOrderID, &p.Name, &p.Qty, &p.SellPrice, &p.PurchasePrice, &productID)
	if err != nil {
		return nil, err
	}
	if productID.Valid {
		p.ProductID = &productID.Int64
	}
	return &p, nil
}

func selectPart(ctx context.Context, q dbtx, partID int64) (*domain.PartItem, error) {
	var p domain.PartItem
	var productID pgtype.Int8
	err := q.QueryRow(ctx, `
		SELECT id, work_order_id, name, qty, sell_price, purchase_price, product_id
		FROM work_order_parts
		WHERE id = $1
	`, partID).Scan(&p.ID, &p.WorkOrderID, &p.Name, &p.Qty, &p.SellPrice, &p.PurchasePrice, &productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if productID.Valid {
		p.ProductID = &productID.Int64
	}
	return &p, nil
}

func (r WorkOrderRepository) worksFor(ctx context.Context, ids []int64) (map[int64][]domain.WorkItem, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, work_order_id, name, price, qty, norm_hours, norm_hour_price, discount
		FROM work_order_works
		WHERE work_order_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64][]domain.WorkItem)
	for rows.Next() {
		var w domain.WorkItem
		if err := rows.Scan(&w.ID, &w.WorkOrderID, &w.Name, &w.Price, &w.Qty, &w.NormHours, &w.NormHourPrice, &w.Discount); err != nil {
			return nil, err
		}
		byID[w.WorkOrderID] = append(byID[w.WorkOrderID], w)
	}
	return byID, rows.Err()
}

func (r WorkOrderRepository) partsFor(ctx context.Context, ids []int64) (map[int64][]domain.PartItem, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, work_order_id, name, qty, sell_price, purchase_price, product_id
		FROM work_order_parts
		WHERE work_order_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64][]domain.PartItem)
	for rows.Next() {
		var p domain.PartItem
		var productID pgtype.Int8
		if err := rows.Scan(&p.ID, &p.WorkOrderID, &p.Name, &p.Qty, &p.SellPrice, &p.PurchasePrice, &productID); err != nil {
			return nil, err
		}
		if productID.Valid {
			p.ProductID = &productID.Int64
		}
		byID[p.WorkOrderID] = append(byID[p.WorkOrderID], p)
	}
	return byID, rows.Err()
}

func scanWorkOrder(scan func(...any) error) (*domain.WorkOrder, error) {
	var wo domain.WorkOrder
	var orderID, clientID, carID, payerClientID, employeeID pgtype.Int8
	var carInfo, master, payerName, vin, phone, employeeName pgtype.Text
	var status string
	var issuedAt pgtype.Timestamptz
	if err := scan(
		&wo.ID, &orderID, &clientID, &carID, &wo.ClientName, &carInfo,
		&status, &master, &payerClientID, &payerName, &employeeID,
		&issuedAt, &wo.CreatedAt,
		&vin, &phone, &employeeName,
	); err != nil {
		return nil, err
	}
	if orderID.Valid {
		wo.OrderID = &orderID.Int64
	}
	if clientID.Valid {
		wo.ClientID = &clientID.Int64
	}
	if carID.Valid {
		wo.CarID = &carID.Int64
	}
	if payerClientID.Valid {
		wo.PayerClientID = &payerClientID.Int64
	}
	if employeeID.Valid {
		wo.EmployeeID = &employeeID.Int64
	}
	if issuedAt.Valid {
		t := issuedAt.Time
		wo.IssuedAt = &t
	}
	wo.CarInfo = carInfo.String
	wo.Status = domain.WorkOrderStatus(status)
	wo.Master = master.String
	wo.PayerName = payerName.String
	wo.CarVIN = vin.String
	wo.ClientPhone = phone.String
	wo.EmployeeName = employeeName.String
	return &wo, nil
}
