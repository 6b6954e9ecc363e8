package repository

import (
	"context"
	"errors"
	"strconv"

	"smartline-backend/internal/db"
	"smartline-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// FinanceRepository covers cashboxes, payments, expenses and the dashboard
// aggregates. Cashbox balances are running totals: payments add, expenses
// subtract, always in the transaction of the row that moves the money.
type FinanceRepository struct {
	DB *db.Postgres
}

func (r FinanceRepository) Cashboxes(ctx context.Context) ([]domain.Cashbox, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, type, balance, is_active, created_at
		FROM cashboxes
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Cashbox
	for rows.Next() {
		var c domain.Cashbox
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &typ, &c.Balance, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Type = domain.CashboxType(typ)
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r FinanceRepository) CreateCashbox(ctx context.Context, name string, typ domain.CashboxType) (*domain.Cashbox, error) {
	var c domain.Cashbox
	var t string
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO cashboxes (name, type) VALUES ($1,$2)
		RETURNING id, name, type, balance, is_active, created_at
	`, name, typ).Scan(&c.ID, &c.Name, &t, &c.Balance, &c.Active, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Type = domain.CashboxType(t)
	return &c, nil
}

type UpdateCashboxInput struct {
	Name   *string
	Type   *domain.CashboxType
	Active *bool
}

func (in UpdateCashboxInput) Empty() bool {
	return in.Name == nil && in.Type == nil && in.Active == nil
}

func (r FinanceRepository) UpdateCashbox(ctx context.Context, id int64, in UpdateCashboxInput) (*domain.Cashbox, error) {
	var c domain.Cashbox
	var t string
	err := r.DB.Pool.QueryRow(ctx, `
		UPDATE cashboxes
		SET name = COALESCE($1, name),
			type = COALESCE($2, type),
			is_active = COALESCE($3, is_active)
		WHERE id = $4
		RETURNING id, name, type, balance, is_active, created_at
	`, in.Name, in.Type, in.Active, id).Scan(&c.ID, &c.Name, &t, &c.Balance, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Type = domain.CashboxType(t)
	return &c, nil
}

// DeleteCashbox refuses to drop a cashbox that has payments; the caller gets
// ErrConflict and the payment count.
func (r FinanceRepository) DeleteCashbox(ctx context.Context, id int64) (int64, error) {
	var cnt int64
	if err := r.DB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE cashbox_id = $1`, id).Scan(&cnt); err != nil {
		return 0, err
	}
	if cnt > 0 {
		return cnt, ErrConflict
	}
	ct, err := r.DB.Pool.Exec(ctx, `DELETE FROM cashboxes WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return 0, nil
}

type PaymentFilter struct {
	WorkOrderID *int64
	CashboxID   *int64
	DateFrom    string
	DateTo      string
}

func (r FinanceRepository) Payments(ctx context.Context, f PaymentFilter) ([]domain.Payment, error) {
	query := `
		SELECT p.id, p.work_order_id, p.cashbox_id, p.amount, p.payment_method, p.comment, p.created_at,
		       COALESCE(c.name, ''), COALESCE(c.type, ''), COALESCE(wo.client_name, ''), COALESCE(wo.id, 0)
		FROM payments p
		LEFT JOIN cashboxes c ON c.id = p.cashbox_id
		LEFT JOIN work_orders wo ON wo.id = p.work_order_id
	`
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+placeholder(len(args)))
	}
	if f.WorkOrderID != nil {
		add("p.work_order_id = ", *f.WorkOrderID)
	}
	if f.CashboxID != nil {
		add("p.cashbox_id = ", *f.CashboxID)
	}
	if f.DateFrom != "" {
		add("p.created_at >= ", f.DateFrom)
	}
	if f.DateTo != "" {
		args = append(args, f.DateTo)
		where = append(where, "p.created_at < "+placeholder(len(args))+"::date + interval '1 day'")
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY p.created_at DESC"

	rows, err := r.DB.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var method, cbType string
		var comment pgtype.Text
		var woID int64
		if err := rows.Scan(&p.ID, &p.WorkOrderID, &p.CashboxID, &p.Amount, &method, &comment, &p.CreatedAt,
			&p.CashboxName, &cbType, &p.ClientName, &woID); err != nil {
			return nil, err
		}
		p.Method = domain.PaymentMethod(method)
		p.CashboxType = domain.CashboxType(cbType)
		p.Comment = comment.String
		if woID != 0 {
			p.WorkOrderNumber = domain.WorkOrderNumber(woID)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type CreatePaymentInput struct {
	WorkOrderID int64
	CashboxID   int64
	Amount      float64
	Method      domain.PaymentMethod
	Comment     string
}

// CreatePayment inserts the payment and bumps the cashbox balance in one
// transaction.
func (r FinanceRepository) CreatePayment(ctx context.Context, in CreatePaymentInput) (*domain.Payment, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var p domain.Payment
	var method string
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (work_order_id, cashbox_id, amount, payment_method, comment)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, work_order_id, cashbox_id, amount, payment_method, comment, created_at
	`, in.WorkOrderID, in.CashboxID, in.Amount, in.Method, in.Comment).
		Scan(&p.ID, &p.WorkOrderID, &p.CashboxID, &p.Amount, &method, &p.Comment, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Method = domain.PaymentMethod(method)

	ct, err := tx.Exec(ctx, `UPDATE cashboxes SET balance = balance + $1 WHERE id = $2`, in.Amount, in.CashboxID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r FinanceRepository) ExpenseGroups(ctx context.Context) ([]domain.ExpenseGroup, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM expense_groups
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ExpenseGroup
	for rows.Next() {
		var g domain.ExpenseGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Active, &g.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

func (r FinanceRepository) CreateExpenseGroup(ctx context.Context, name, description string) (*domain.ExpenseGroup, error) {
	var g domain.ExpenseGroup
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO expense_groups (name, description) VALUES ($1,$2)
		RETURNING id, name, description, is_active, created_at
	`, name, description).Scan(&g.ID, &g.Name, &g.Description, &g.Active, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

type UpdateExpenseGroupInput struct {
	Name        *string
	Description *string
	Active      *bool
}

func (in UpdateExpenseGroupInput) Empty() bool {
	return in.Name == nil && in.Description == nil && in.Active == nil
}

func (r FinanceRepository) UpdateExpenseGroup(ctx context.Context, id int64, in UpdateExpenseGroupInput) (*domain.ExpenseGroup, error) {
	var g domain.ExpenseGroup
	err := r.DB.Pool.QueryRow(ctx, `
		UPDATE expense_groups
		SET name = COALESCE($1, name),
			description = COALESCE($2, description),
			is_active = COALESCE($3, is_active)
		WHERE id = $4
		RETURNING id, name, description, is_active, created_at
	`, in.Name, in.Description, in.Active, id).
		Scan(&g.ID, &g.Name, &g.Description, &g.Active, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r FinanceRepository) Expenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT e.id, e.expense_group_id, e.cashbox_id, e.amount, e.comment, e.created_at,
		       COALESCE(g.name, ''), COALESCE(c.name, '')
		FROM expenses e
		LEFT JOIN expense_groups g ON g.id = e.expense_group_id
		LEFT JOIN cashboxes c ON c.id = e.cashbox_id
		ORDER BY e.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Expense
	for rows.Next() {
		var e domain.Expense
		var groupID pgtype.Int8
		var comment pgtype.Text
		if err := rows.Scan(&e.ID, &groupID, &e.CashboxID, &e.Amount, &comment, &e.CreatedAt,
			&e.GroupName, &e.CashboxName); err != nil {
			return nil, err
		}
		if groupID.Valid {
			e.ExpenseGroupID = &groupID.Int64
		}
		e.Comment = comment.String
		items = append(items, e)
	}
	return items, rows.Err()
}

type CreateExpenseInput struct {
	ExpenseGroupID *int64
	CashboxID      int64
	Amount         float64
	Comment        string
}

// CreateExpense inserts the expense and decreases the cashbox balance in one
// transaction.
func (r FinanceRepository) CreateExpense(ctx context.Context, in CreateExpenseInput) (*domain.Expense, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var e domain.Expense
	var groupID pgtype.Int8
	err = tx.QueryRow(ctx, `
		INSERT INTO expenses (expense_group_id, cashbox_id, amount, comment)
		VALUES ($1,$2,$3,$4)
		RETURNING id, expense_group_id, cashbox_id, amount, comment, created_at
	`, in.ExpenseGroupID, in.CashboxID, in.Amount, in.Comment).
		Scan(&e.ID, &groupID, &e.CashboxID, &e.Amount, &e.Comment, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if groupID.Valid {
		e.ExpenseGroupID = &groupID.Int64
	}

	ct, err := tx.Exec(ctx, `UPDATE cashboxes SET balance = balance - $1 WHERE id = $2`, in.Amount, in.CashboxID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &e, nil
}

type FinanceDashboard struct {
	TotalRevenue     float64
	MonthRevenue     float64
	TodayRevenue     float64
	PrevMonthRevenue float64
	TotalPayments    int64
	TotalExpenses    float64
	MonthExpenses    float64
	CompletedOrders  int64
	TotalWorks       float64
	TotalParts       float64
	ByMethod         map[string]float64
	Cashboxes        []CashboxTotal
}

type CashboxTotal struct {
	ID            int64
	Name          string
	Type          domain.CashboxType
	Active        bool
	Balance       float64
	TotalReceived float64
}

// Dashboard runs the independent aggregate queries and combines them into one
// snapshot. Revenue windows are anchored to calendar day and month boundaries;
// works/parts totals are lifetime sums, not period-scoped.
func (r FinanceRepository) Dashboard(ctx context.Context) (*FinanceDashboard, error) {
	d := &FinanceDashboard{ByMethod: map[string]float64{}}

	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM payments),
			(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE created_at >= date_trunc('month', CURRENT_DATE)),
			(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE created_at >= CURRENT_DATE),
			(SELECT COALESCE(SUM(amount), 0) FROM payments
				WHERE created_at >= date_trunc('month', CURRENT_DATE) - interval '1 month'
				  AND created_at < date_trunc('month', CURRENT_DATE)),
			(SELECT COUNT(*) FROM payments),
			(SELECT COALESCE(SUM(amount), 0) FROM expenses),
			(SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE created_at >= date_trunc('month', CURRENT_DATE)),
			(SELECT COUNT(*) FROM work_orders WHERE status = 'done'),
			(SELECT COALESCE(SUM(w.price), 0) FROM work_order_works w JOIN work_orders wo ON wo.id = w.work_order_id),
			(SELECT COALESCE(SUM(p.sell_price * p.qty), 0) FROM work_order_parts p JOIN work_orders wo ON wo.id = p.work_order_id)
	`).Scan(&d.TotalRevenue, &d.MonthRevenue, &d.TodayRevenue, &d.PrevMonthRevenue,
		&d.TotalPayments, &d.TotalExpenses, &d.MonthExpenses, &d.CompletedOrders,
		&d.TotalWorks, &d.TotalParts)
	if err != nil {
		return nil, err
	}

	cbRows, err := r.DB.Pool.Query(ctx, `
		SELECT c.id, c.name, c.type, c.is_active, c.balance, COALESCE(SUM(p.amount), 0)
		FROM cashboxes c
		LEFT JOIN payments p ON p.cashbox_id = c.id
		GROUP BY c.id
		ORDER BY c.id
	`)
	if err != nil {
		return nil, err
	}
	defer cbRows.Close()
	for cbRows.Next() {
		var cb CashboxTotal
		var typ string
		if err := cbRows.Scan(&cb.ID, &cb.Name, &typ, &cb.Active, &cb.Balance, &cb.TotalReceived); err != nil {
			return nil, err
		}
		cb.Type = domain.CashboxType(typ)
		d.Cashboxes = append(d.Cashboxes, cb)
	}
	if err := cbRows.Err(); err != nil {
		return nil, err
	}

	methodRows, err := r.DB.Pool.Query(ctx, `
		SELECT payment_method, COALESCE(SUM(amount), 0)
		FROM payments
		WHERE created_at >= date_trunc('month', CURRENT_DATE)
		GROUP BY payment_method
	`)
	if err != nil {
		return nil, err
	}
	defer methodRows.Close()
	for methodRows.Next() {
		var method string
		var total float64
		if err := methodRows.Scan(&method, &total); err != nil {
			return nil, err
		}
		d.ByMethod[method] = total
	}
	return d, methodRows.Err()
}

// placeholder renders the n-th positional SQL parameter.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
