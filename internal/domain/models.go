package domain

import "time"

// Enumerations
const (
	OrderNew       OrderStatus = "new"
	OrderContacted OrderStatus = "contacted"
	OrderApproved  OrderStatus = "approved"
	OrderRejected  OrderStatus = "rejected"

	WorkOrderNew        WorkOrderStatus = "new"
	WorkOrderInProgress WorkOrderStatus = "in-progress"
	WorkOrderDone       WorkOrderStatus = "done"
	WorkOrderIssued     WorkOrderStatus = "issued"

	CashboxCash   CashboxType = "cash"
	CashboxBank   CashboxType = "bank"
	CashboxCard   CashboxType = "card"
	CashboxOnline CashboxType = "online"

	PayCash     PaymentMethod = "cash"
	PayCard     PaymentMethod = "card"
	PayTransfer PaymentMethod = "transfer"
	PayOnline   PaymentMethod = "online"

	RoleDirector    EmployeeRole = "director"
	RoleManager     EmployeeRole = "manager"
	RoleMechanic    EmployeeRole = "mechanic"
	RoleElectrician EmployeeRole = "electrician"
	RoleInstaller   EmployeeRole = "installer"
	RoleAccountant  EmployeeRole = "accountant"
)

type OrderStatus string
type WorkOrderStatus string
type CashboxType string
type PaymentMethod string
type EmployeeRole string

// ValidWorkOrderStatus reports whether s is one of the four lifecycle states.
func ValidWorkOrderStatus(s WorkOrderStatus) bool {
	switch s {
	case WorkOrderNew, WorkOrderInProgress, WorkOrderDone, WorkOrderIssued:
		return true
	}
	return false
}

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderNew, OrderContacted, OrderApproved, OrderRejected:
		return true
	}
	return false
}

func ValidCashboxType(t CashboxType) bool {
	switch t {
	case CashboxCash, CashboxBank, CashboxCard, CashboxOnline:
		return true
	}
	return false
}

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PayCash, PayCard, PayTransfer, PayOnline:
		return true
	}
	return false
}

// EmployeeRoles lists every valid role with its display label, in catalog order.
var EmployeeRoles = []struct {
	Value EmployeeRole
	Label string
}{
	{RoleDirector, "Директор"},
	{RoleManager, "Менеджер"},
	{RoleMechanic, "Механик"},
	{RoleElectrician, "Электрик"},
	{RoleInstaller, "Установщик"},
	{RoleAccountant, "Бухгалтер"},
}

func ValidEmployeeRole(r EmployeeRole) bool {
	for _, er := range EmployeeRoles {
		if er.Value == r {
			return true
		}
	}
	return false
}

func RoleLabel(r EmployeeRole) string {
	for _, er := range EmployeeRoles {
		if er.Value == r {
			return er.Label
		}
	}
	return string(r)
}

type Client struct {
	ID        int64
	Name      string
	Phone     string
	Email     string
	Comment   string
	CreatedAt time.Time
	Cars      []Car
}

type Car struct {
	ID       int64
	ClientID int64
	Brand    string
	Model    string
	Year     string
	VIN      string
	Active   bool
}

type Order struct {
	ID         int64
	ClientID   *int64
	ClientName string
	Phone      string
	CarInfo    string
	Service    string
	Status     OrderStatus
	Comment    string
	Source     string
	CreatedAt  time.Time
}

type WorkOrder struct {
	ID            int64
	OrderID       *int64
	ClientID      *int64
	CarID         *int64
	ClientName    string
	CarInfo       string
	Status        WorkOrderStatus
	Master        string
	PayerClientID *int64
	PayerName     string
	EmployeeID    *int64
	EmployeeName  string
	CarVIN        string
	ClientPhone   string
	IssuedAt      *time.Time
	CreatedAt     time.Time
	Works         []WorkItem
	Parts         []PartItem
}

type WorkItem struct {
	ID            int64
	WorkOrderID   int64
	Name          string
	Price         float64
	Qty           float64
	NormHours     float64
	NormHourPrice float64
	Discount      float64
}

type PartItem struct {
	ID            int64
	WorkOrderID   int64
	Name          string
	Qty           int
	SellPrice     float64
	PurchasePrice float64
	ProductID     *int64
}

type Product struct {
	ID            int64
	SKU           string
	Name          string
	Description   string
	Category      string
	Unit          string
	PurchasePrice float64
	Quantity      int
	MinQuantity   int
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Supplier struct {
	ID            int64
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	INN           string
	Address       string
	Notes         string
	Active        bool
	CreatedAt     time.Time
	ReceiptCount  int64
	TotalSupplied float64
}

type StockReceipt struct {
	ID             int64
	ReceiptNumber  string
	SupplierID     *int64
	SupplierName   string
	DocumentNumber string
	DocumentDate   *time.Time
	TotalAmount    float64
	Notes          string
	CreatedAt      time.Time
	ItemCount      int64
	Items          []StockReceiptItem
}

type StockReceiptItem struct {
	ID          int64
	ReceiptID   int64
	ProductID   int64
	ProductSKU  string
	ProductName string
	Unit        string
	Quantity    int
	Price       float64
}

type Cashbox struct {
	ID        int64
	Name      string
	Type      CashboxType
	Balance   float64
	Active    bool
	CreatedAt time.Time
}

type Payment struct {
	ID              int64
	WorkOrderID     int64
	CashboxID       int64
	Amount          float64
	Method          PaymentMethod
	Comment         string
	CreatedAt       time.Time
	CashboxName     string
	CashboxType     CashboxType
	ClientName      string
	WorkOrderNumber string
}

type ExpenseGroup struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
}

type Expense struct {
	ID             int64
	ExpenseGroupID *int64
	GroupName      string
	CashboxID      int64
	CashboxName    string
	Amount         float64
	Comment        string
	CreatedAt      time.Time
}

type Employee struct {
	ID        int64
	Name      string
	Role      EmployeeRole
	Phone     string
	Email     string
	Active    bool
	CreatedAt time.Time
}

// SyncedChat is one row of the Avito sync ledger. A chat id present here has
// already produced an Order and is skipped on later runs.
type SyncedChat struct {
	ID            int64
	ChatID        string
	AvitoUserID   string
	OrderID       int64
	LastMessageID string
	SyncedAt      time.Time
}
