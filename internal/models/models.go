package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod labels how a sale was paid. It is recorded verbatim; no
// payment processing happens anywhere in this system.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentUPI    PaymentMethod = "UPI"
	PaymentWallet PaymentMethod = "WALLET"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentWallet:
		return true
	}
	return false
}

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleCashier Role = "CASHIER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCashier:
		return true
	}
	return false
}

type Product struct {
	ID                int64           `json:"product_id"`
	Name              string          `json:"name"`
	Barcode           *string         `json:"barcode,omitempty"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	CategoryID        int64           `json:"category_id"`
	SupplierID        int64           `json:"supplier_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type Category struct {
	ID          int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Supplier struct {
	ID      int64   `json:"supplier_id"`
	Name    string  `json:"name"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address string  `json:"address,omitempty"`
}

type Customer struct {
	ID        int64     `json:"customer_id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Employee's PasswordHash is never serialized; store.Authenticate is its
// only reader.
type Employee struct {
	ID           int64     `json:"employee_id"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sale is immutable once committed. TotalAmount always equals the sum of its
// items' subtotals.
type Sale struct {
	ID            int64           `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	SaleTime      time.Time       `json:"sale_time"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CustomerID    *int64          `json:"customer_id,omitempty"`
	EmployeeID    int64           `json:"employee_id"`
	Items         []SaleItem      `json:"items,omitempty"`
}

// SaleItem records the unit price at the moment of sale; later product price
// changes never alter historical totals.
type SaleItem struct {
	ID        int64           `json:"sale_item_id"`
	SaleID    int64           `json:"sale_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// SaleSummary is the listing projection: one row per sale with customer and
// employee names resolved, no line items.
type SaleSummary struct {
	ID            int64           `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	SaleTime      time.Time       `json:"sale_time"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CustomerName  *string         `json:"customer,omitempty"`
	EmployeeName  *string         `json:"employee,omitempty"`
}

type DailySales struct {
	Date  string          `json:"date"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type DashboardStats struct {
	TotalProducts int64           `json:"total_products"`
	TotalSales    int64           `json:"total_sales"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	LowStockCount int64           `json:"low_stock_count"`
	TodaySales    decimal.Decimal `json:"today_sales"`
}
