package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku"`
	Barcode      string          `json:"barcode,omitempty"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	CategoryID   string          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	Stock        int             `json:"stock"`
	MinStock     int             `json:"min_stock"`
	MaxStock     int             `json:"max_stock,omitempty"`
	Unit         string          `json:"unit"`
	TaxRate      float64         `json:"tax_rate"`
	Active       bool            `json:"is_active"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Active      bool   `json:"is_active"`
}

type Register struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Active   bool   `json:"is_active"`
}

type Customer struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	RFC            string          `json:"rfc,omitempty"`
	Address        string          `json:"address,omitempty"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	LoyaltyPoints  int             `json:"loyalty_points"`
	Active         bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Shift is one operator's custody of a cash drawer on one register.
// ClosingBalance, ExpectedBalance and Variance are nil until the shift
// is closed; once closed the record never mutates again.
type Shift struct {
	ID              string           `json:"id"`
	OperatorID      string           `json:"user_id"`
	OperatorName    string           `json:"user_name,omitempty"`
	RegisterID      string           `json:"register_id"`
	RegisterName    string           `json:"register_name,omitempty"`
	OpenedAt        time.Time        `json:"opened_at"`
	ClosedAt        *time.Time       `json:"closed_at,omitempty"`
	OpeningBalance  decimal.Decimal  `json:"opening_balance"`
	ClosingBalance  *decimal.Decimal `json:"closing_balance,omitempty"`
	ExpectedBalance *decimal.Decimal `json:"expected_balance,omitempty"`
	Variance        *decimal.Decimal `json:"difference,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Status          string           `json:"status"`
}

type ShiftOpenRequest struct {
	OperatorID     string          `json:"user_id"`
	RegisterID     string          `json:"register_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type ShiftCloseRequest struct {
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Notes          string          `json:"notes,omitempty"`
}

// ShiftSummary is the close-shift response. The variance inside Shift is
// the backend-computed one; the terminal adopts it as-is.
type ShiftSummary struct {
	Shift             Shift           `json:"shift"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	TotalTransactions int             `json:"total_transactions"`
	CashSales         decimal.Decimal `json:"cash_sales"`
	CardSales         decimal.Decimal `json:"card_sales"`
	OtherSales        decimal.Decimal `json:"other_sales"`
}

// SaleLine is the frozen per-line snapshot inside a sale payload: the
// unit price, discount and tax rate captured at commit time.
type SaleLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount_amount"`
	TaxRate   float64         `json:"tax_rate"`
}

type SaleRequest struct {
	OperatorID     string          `json:"user_id"`
	CustomerID     string          `json:"customer_id,omitempty"`
	ShiftID        string          `json:"shift_id,omitempty"`
	Items          []SaleLine      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

type Sale struct {
	ID             string          `json:"id"`
	Number         string          `json:"sale_number"`
	OperatorID     string          `json:"user_id"`
	CustomerID     string          `json:"customer_id,omitempty"`
	ShiftID        string          `json:"shift_id,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	Status         string          `json:"status"`
	PaymentStatus  string          `json:"payment_status"`
	CreatedAt      time.Time       `json:"created_at"`
	Items          []SaleLine      `json:"items,omitempty"`
}

// StockMovement is immutable once recorded. Quantity is the signed
// delta applied to the product's stock; corrections are new movements,
// never edits.
type StockMovement struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	Kind         string    `json:"movement_type"`
	Quantity     int       `json:"quantity"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	OperatorID   string    `json:"user_id,omitempty"`
	OperatorName string    `json:"user_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type StockAdjustmentRequest struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	AdjustmentType string `json:"adjustment_type"`
	Notes          string `json:"notes,omitempty"`
	OperatorID     string `json:"user_id"`
}

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

const (
	SaleStatusCompleted = "completed"
	PaymentStatusPaid   = "paid"
)

const (
	MovementSale          = "sale"
	MovementAdjustmentIn  = "adjustment_in"
	MovementAdjustmentOut = "adjustment_out"
	MovementReturn        = "return"
)

const (
	PaymentMethodCash  = "cash"
	PaymentMethodCard  = "card"
	PaymentMethodOther = "other"
)
