// Package session drives a register terminal: one cart, one shift
// machine, one gateway. It owns the commit protocol for sales and shift
// transitions and never mutates local state before the gateway has
// confirmed the operation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/auth"
	"github.com/omarPVP123131/pos-terminal/internal/cart"
	"github.com/omarPVP123131/pos-terminal/internal/domain"
	"github.com/omarPVP123131/pos-terminal/internal/gateway"
	"github.com/omarPVP123131/pos-terminal/internal/inventory"
	"github.com/omarPVP123131/pos-terminal/internal/money"
	"github.com/omarPVP123131/pos-terminal/internal/shift"
	"github.com/omarPVP123131/pos-terminal/internal/xid"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNoOperator       = errors.New("no operator in context")
	ErrShiftRequired    = errors.New("an open shift is required")
	ErrInsufficientCash = errors.New("cash received is less than the total")
	ErrNegativeOpening  = errors.New("opening balance cannot be negative")
)

type operatorContextKey struct{}

func WithOperator(ctx context.Context, operator auth.Identity) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, operator)
}

func OperatorFromContext(ctx context.Context) (auth.Identity, bool) {
	operator, ok := ctx.Value(operatorContextKey{}).(auth.Identity)
	return operator, ok
}

// Options tune session behavior per deployment.
type Options struct {
	RegisterID       string
	TaxRatePercent   float64
	CashRounding     decimal.Decimal
	RequireOpenShift bool
}

type Engine struct {
	gw     gateway.Gateway
	cart   *cart.Cart
	shifts *shift.Machine
	state  shift.Store
	opts   Options
}

func NewEngine(gw gateway.Gateway, state shift.Store, opts Options) *Engine {
	if opts.TaxRatePercent < 0 {
		opts.TaxRatePercent = money.DefaultTaxRate
	}
	if state == nil {
		state = shift.NewMemoryStore()
	}
	return &Engine{
		gw:     gw,
		cart:   cart.New(opts.TaxRatePercent),
		shifts: shift.NewMachine(),
		state:  state,
		opts:   opts,
	}
}

func (e *Engine) Cart() *cart.Cart {
	return e.cart
}

func (e *Engine) CurrentShift() *domain.Shift {
	return e.shifts.Current()
}

// AddToCart resolves the product through the gateway so the line
// carries the current catalog price, then adds it to the cart.
func (e *Engine) AddToCart(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := e.gw.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: product %s is inactive", gateway.ErrRejected, p.Name)
	}
	e.cart.AddItem(*p)
	return p, nil
}

// SaleOptions carry the checkout parameters for one sale.
type SaleOptions struct {
	CustomerID    string
	PaymentMethod string
	CashReceived  decimal.Decimal
}

// SaleResult is the confirmed sale plus presentation extras.
type SaleResult struct {
	Sale    *domain.Sale
	Change  decimal.Decimal
	Warning string
}

// CompleteSale commits the cart through the gateway. The cart is left
// untouched on any failure so the operator can retry or amend; it is
// cleared only after the gateway confirms. A sale without an open shift
// is allowed but flagged, unless the terminal requires shifts.
func (e *Engine) CompleteSale(ctx context.Context, opts SaleOptions) (*SaleResult, error) {
	operator, ok := OperatorFromContext(ctx)
	if !ok {
		return nil, ErrNoOperator
	}
	if e.cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	if opts.PaymentMethod == "" {
		opts.PaymentMethod = domain.PaymentMethodCash
	}

	lines, subtotal, taxAmount, discount, total := e.cart.Snapshot()

	var change decimal.Decimal
	if opts.PaymentMethod == domain.PaymentMethodCash {
		rounded := money.RoundToNearest(total, e.opts.CashRounding)
		if opts.CashReceived.LessThan(rounded) {
			return nil, fmt.Errorf("%w: received %s, need %s", ErrInsufficientCash,
				money.FormatCurrency(opts.CashReceived), money.FormatCurrency(rounded))
		}
		change = money.Change(rounded, opts.CashReceived)
		total = rounded
	}

	if err := e.shifts.BeginSale(); err != nil {
		return nil, err
	}

	// Read the shift only after the machine is reserved, so a close
	// finishing just before cannot leave a stale shift id on the sale.
	warning := ""
	current := e.shifts.Current()
	if current == nil {
		if e.opts.RequireOpenShift {
			e.shifts.EndSale(decimal.Zero, false)
			return nil, ErrShiftRequired
		}
		warning = "sale recorded without an open shift"
	}

	req := domain.SaleRequest{
		OperatorID:     operator.ID,
		CustomerID:     opts.CustomerID,
		Items:          lines,
		Subtotal:       subtotal,
		TaxAmount:      taxAmount,
		DiscountAmount: discount,
		Total:          total,
		PaymentMethod:  opts.PaymentMethod,
		IdempotencyKey: xid.New("sale"),
	}
	if current != nil {
		req.ShiftID = current.ID
	}

	sale, err := e.gw.CreateSale(ctx, req)
	if err != nil {
		e.shifts.EndSale(decimal.Zero, false)
		return nil, err
	}

	cashTotal := decimal.Zero
	if opts.PaymentMethod == domain.PaymentMethodCash && current != nil {
		cashTotal = sale.Total
	}
	e.shifts.EndSale(cashTotal, true)
	e.cart.Clear()
	e.persistShiftState(ctx)

	if warning != "" {
		log.Printf("[session] WARN: %s (sale %s)", warning, sale.Number)
	}
	return &SaleResult{Sale: sale, Change: change, Warning: warning}, nil
}

// OpenShift opens a shift on the gateway and installs it locally once
// confirmed.
func (e *Engine) OpenShift(ctx context.Context, openingBalance decimal.Decimal) (*domain.Shift, error) {
	operator, ok := OperatorFromContext(ctx)
	if !ok {
		return nil, ErrNoOperator
	}
	if openingBalance.IsNegative() {
		return nil, ErrNegativeOpening
	}
	if err := e.shifts.BeginOpen(); err != nil {
		return nil, err
	}

	opened, err := e.gw.OpenShift(ctx, domain.ShiftOpenRequest{
		OperatorID:     operator.ID,
		RegisterID:     e.opts.RegisterID,
		OpeningBalance: openingBalance,
	})
	if err != nil {
		e.shifts.FailOpen()
		return nil, err
	}
	opened.OperatorName = operator.Username
	e.shifts.CompleteOpen(opened)
	e.persistShiftState(ctx)
	return e.shifts.Current(), nil
}

// ClosePreview reports the expected balance and the variance a declared
// count would produce, without closing anything.
func (e *Engine) ClosePreview(declared decimal.Decimal) (expected, variance decimal.Decimal, err error) {
	expected, err = e.shifts.ExpectedBalance()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	variance, err = e.shifts.VariancePreview(declared)
	return expected, variance, err
}

// CloseShift closes the open shift on the gateway. The backend's
// expected balance and variance replace the local preview.
func (e *Engine) CloseShift(ctx context.Context, closingBalance decimal.Decimal, notes string) (*domain.ShiftSummary, error) {
	current, err := e.shifts.BeginClose()
	if err != nil {
		return nil, err
	}

	summary, err := e.gw.CloseShift(ctx, current.ID, domain.ShiftCloseRequest{
		ClosingBalance: closingBalance,
		Notes:          strings.TrimSpace(notes),
	})
	if err != nil {
		e.shifts.FailClose()
		return nil, err
	}

	if expected, localErr := e.shifts.ExpectedBalance(); localErr == nil &&
		summary.Shift.ExpectedBalance != nil && !summary.Shift.ExpectedBalance.Equal(expected) {
		log.Printf("[session] WARN: local expected balance %s differs from backend %s for shift %s",
			expected, summary.Shift.ExpectedBalance, current.ID)
	}

	e.shifts.CompleteClose()
	if err := e.state.Clear(ctx); err != nil {
		log.Printf("[session] WARN: clearing shift state: %v", err)
	}
	return summary, nil
}

// AdjustStock validates the adjustment locally, submits it, and logs
// when the backend's resulting stock differs from the local estimate.
func (e *Engine) AdjustStock(ctx context.Context, adj inventory.Adjustment) (*domain.Product, error) {
	operator, ok := OperatorFromContext(ctx)
	if !ok {
		return nil, ErrNoOperator
	}
	adj.OperatorID = operator.ID

	current, err := e.gw.GetProduct(ctx, adj.ProductID)
	if err != nil {
		return nil, err
	}
	preview, err := inventory.Preview(current.Stock, adj)
	if err != nil {
		return nil, err
	}

	updated, err := e.gw.AdjustStock(ctx, domain.StockAdjustmentRequest{
		ProductID:      adj.ProductID,
		Quantity:       adj.Quantity,
		AdjustmentType: adj.Direction,
		Notes:          adj.Notes,
		OperatorID:     adj.OperatorID,
	})
	if err != nil {
		return nil, err
	}

	authoritative, diverged := inventory.Reconcile(preview, updated.Stock)
	if diverged {
		log.Printf("[session] WARN: stock estimate %d replaced by backend value %d for %s",
			preview, authoritative, updated.SKU)
	}
	return updated, nil
}

// RestoreShift reloads a persisted open shift on boot and revalidates
// it against the gateway. A shift the backend reports closed is
// discarded; an unreachable backend keeps the local copy so the
// operator can continue.
func (e *Engine) RestoreShift(ctx context.Context) error {
	st, err := e.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading shift state: %w", err)
	}
	if st == nil {
		return nil
	}

	remote, err := e.gw.CurrentShift(ctx, st.Shift.OperatorID)
	switch {
	case err == nil && remote.ID == st.Shift.ID:
		// Still open. Keep the persisted cash figure.
	case errors.Is(err, gateway.ErrUnavailable):
		log.Printf("[session] WARN: backend unreachable, restoring shift %s from local state", st.Shift.ID)
	default:
		log.Printf("[session] persisted shift %s no longer open, discarding", st.Shift.ID)
		if clearErr := e.state.Clear(ctx); clearErr != nil {
			log.Printf("[session] WARN: clearing stale shift state: %v", clearErr)
		}
		return nil
	}

	if err := e.shifts.Restore(&st.Shift, st.CashRecorded); err != nil {
		return fmt.Errorf("restoring shift: %w", err)
	}
	return nil
}

func (e *Engine) persistShiftState(ctx context.Context) {
	current := e.shifts.Current()
	if current == nil {
		return
	}
	err := e.state.Save(ctx, shift.State{
		Shift:        *current,
		CashRecorded: e.shifts.CashRecorded(),
	})
	if err != nil {
		log.Printf("[session] WARN: persisting shift state: %v", err)
	}
}

// Catalog listings delegate straight to the gateway.

func (e *Engine) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	return e.gw.ListProducts(ctx, search)
}

func (e *Engine) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return e.gw.LowStockProducts(ctx)
}

func (e *Engine) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return e.gw.ListCategories(ctx)
}

func (e *Engine) ListRegisters(ctx context.Context) ([]domain.Register, error) {
	return e.gw.ListRegisters(ctx)
}

func (e *Engine) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	return e.gw.ListMovements(ctx, productID, limit)
}

func (e *Engine) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	return e.gw.ListCustomers(ctx, search)
}
