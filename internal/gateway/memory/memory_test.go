package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/domain"
	"github.com/omarPVP123131/pos-terminal/internal/gateway"
)

func firstProduct(t *testing.T, s *Store) domain.Product {
	t.Helper()
	products, err := s.ListProducts(context.Background(), "")
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) == 0 {
		t.Fatal("seeded store has no products")
	}
	return products[0]
}

func saleRequestFor(p domain.Product, qty int, method string) domain.SaleRequest {
	lineTotal := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	tax := lineTotal.Mul(decimal.NewFromFloat(0.16)).Round(2)
	return domain.SaleRequest{
		OperatorID: "op-1",
		Items: []domain.SaleLine{
			{ProductID: p.ID, Quantity: qty, UnitPrice: p.Price, TaxRate: p.TaxRate},
		},
		Subtotal:       lineTotal,
		TaxAmount:      tax,
		Total:          lineTotal.Add(tax),
		PaymentMethod:  method,
		IdempotencyKey: "idem-" + p.ID,
	}
}

func TestCreateSaleDecrementsStockAndRecordsMovement(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	p := firstProduct(t, s)

	sale, err := s.CreateSale(ctx, saleRequestFor(p, 3, domain.PaymentMethodCash))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.Status != domain.SaleStatusCompleted {
		t.Fatalf("status = %s, want completed", sale.Status)
	}
	if sale.Number == "" {
		t.Fatal("sale number must be assigned")
	}
	if sale.PaymentMethod != domain.PaymentMethodCash {
		t.Fatalf("payment method = %q, want cash", sale.PaymentMethod)
	}

	after, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != p.Stock-3 {
		t.Fatalf("stock = %d, want %d", after.Stock, p.Stock-3)
	}

	movements, err := s.ListMovements(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(movements))
	}
	m := movements[0]
	if m.Kind != domain.MovementSale || m.Quantity != -3 || m.ReferenceID != sale.ID {
		t.Fatalf("movement = %+v", m)
	}
}

func TestCreateSaleIsIdempotent(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	p := firstProduct(t, s)
	req := saleRequestFor(p, 2, domain.PaymentMethodCash)

	first, err := s.CreateSale(ctx, req)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := s.CreateSale(ctx, req)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %s vs %s", first.ID, second.ID)
	}

	after, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != p.Stock-2 {
		t.Fatalf("stock = %d, want single decrement to %d", after.Stock, p.Stock-2)
	}
}

func TestCreateSaleInsufficientStockLeavesNoTrace(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	p := firstProduct(t, s)

	req := saleRequestFor(p, p.Stock+1, domain.PaymentMethodCash)
	if _, err := s.CreateSale(ctx, req); !errors.Is(err, gateway.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}

	after, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != p.Stock {
		t.Fatalf("stock = %d, want unchanged %d", after.Stock, p.Stock)
	}
	movements, err := s.ListMovements(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 0 {
		t.Fatalf("movements = %d, want 0", len(movements))
	}
}

func TestShiftLifecycleAndVariance(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	shift, err := s.OpenShift(ctx, domain.ShiftOpenRequest{
		OperatorID:     "op-1",
		RegisterID:     "reg-1",
		OpeningBalance: decimal.RequireFromString("1000.00"),
	})
	if err != nil {
		t.Fatalf("open shift: %v", err)
	}

	if _, err := s.OpenShift(ctx, domain.ShiftOpenRequest{
		OperatorID:     "op-1",
		RegisterID:     "reg-2",
		OpeningBalance: decimal.Zero,
	}); !errors.Is(err, gateway.ErrRejected) {
		t.Fatalf("double open by operator: %v, want ErrRejected", err)
	}
	if _, err := s.OpenShift(ctx, domain.ShiftOpenRequest{
		OperatorID:     "op-2",
		RegisterID:     "reg-1",
		OpeningBalance: decimal.Zero,
	}); !errors.Is(err, gateway.ErrRejected) {
		t.Fatalf("double open on register: %v, want ErrRejected", err)
	}

	current, err := s.CurrentShift(ctx, "op-1")
	if err != nil {
		t.Fatalf("current shift: %v", err)
	}
	if current.ID != shift.ID {
		t.Fatalf("current = %s, want %s", current.ID, shift.ID)
	}

	// One cash sale of 500 against the shift.
	p := firstProduct(t, s)
	req := domain.SaleRequest{
		OperatorID:     "op-1",
		ShiftID:        shift.ID,
		Items:          []domain.SaleLine{{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price}},
		Subtotal:       decimal.RequireFromString("431.03"),
		TaxAmount:      decimal.RequireFromString("68.97"),
		Total:          decimal.RequireFromString("500.00"),
		PaymentMethod:  domain.PaymentMethodCash,
		IdempotencyKey: "idem-shift-sale",
	}
	if _, err := s.CreateSale(ctx, req); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	summary, err := s.CloseShift(ctx, shift.ID, domain.ShiftCloseRequest{
		ClosingBalance: decimal.RequireFromString("1480.00"),
	})
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	closed := summary.Shift
	if closed.Status != domain.ShiftStatusClosed || closed.ClosedAt == nil {
		t.Fatalf("closed shift = %+v", closed)
	}
	if closed.ExpectedBalance == nil || !closed.ExpectedBalance.Equal(decimal.RequireFromString("1500.00")) {
		t.Fatalf("expected = %v, want 1500.00", closed.ExpectedBalance)
	}
	if closed.Variance == nil || !closed.Variance.Equal(decimal.RequireFromString("-20.00")) {
		t.Fatalf("variance = %v, want -20.00", closed.Variance)
	}
	if summary.TotalTransactions != 1 || !summary.CashSales.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("summary = %+v", summary)
	}

	if _, err := s.CurrentShift(ctx, "op-1"); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("current after close: %v, want ErrNotFound", err)
	}
	if _, err := s.CloseShift(ctx, shift.ID, domain.ShiftCloseRequest{
		ClosingBalance: decimal.Zero,
	}); !errors.Is(err, gateway.ErrRejected) {
		t.Fatalf("double close: %v, want ErrRejected", err)
	}
}

func TestCardSalesDoNotMoveExpectedBalance(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	shift, err := s.OpenShift(ctx, domain.ShiftOpenRequest{
		OperatorID:     "op-1",
		RegisterID:     "reg-1",
		OpeningBalance: decimal.RequireFromString("1000.00"),
	})
	if err != nil {
		t.Fatalf("open shift: %v", err)
	}

	p := firstProduct(t, s)
	req := saleRequestFor(p, 1, domain.PaymentMethodCard)
	req.ShiftID = shift.ID
	req.Subtotal = decimal.RequireFromString("431.03")
	req.TaxAmount = decimal.RequireFromString("68.97")
	req.Total = decimal.RequireFromString("500.00")
	if _, err := s.CreateSale(ctx, req); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// Card money never reaches the drawer, so counting exactly the
	// opening float reconciles to zero.
	summary, err := s.CloseShift(ctx, shift.ID, domain.ShiftCloseRequest{
		ClosingBalance: decimal.RequireFromString("1000.00"),
	})
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	closed := summary.Shift
	if closed.ExpectedBalance == nil || !closed.ExpectedBalance.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("expected = %v, want 1000.00", closed.ExpectedBalance)
	}
	if closed.Variance == nil || !closed.Variance.IsZero() {
		t.Fatalf("variance = %v, want 0", closed.Variance)
	}
	if !summary.CardSales.Equal(decimal.RequireFromString("500.00")) || !summary.CashSales.IsZero() {
		t.Fatalf("summary = %+v", summary)
	}
	if !summary.TotalSales.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("total sales = %v, want 500.00", summary.TotalSales)
	}
}

func TestAdjustStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	p := firstProduct(t, s)

	updated, err := s.AdjustStock(ctx, domain.StockAdjustmentRequest{
		ProductID:      p.ID,
		Quantity:       5,
		AdjustmentType: "in",
		Notes:          "recepción de mercancía",
		OperatorID:     "op-1",
	})
	if err != nil {
		t.Fatalf("adjust in: %v", err)
	}
	if updated.Stock != p.Stock+5 {
		t.Fatalf("stock = %d, want %d", updated.Stock, p.Stock+5)
	}

	if _, err := s.AdjustStock(ctx, domain.StockAdjustmentRequest{
		ProductID:      p.ID,
		Quantity:       updated.Stock + 1,
		AdjustmentType: "out",
		OperatorID:     "op-1",
	}); !errors.Is(err, gateway.ErrRejected) {
		t.Fatalf("over-adjust out: %v, want ErrRejected", err)
	}

	movements, err := s.ListMovements(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 || movements[0].Kind != domain.MovementAdjustmentIn || movements[0].Quantity != 5 {
		t.Fatalf("movements = %+v", movements)
	}
}

func TestLowStockProducts(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	p := firstProduct(t, s)

	// Drain stock down to the minimum via an out adjustment.
	_, err := s.AdjustStock(ctx, domain.StockAdjustmentRequest{
		ProductID:      p.ID,
		Quantity:       p.Stock - p.MinStock,
		AdjustmentType: "out",
		OperatorID:     "op-1",
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}

	low, err := s.LowStockProducts(ctx)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	found := false
	for _, candidate := range low {
		if candidate.ID == p.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("product %s should be in low stock list", p.SKU)
	}
}
