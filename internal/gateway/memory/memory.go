// Package memory is an in-process Gateway with seeded demo data. It is
// the default backend when neither DATABASE_URL nor API_BASE_URL is
// set, and the fixture store for tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/domain"
	"github.com/omarPVP123131/pos-terminal/internal/gateway"
	"github.com/omarPVP123131/pos-terminal/internal/money"
)

type Store struct {
	mu             sync.RWMutex
	products       map[string]domain.Product
	categories     map[string]domain.Category
	registers      map[string]domain.Register
	customers      map[string]domain.Customer
	salesByID      map[string]*domain.Sale
	salesByIdem    map[string]*domain.Sale
	movements      []domain.StockMovement
	shiftsByID     map[string]domain.Shift
	openShiftByOp  map[string]string
	openShiftByReg map[string]string
	saleSeq        int
}

func New() *Store {
	return &Store{
		products:       make(map[string]domain.Product),
		categories:     make(map[string]domain.Category),
		registers:      make(map[string]domain.Register),
		customers:      make(map[string]domain.Customer),
		salesByID:      make(map[string]*domain.Sale),
		salesByIdem:    make(map[string]*domain.Sale),
		movements:      make([]domain.StockMovement, 0, 128),
		shiftsByID:     make(map[string]domain.Shift),
		openShiftByOp:  make(map[string]string),
		openShiftByReg: make(map[string]string),
	}
}

func NewSeeded() *Store {
	s := New()

	categories := []domain.Category{
		{ID: "cat-abarrotes", Name: "Abarrotes"},
		{ID: "cat-bebidas", Name: "Bebidas"},
		{ID: "cat-botanas", Name: "Botanas"},
		{ID: "cat-lacteos", Name: "Lácteos"},
		{ID: "cat-limpieza", Name: "Limpieza"},
	}
	for _, c := range categories {
		s.categories[c.ID] = c
	}

	products := []domain.Product{
		{SKU: "ABA-001", Barcode: "7501000111111", Name: "Arroz 1kg", CategoryID: "cat-abarrotes", Price: dec("32.50"), Cost: dec("24.00"), Stock: 40, MinStock: 10, Unit: "pza"},
		{SKU: "ABA-002", Barcode: "7501000122222", Name: "Frijol Negro 900g", CategoryID: "cat-abarrotes", Price: dec("38.00"), Cost: dec("29.50"), Stock: 35, MinStock: 10, Unit: "pza"},
		{SKU: "ABA-003", Barcode: "7501000133333", Name: "Aceite Vegetal 1L", CategoryID: "cat-abarrotes", Price: dec("52.00"), Cost: dec("41.00"), Stock: 24, MinStock: 8, Unit: "pza"},
		{SKU: "BEB-001", Barcode: "7501000211111", Name: "Refresco Cola 600ml", CategoryID: "cat-bebidas", Price: dec("19.00"), Cost: dec("13.50"), Stock: 60, MinStock: 20, Unit: "pza"},
		{SKU: "BEB-002", Barcode: "7501000222222", Name: "Agua Natural 1L", CategoryID: "cat-bebidas", Price: dec("14.00"), Cost: dec("8.00"), Stock: 80, MinStock: 24, Unit: "pza"},
		{SKU: "BOT-001", Barcode: "7501000311111", Name: "Papas Fritas 45g", CategoryID: "cat-botanas", Price: dec("17.50"), Cost: dec("12.00"), Stock: 50, MinStock: 15, Unit: "pza"},
		{SKU: "BOT-002", Barcode: "7501000322222", Name: "Cacahuates 180g", CategoryID: "cat-botanas", Price: dec("28.00"), Cost: dec("19.00"), Stock: 30, MinStock: 10, Unit: "pza"},
		{SKU: "LAC-001", Barcode: "7501000411111", Name: "Leche Entera 1L", CategoryID: "cat-lacteos", Price: dec("26.50"), Cost: dec("21.00"), Stock: 45, MinStock: 12, Unit: "pza"},
		{SKU: "LAC-002", Barcode: "7501000422222", Name: "Queso Panela 400g", CategoryID: "cat-lacteos", Price: dec("64.00"), Cost: dec("48.00"), Stock: 15, MinStock: 5, Unit: "pza"},
		{SKU: "LIM-001", Barcode: "7501000511111", Name: "Detergente 1kg", CategoryID: "cat-limpieza", Price: dec("45.00"), Cost: dec("33.00"), Stock: 20, MinStock: 6, Unit: "pza"},
	}
	for _, p := range products {
		p.ID = uuid.NewString()
		p.Active = true
		p.TaxRate = money.DefaultTaxRate
		if cat, ok := s.categories[p.CategoryID]; ok {
			p.CategoryName = cat.Name
		}
		s.products[p.ID] = p
	}

	registers := []domain.Register{
		{ID: "reg-1", Name: "Caja 1", Location: "Mostrador", Active: true},
		{ID: "reg-2", Name: "Caja 2", Location: "Mostrador", Active: true},
	}
	for _, r := range registers {
		s.registers[r.ID] = r
	}

	customers := []domain.Customer{
		{ID: uuid.NewString(), Name: "Público General", Active: true},
		{ID: uuid.NewString(), Name: "María López", Phone: "55-1234-5678", Active: true},
	}
	for _, c := range customers {
		s.customers[c.ID] = c
	}

	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (s *Store) ListProducts(_ context.Context, search string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) &&
			p.Barcode != search {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.CategoryName == b.CategoryName {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.CategoryName, b.CategoryName)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (s *Store) LowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, 8)
	for _, p := range s.products {
		if p.Active && p.Stock <= p.MinStock {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateSale(_ context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key required", gateway.ErrRejected)
	}
	if existing, ok := s.salesByIdem[req.IdempotencyKey]; ok {
		return cloneSale(existing), nil
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: sale has no items", gateway.ErrRejected)
	}
	if req.OperatorID == "" {
		return nil, fmt.Errorf("%w: operator required", gateway.ErrRejected)
	}

	// Validate every line before mutating anything.
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: invalid quantity for %s", gateway.ErrRejected, line.ProductID)
		}
		p, ok := s.products[line.ProductID]
		if !ok || !p.Active {
			return nil, fmt.Errorf("%w: product %s", gateway.ErrNotFound, line.ProductID)
		}
		if p.Stock < line.Quantity {
			return nil, fmt.Errorf("%w: insufficient stock for %s", gateway.ErrRejected, p.Name)
		}
	}

	now := time.Now().UTC()
	s.saleSeq++
	sale := &domain.Sale{
		ID:             uuid.NewString(),
		Number:         fmt.Sprintf("SALE-%06d", s.saleSeq),
		OperatorID:     req.OperatorID,
		CustomerID:     req.CustomerID,
		ShiftID:        req.ShiftID,
		Subtotal:       req.Subtotal,
		TaxAmount:      req.TaxAmount,
		DiscountAmount: req.DiscountAmount,
		Total:          req.Total,
		PaymentMethod:  req.PaymentMethod,
		Status:         domain.SaleStatusCompleted,
		PaymentStatus:  domain.PaymentStatusPaid,
		CreatedAt:      now,
		Items:          append([]domain.SaleLine(nil), req.Items...),
	}

	for _, line := range req.Items {
		p := s.products[line.ProductID]
		p.Stock -= line.Quantity
		s.products[line.ProductID] = p
		s.movements = append(s.movements, domain.StockMovement{
			ID:          uuid.NewString(),
			ProductID:   p.ID,
			ProductName: p.Name,
			Kind:        domain.MovementSale,
			Quantity:    -line.Quantity,
			ReferenceID: sale.ID,
			OperatorID:  req.OperatorID,
			CreatedAt:   now,
		})
	}

	s.salesByID[sale.ID] = sale
	s.salesByIdem[req.IdempotencyKey] = sale
	return cloneSale(sale), nil
}

func (s *Store) ListRegisters(_ context.Context) ([]domain.Register, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	registers := make([]domain.Register, 0, len(s.registers))
	for _, r := range s.registers {
		if r.Active {
			registers = append(registers, r)
		}
	}
	slices.SortFunc(registers, func(a, b domain.Register) int {
		return strings.Compare(a.Name, b.Name)
	})
	return registers, nil
}

func (s *Store) OpenShift(_ context.Context, req domain.ShiftOpenRequest) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.OperatorID == "" || req.RegisterID == "" {
		return nil, fmt.Errorf("%w: operator and register required", gateway.ErrRejected)
	}
	if req.OpeningBalance.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance cannot be negative", gateway.ErrRejected)
	}
	if _, open := s.openShiftByOp[req.OperatorID]; open {
		return nil, fmt.Errorf("%w: operator already has an open shift", gateway.ErrRejected)
	}
	if _, open := s.openShiftByReg[req.RegisterID]; open {
		return nil, fmt.Errorf("%w: register already has an open shift", gateway.ErrRejected)
	}
	reg, ok := s.registers[req.RegisterID]
	if !ok {
		return nil, fmt.Errorf("%w: register %s", gateway.ErrNotFound, req.RegisterID)
	}

	shift := domain.Shift{
		ID:             uuid.NewString(),
		OperatorID:     req.OperatorID,
		RegisterID:     req.RegisterID,
		RegisterName:   reg.Name,
		OpenedAt:       time.Now().UTC(),
		OpeningBalance: req.OpeningBalance,
		Status:         domain.ShiftStatusOpen,
	}
	s.shiftsByID[shift.ID] = shift
	s.openShiftByOp[req.OperatorID] = shift.ID
	s.openShiftByReg[req.RegisterID] = shift.ID
	cp := shift
	return &cp, nil
}

func (s *Store) CloseShift(_ context.Context, shiftID string, req domain.ShiftCloseRequest) (*domain.ShiftSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shift, ok := s.shiftsByID[shiftID]
	if !ok {
		return nil, fmt.Errorf("%w: shift %s", gateway.ErrNotFound, shiftID)
	}
	if shift.Status != domain.ShiftStatusOpen {
		return nil, fmt.Errorf("%w: shift already closed", gateway.ErrRejected)
	}
	if req.ClosingBalance.IsNegative() {
		return nil, fmt.Errorf("%w: closing balance cannot be negative", gateway.ErrRejected)
	}

	summary := domain.ShiftSummary{}
	salesTotal := decimal.Zero
	for _, sale := range s.salesByID {
		if sale.ShiftID != shiftID || sale.Status != domain.SaleStatusCompleted {
			continue
		}
		summary.TotalTransactions++
		salesTotal = salesTotal.Add(sale.Total)
		switch sale.PaymentMethod {
		case domain.PaymentMethodCash:
			summary.CashSales = summary.CashSales.Add(sale.Total)
		case domain.PaymentMethodCard:
			summary.CardSales = summary.CardSales.Add(sale.Total)
		default:
			summary.OtherSales = summary.OtherSales.Add(sale.Total)
		}
	}
	summary.TotalSales = salesTotal

	now := time.Now().UTC()
	// Only cash ends up in the drawer; card and transfer totals are
	// reported but do not move the expected balance.
	expected := shift.OpeningBalance.Add(summary.CashSales)
	variance := req.ClosingBalance.Sub(expected)

	shift.Status = domain.ShiftStatusClosed
	shift.ClosedAt = &now
	shift.ClosingBalance = &req.ClosingBalance
	shift.ExpectedBalance = &expected
	shift.Variance = &variance
	shift.Notes = req.Notes

	s.shiftsByID[shiftID] = shift
	delete(s.openShiftByOp, shift.OperatorID)
	delete(s.openShiftByReg, shift.RegisterID)

	summary.Shift = shift
	return &summary, nil
}

func (s *Store) CurrentShift(_ context.Context, operatorID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, ok := s.openShiftByOp[operatorID]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	shift, ok := s.shiftsByID[shiftID]
	if !ok || shift.Status != domain.ShiftStatusOpen {
		return nil, gateway.ErrNotFound
	}
	cp := shift
	return &cp, nil
}

func (s *Store) AdjustStock(_ context.Context, req domain.StockAdjustmentRequest) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[req.ProductID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", gateway.ErrNotFound, req.ProductID)
	}
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be positive", gateway.ErrRejected)
	}

	var delta int
	var kind string
	switch req.AdjustmentType {
	case "in":
		delta = req.Quantity
		kind = domain.MovementAdjustmentIn
	case "out":
		delta = -req.Quantity
		kind = domain.MovementAdjustmentOut
	default:
		return nil, fmt.Errorf("%w: unknown adjustment type %q", gateway.ErrRejected, req.AdjustmentType)
	}

	if p.Stock+delta < 0 {
		return nil, fmt.Errorf("%w: adjustment would drive stock below zero", gateway.ErrRejected)
	}

	p.Stock += delta
	s.products[req.ProductID] = p
	s.movements = append(s.movements, domain.StockMovement{
		ID:          uuid.NewString(),
		ProductID:   p.ID,
		ProductName: p.Name,
		Kind:        kind,
		Quantity:    delta,
		Notes:       req.Notes,
		OperatorID:  req.OperatorID,
		CreatedAt:   time.Now().UTC(),
	})

	cp := p
	return &cp, nil
}

func (s *Store) ListMovements(_ context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockMovement, 0, 64)
	for _, m := range s.movements {
		if productID != "" && m.ProductID != productID {
			continue
		}
		result = append(result, m)
	}
	slices.SortFunc(result, func(a, b domain.StockMovement) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListCustomers(_ context.Context, search string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if !c.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	cp := c
	return &cp, nil
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	dup.Items = append([]domain.SaleLine(nil), src.Items...)
	return &dup
}
