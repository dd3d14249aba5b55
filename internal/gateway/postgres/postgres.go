// Package postgres implements the Gateway directly against a store
// database, for deployments where the terminal is the backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/domain"
	"github.com/omarPVP123131/pos-terminal/internal/gateway"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(12)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.bootstrapSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) bootstrapSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			sku TEXT NOT NULL UNIQUE,
			barcode TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category_id TEXT REFERENCES categories(id),
			price NUMERIC(12,2) NOT NULL,
			cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0,
			min_stock INTEGER NOT NULL DEFAULT 0,
			max_stock INTEGER NOT NULL DEFAULT 0,
			unit TEXT NOT NULL DEFAULT 'pza',
			tax_rate DOUBLE PRECISION NOT NULL DEFAULT 16,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS cash_registers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS shifts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			cash_register_id TEXT NOT NULL REFERENCES cash_registers(id),
			opened_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			closed_at TIMESTAMPTZ,
			opening_balance NUMERIC(12,2) NOT NULL,
			closing_balance NUMERIC(12,2),
			expected_balance NUMERIC(12,2),
			difference NUMERIC(12,2),
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open'
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS shifts_open_user
			ON shifts (user_id) WHERE status = 'open'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS shifts_open_register
			ON shifts (cash_register_id) WHERE status = 'open'`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			sale_number TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			customer_id TEXT,
			shift_id TEXT,
			subtotal NUMERIC(12,2) NOT NULL,
			tax_amount NUMERIC(12,2) NOT NULL,
			discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			total NUMERIC(12,2) NOT NULL,
			payment_method TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'completed',
			payment_status TEXT NOT NULL DEFAULT 'paid',
			idempotency_key TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			id TEXT PRIMARY KEY,
			sale_id TEXT NOT NULL REFERENCES sales(id),
			product_id TEXT NOT NULL REFERENCES products(id),
			quantity INTEGER NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			tax_rate DOUBLE PRECISION NOT NULL DEFAULT 16
		)`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL REFERENCES products(id),
			movement_type TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			reference_id TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			user_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

const productColumns = `p.id, p.sku, p.barcode, p.name, p.description,
	COALESCE(p.category_id, ''), COALESCE(c.name, ''), p.price, p.cost,
	p.stock, p.min_stock, p.max_stock, p.unit, p.tax_rate, p.is_active`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Description,
		&p.CategoryID, &p.CategoryName, &p.Price, &p.Cost,
		&p.Stock, &p.MinStock, &p.MaxStock, &p.Unit, &p.TaxRate, &p.Active)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.is_active = true
			AND ($1 = '' OR p.name ILIKE '%' || $1 || '%' OR p.sku ILIKE '%' || $1 || '%' OR p.barcode = $1)
		ORDER BY c.name, p.name
	`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.is_active = true AND p.stock <= p.min_stock
		ORDER BY p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key required", gateway.ErrRejected)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: sale has no items", gateway.ErrRejected)
	}

	if existing, err := s.findSaleByIdem(ctx, req.IdempotencyKey); err == nil {
		return existing, nil
	} else if !errors.Is(err, gateway.ErrNotFound) {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	sale := &domain.Sale{
		ID:             uuid.NewString(),
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

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) + 1 FROM sales`).Scan(&seq); err != nil {
		return nil, err
	}
	sale.Number = fmt.Sprintf("SALE-%06d", seq)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, sale_number, user_id, customer_id, shift_id, subtotal, tax_amount,
			discount_amount, total, payment_method, status, payment_status,
			idempotency_key, created_at
		)
		VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, sale.ID, sale.Number, sale.OperatorID, sale.CustomerID, sale.ShiftID,
		sale.Subtotal, sale.TaxAmount, sale.DiscountAmount, sale.Total,
		sale.PaymentMethod, sale.Status, sale.PaymentStatus, req.IdempotencyKey, now)
	if err != nil {
		if isUniqueViolation(err) {
			return s.findSaleByIdem(ctx, req.IdempotencyKey)
		}
		return nil, err
	}

	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: invalid quantity for %s", gateway.ErrRejected, line.ProductID)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2 AND is_active = true AND stock >= $1
		`, line.Quantity, line.ProductID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("%w: insufficient stock for %s", gateway.ErrRejected, line.ProductID)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, discount_amount, tax_rate)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, uuid.NewString(), sale.ID, line.ProductID, line.Quantity, line.UnitPrice, line.Discount, line.TaxRate)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, product_id, movement_type, quantity, reference_id, user_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, uuid.NewString(), line.ProductID, domain.MovementSale, -line.Quantity, sale.ID, req.OperatorID, now)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Store) findSaleByIdem(ctx context.Context, key string) (*domain.Sale, error) {
	var sale domain.Sale
	var customerID, shiftID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sale_number, user_id, customer_id, shift_id, subtotal, tax_amount,
			discount_amount, total, payment_method, status, payment_status, created_at
		FROM sales
		WHERE idempotency_key = $1
	`, key).Scan(&sale.ID, &sale.Number, &sale.OperatorID, &customerID, &shiftID,
		&sale.Subtotal, &sale.TaxAmount, &sale.DiscountAmount, &sale.Total,
		&sale.PaymentMethod, &sale.Status, &sale.PaymentStatus, &sale.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sale.CustomerID = customerID.String
	sale.ShiftID = shiftID.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity, unit_price, discount_amount, tax_rate
		FROM sale_items
		WHERE sale_id = $1
	`, sale.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line domain.SaleLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.UnitPrice, &line.Discount, &line.TaxRate); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListRegisters(ctx context.Context) ([]domain.Register, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, location, is_active FROM cash_registers WHERE is_active = true ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registers := make([]domain.Register, 0, 8)
	for rows.Next() {
		var r domain.Register
		if err := rows.Scan(&r.ID, &r.Name, &r.Location, &r.Active); err != nil {
			return nil, err
		}
		registers = append(registers, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return registers, nil
}

func (s *Store) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (*domain.Shift, error) {
	if req.OperatorID == "" || req.RegisterID == "" {
		return nil, fmt.Errorf("%w: operator and register required", gateway.ErrRejected)
	}
	if req.OpeningBalance.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance cannot be negative", gateway.ErrRejected)
	}

	shift := domain.Shift{
		ID:             uuid.NewString(),
		OperatorID:     req.OperatorID,
		RegisterID:     req.RegisterID,
		OpenedAt:       time.Now().UTC(),
		OpeningBalance: req.OpeningBalance,
		Status:         domain.ShiftStatusOpen,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (id, user_id, cash_register_id, opened_at, opening_balance, status)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, shift.ID, shift.OperatorID, shift.RegisterID, shift.OpenedAt, shift.OpeningBalance, shift.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: a shift is already open for this operator or register", gateway.ErrRejected)
		}
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT name FROM cash_registers WHERE id = $1
	`, shift.RegisterID).Scan(&shift.RegisterName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return &shift, nil
}

func (s *Store) CloseShift(ctx context.Context, shiftID string, req domain.ShiftCloseRequest) (*domain.ShiftSummary, error) {
	if req.ClosingBalance.IsNegative() {
		return nil, fmt.Errorf("%w: closing balance cannot be negative", gateway.ErrRejected)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var shift domain.Shift
	err = tx.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.cash_register_id, COALESCE(r.name, ''), s.opened_at,
			s.opening_balance, s.status
		FROM shifts s
		LEFT JOIN cash_registers r ON r.id = s.cash_register_id
		WHERE s.id = $1
		FOR UPDATE OF s
	`, shiftID).Scan(&shift.ID, &shift.OperatorID, &shift.RegisterID, &shift.RegisterName,
		&shift.OpenedAt, &shift.OpeningBalance, &shift.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: shift %s", gateway.ErrNotFound, shiftID)
	}
	if err != nil {
		return nil, err
	}
	if shift.Status != domain.ShiftStatusOpen {
		return nil, fmt.Errorf("%w: shift already closed", gateway.ErrRejected)
	}

	summary := domain.ShiftSummary{}
	rows, err := tx.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE shift_id = $1 AND status = $2
		GROUP BY payment_method
	`, shiftID, domain.SaleStatusCompleted)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var method string
		var count int
		var total decimal.Decimal
		if err := rows.Scan(&method, &count, &total); err != nil {
			rows.Close()
			return nil, err
		}
		summary.TotalTransactions += count
		summary.TotalSales = summary.TotalSales.Add(total)
		switch method {
		case domain.PaymentMethodCash:
			summary.CashSales = summary.CashSales.Add(total)
		case domain.PaymentMethodCard:
			summary.CardSales = summary.CardSales.Add(total)
		default:
			summary.OtherSales = summary.OtherSales.Add(total)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	// Only cash ends up in the drawer; card and transfer totals are
	// reported but do not move the expected balance.
	expected := shift.OpeningBalance.Add(summary.CashSales)
	variance := req.ClosingBalance.Sub(expected)

	_, err = tx.ExecContext(ctx, `
		UPDATE shifts
		SET status = $2, closed_at = $3, closing_balance = $4, expected_balance = $5,
			difference = $6, notes = $7
		WHERE id = $1
	`, shiftID, domain.ShiftStatusClosed, now, req.ClosingBalance, expected, variance, req.Notes)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	shift.Status = domain.ShiftStatusClosed
	shift.ClosedAt = &now
	shift.ClosingBalance = &req.ClosingBalance
	shift.ExpectedBalance = &expected
	shift.Variance = &variance
	shift.Notes = req.Notes
	summary.Shift = shift
	return &summary, nil
}

func (s *Store) CurrentShift(ctx context.Context, operatorID string) (*domain.Shift, error) {
	var shift domain.Shift
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.cash_register_id, COALESCE(r.name, ''), s.opened_at,
			s.opening_balance, s.status
		FROM shifts s
		LEFT JOIN cash_registers r ON r.id = s.cash_register_id
		WHERE s.user_id = $1 AND s.status = 'open'
	`, operatorID).Scan(&shift.ID, &shift.OperatorID, &shift.RegisterID, &shift.RegisterName,
		&shift.OpenedAt, &shift.OpeningBalance, &shift.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (s *Store) AdjustStock(ctx context.Context, req domain.StockAdjustmentRequest) (*domain.Product, error) {
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $1, updated_at = now()
		WHERE id = $2 AND stock + $1 >= 0
	`, delta, req.ProductID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, req.ProductID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: product %s", gateway.ErrNotFound, req.ProductID)
		}
		return nil, fmt.Errorf("%w: adjustment would drive stock below zero", gateway.ErrRejected)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, movement_type, quantity, notes, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`, uuid.NewString(), req.ProductID, kind, delta, req.Notes, req.OperatorID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, req.ProductID)
}

func (s *Store) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.product_id, COALESCE(p.name, ''), m.movement_type, m.quantity,
			m.reference_id, m.notes, m.user_id, m.created_at
		FROM stock_movements m
		LEFT JOIN products p ON p.id = m.product_id
		WHERE ($1 = '' OR m.product_id = $1)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Kind, &m.Quantity,
			&m.ReferenceID, &m.Notes, &m.OperatorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, phone, is_active
		FROM customers
		WHERE is_active = true AND ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY name
	`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Active); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, is_active FROM customers WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
