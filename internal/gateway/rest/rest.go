// Package rest implements the Gateway against the store backend's HTTP
// API. Every response arrives in a {success, data, message} envelope;
// transport failures map to ErrUnavailable and refused requests to
// ErrRejected with the backend's message kept verbatim.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/domain"
	"github.com/omarPVP123131/pos-terminal/internal/gateway"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer token forwarded on every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", gateway.ErrUnavailable, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: status %d, undecodable body", gateway.ErrUnavailable, resp.StatusCode)
	}
	if !envelope.Success {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", gateway.ErrNotFound, envelope.Message)
		}
		if envelope.Message == "" {
			return fmt.Errorf("%w: status %d", gateway.ErrRejected, resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", gateway.ErrRejected, envelope.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: undecodable data: %v", gateway.ErrUnavailable, err)
	}
	return nil
}

// The backend speaks plain JSON numbers for money and fractional tax
// rates, so wire types use float64 and convert at the edge.

type wireProduct struct {
	ID           string  `json:"id"`
	SKU          string  `json:"sku"`
	Barcode      string  `json:"barcode"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Price        float64 `json:"price"`
	Cost         float64 `json:"cost"`
	Stock        int     `json:"stock"`
	MinStock     int     `json:"min_stock"`
	MaxStock     int     `json:"max_stock"`
	Unit         string  `json:"unit"`
	TaxRate      float64 `json:"tax_rate"`
	Active       bool    `json:"is_active"`
}

func (w wireProduct) toDomain() domain.Product {
	return domain.Product{
		ID:           w.ID,
		SKU:          w.SKU,
		Barcode:      w.Barcode,
		Name:         w.Name,
		Description:  w.Description,
		CategoryID:   w.CategoryID,
		CategoryName: w.CategoryName,
		Price:        decimal.NewFromFloat(w.Price),
		Cost:         decimal.NewFromFloat(w.Cost),
		Stock:        w.Stock,
		MinStock:     w.MinStock,
		MaxStock:     w.MaxStock,
		Unit:         w.Unit,
		TaxRate:      w.TaxRate * 100,
		Active:       w.Active,
	}
}

type wireShift struct {
	ID              string   `json:"id"`
	OperatorID      string   `json:"user_id"`
	OperatorName    string   `json:"user_name"`
	RegisterID      string   `json:"cash_register_id"`
	RegisterName    string   `json:"cash_register_name"`
	OpenedAt        string   `json:"opened_at"`
	ClosedAt        *string  `json:"closed_at"`
	OpeningBalance  float64  `json:"opening_balance"`
	ClosingBalance  *float64 `json:"closing_balance"`
	ExpectedBalance *float64 `json:"expected_balance"`
	Difference      *float64 `json:"difference"`
	Notes           string   `json:"notes"`
	Status          string   `json:"status"`
}

func parseWireTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (w wireShift) toDomain() domain.Shift {
	s := domain.Shift{
		ID:             w.ID,
		OperatorID:     w.OperatorID,
		OperatorName:   w.OperatorName,
		RegisterID:     w.RegisterID,
		RegisterName:   w.RegisterName,
		OpenedAt:       parseWireTime(w.OpenedAt),
		OpeningBalance: decimal.NewFromFloat(w.OpeningBalance),
		Notes:          w.Notes,
		Status:         w.Status,
	}
	if w.ClosedAt != nil {
		t := parseWireTime(*w.ClosedAt)
		s.ClosedAt = &t
	}
	if w.ClosingBalance != nil {
		v := decimal.NewFromFloat(*w.ClosingBalance)
		s.ClosingBalance = &v
	}
	if w.ExpectedBalance != nil {
		v := decimal.NewFromFloat(*w.ExpectedBalance)
		s.ExpectedBalance = &v
	}
	if w.Difference != nil {
		v := decimal.NewFromFloat(*w.Difference)
		s.Variance = &v
	}
	return s
}

type wireShiftSummary struct {
	wireShift
	TotalSales        float64 `json:"total_sales"`
	TotalTransactions int     `json:"total_transactions"`
	CashSales         float64 `json:"cash_sales"`
	CardSales         float64 `json:"card_sales"`
	OtherSales        float64 `json:"other_sales"`
}

type wireSaleItem struct {
	ProductID      string  `json:"product_id"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxRate        float64 `json:"tax_rate"`
}

type wireSale struct {
	ID             string         `json:"id"`
	Number         string         `json:"sale_number"`
	OperatorID     string         `json:"user_id"`
	CustomerID     string         `json:"customer_id"`
	ShiftID        string         `json:"shift_id"`
	Subtotal       float64        `json:"subtotal"`
	TaxAmount      float64        `json:"tax_amount"`
	DiscountAmount float64        `json:"discount_amount"`
	Total          float64        `json:"total"`
	PaymentMethod  string         `json:"payment_method"`
	Status         string         `json:"status"`
	PaymentStatus  string         `json:"payment_status"`
	CreatedAt      string         `json:"created_at"`
	Items          []wireSaleItem `json:"items"`
}

func (w wireSale) toDomain() domain.Sale {
	items := make([]domain.SaleLine, 0, len(w.Items))
	for _, it := range w.Items {
		items = append(items, domain.SaleLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: decimal.NewFromFloat(it.UnitPrice),
			Discount:  decimal.NewFromFloat(it.DiscountAmount),
			TaxRate:   it.TaxRate * 100,
		})
	}
	return domain.Sale{
		ID:             w.ID,
		Number:         w.Number,
		OperatorID:     w.OperatorID,
		CustomerID:     w.CustomerID,
		ShiftID:        w.ShiftID,
		Subtotal:       decimal.NewFromFloat(w.Subtotal),
		TaxAmount:      decimal.NewFromFloat(w.TaxAmount),
		DiscountAmount: decimal.NewFromFloat(w.DiscountAmount),
		Total:          decimal.NewFromFloat(w.Total),
		PaymentMethod:  w.PaymentMethod,
		Status:         w.Status,
		PaymentStatus:  w.PaymentStatus,
		CreatedAt:      parseWireTime(w.CreatedAt),
		Items:          items,
	}
}

type wireMovement struct {
	ID           string `json:"id"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	MovementType string `json:"movement_type"`
	Quantity     int    `json:"quantity"`
	ReferenceID  string `json:"reference_id"`
	Notes        string `json:"notes"`
	OperatorID   string `json:"user_id"`
	OperatorName string `json:"user_name"`
	CreatedAt    string `json:"created_at"`
}

func (w wireMovement) toDomain() domain.StockMovement {
	return domain.StockMovement{
		ID:           w.ID,
		ProductID:    w.ProductID,
		ProductName:  w.ProductName,
		Kind:         w.MovementType,
		Quantity:     w.Quantity,
		ReferenceID:  w.ReferenceID,
		Notes:        w.Notes,
		OperatorID:   w.OperatorID,
		OperatorName: w.OperatorName,
		CreatedAt:    parseWireTime(w.CreatedAt),
	}
}

func decToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func (c *Client) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	path := "/products"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var wire []wireProduct
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(wire))
	for _, w := range wire {
		products = append(products, w.toDomain())
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var wire wireProduct
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &wire); err != nil {
		return nil, err
	}
	p := wire.toDomain()
	return &p, nil
}

func (c *Client) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	var wire []wireProduct
	if err := c.do(ctx, http.MethodGet, "/inventory/products/low-stock", nil, &wire); err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(wire))
	for _, w := range wire {
		products = append(products, w.toDomain())
	}
	return products, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.do(ctx, http.MethodGet, "/inventory/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	items := make([]wireSaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		items = append(items, wireSaleItem{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPrice:      decToFloat(line.UnitPrice),
			DiscountAmount: decToFloat(line.Discount),
			TaxRate:        line.TaxRate / 100,
		})
	}
	body := map[string]any{
		"user_id":         req.OperatorID,
		"customer_id":     req.CustomerID,
		"shift_id":        req.ShiftID,
		"items":           items,
		"subtotal":        decToFloat(req.Subtotal),
		"tax_amount":      decToFloat(req.TaxAmount),
		"discount_amount": decToFloat(req.DiscountAmount),
		"total":           decToFloat(req.Total),
		"payment_method":  req.PaymentMethod,
		"idempotency_key": req.IdempotencyKey,
	}

	var wire wireSale
	if err := c.do(ctx, http.MethodPost, "/sales", body, &wire); err != nil {
		return nil, err
	}
	sale := wire.toDomain()
	return &sale, nil
}

func (c *Client) ListRegisters(ctx context.Context) ([]domain.Register, error) {
	var registers []domain.Register
	if err := c.do(ctx, http.MethodGet, "/cash-registers", nil, &registers); err != nil {
		return nil, err
	}
	return registers, nil
}

func (c *Client) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (*domain.Shift, error) {
	body := map[string]any{
		"user_id":          req.OperatorID,
		"cash_register_id": req.RegisterID,
		"opening_balance":  decToFloat(req.OpeningBalance),
	}
	var wire wireShift
	if err := c.do(ctx, http.MethodPost, "/shifts/open", body, &wire); err != nil {
		return nil, err
	}
	shift := wire.toDomain()
	return &shift, nil
}

func (c *Client) CloseShift(ctx context.Context, shiftID string, req domain.ShiftCloseRequest) (*domain.ShiftSummary, error) {
	body := map[string]any{
		"closing_balance": decToFloat(req.ClosingBalance),
		"notes":           req.Notes,
	}
	var wire wireShiftSummary
	if err := c.do(ctx, http.MethodPost, "/shifts/"+url.PathEscape(shiftID)+"/close", body, &wire); err != nil {
		return nil, err
	}
	summary := &domain.ShiftSummary{
		Shift:             wire.wireShift.toDomain(),
		TotalSales:        decimal.NewFromFloat(wire.TotalSales),
		TotalTransactions: wire.TotalTransactions,
		CashSales:         decimal.NewFromFloat(wire.CashSales),
		CardSales:         decimal.NewFromFloat(wire.CardSales),
		OtherSales:        decimal.NewFromFloat(wire.OtherSales),
	}
	return summary, nil
}

func (c *Client) CurrentShift(ctx context.Context, operatorID string) (*domain.Shift, error) {
	var wire *wireShift
	if err := c.do(ctx, http.MethodGet, "/shifts/current/"+url.PathEscape(operatorID), nil, &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, gateway.ErrNotFound
	}
	shift := wire.toDomain()
	return &shift, nil
}

// AdjustStock submits the movement, then re-reads the product so the
// caller gets the backend's authoritative stock level rather than a
// local guess.
func (c *Client) AdjustStock(ctx context.Context, req domain.StockAdjustmentRequest) (*domain.Product, error) {
	body := map[string]any{
		"product_id":      req.ProductID,
		"quantity":        req.Quantity,
		"adjustment_type": req.AdjustmentType,
		"notes":           req.Notes,
		"user_id":         req.OperatorID,
	}
	if err := c.do(ctx, http.MethodPost, "/inventory/stock/adjust", body, nil); err != nil {
		return nil, err
	}
	return c.GetProduct(ctx, req.ProductID)
}

func (c *Client) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	params := url.Values{}
	if productID != "" {
		params.Set("product_id", productID)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/inventory/movements"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var wire []wireMovement
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	movements := make([]domain.StockMovement, 0, len(wire))
	for _, w := range wire {
		movements = append(movements, w.toDomain())
	}
	return movements, nil
}

func (c *Client) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	path := "/customers"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var customers []domain.Customer
	if err := c.do(ctx, http.MethodGet, path, nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}
