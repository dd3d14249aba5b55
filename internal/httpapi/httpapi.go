// Package httpapi exposes the terminal engine on a loopback HTTP
// server consumed by the register UI. Responses use the same
// {success, data, message} envelope the store backend speaks, so the UI
// handles both the same way.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/auth"
	"github.com/omarPVP123131/pos-terminal/internal/cart"
	"github.com/omarPVP123131/pos-terminal/internal/gateway"
	"github.com/omarPVP123131/pos-terminal/internal/inventory"
	"github.com/omarPVP123131/pos-terminal/internal/money"
	"github.com/omarPVP123131/pos-terminal/internal/session"
	"github.com/omarPVP123131/pos-terminal/internal/shift"
)

type API struct {
	engine        *session.Engine
	allowedOrigin string
	pins          *auth.PINCache
}

func New(engine *session.Engine, allowedOrigin string, pins *auth.PINCache) *API {
	if pins == nil {
		pins = auth.NewPINCache(12 * time.Hour)
	}
	return &API{
		engine:        engine,
		allowedOrigin: allowedOrigin,
		pins:          pins,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/products", a.requireAuth(a.handleProducts))
	mux.HandleFunc("/api/products/low-stock", a.requireAuth(a.handleLowStock))
	mux.HandleFunc("/api/categories", a.requireAuth(a.handleCategories))
	mux.HandleFunc("/api/customers", a.requireAuth(a.handleCustomers))
	mux.HandleFunc("/api/cash-registers", a.requireAuth(a.handleRegisters))

	mux.HandleFunc("/api/cart", a.requireAuth(a.handleCart))
	mux.HandleFunc("/api/cart/items", a.requireAuth(a.handleCartItems))
	mux.HandleFunc("/api/cart/items/", a.requireAuth(a.handleCartItemActions))
	mux.HandleFunc("/api/checkout", a.requireAuth(a.handleCheckout))

	mux.HandleFunc("/api/shifts/open", a.requireAuth(a.handleShiftOpen))
	mux.HandleFunc("/api/shifts/close", a.requireAuth(a.handleShiftClose))
	mux.HandleFunc("/api/shifts/close/preview", a.requireAuth(a.handleClosePreview))
	mux.HandleFunc("/api/shifts/current", a.requireAuth(a.handleShiftCurrent))

	mux.HandleFunc("/api/inventory/stock/adjust", a.requireAuth(a.handleStockAdjust))
	mux.HandleFunc("/api/inventory/movements", a.requireAuth(a.handleMovements))

	mux.HandleFunc("/api/auth/pin", a.requireAuth(a.handlePIN))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		operator, err := auth.ParseAccessToken(token)
		if err != nil {
			// An expired token can still unlock the terminal with the
			// operator's enrolled PIN while the backend is unreachable.
			if errors.Is(err, auth.ErrTokenExpired) && operator != nil {
				pin := strings.TrimSpace(r.Header.Get("X-Offline-PIN"))
				if pin != "" {
					if pinErr := a.pins.Verify(operator.ID, pin); pinErr == nil {
						log.Printf("[httpapi] WARN: offline PIN unlock for operator %s", operator.ID)
						next(w, r.WithContext(session.WithOperator(r.Context(), *operator)))
						return
					}
				}
			}
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		next(w, r.WithContext(session.WithOperator(r.Context(), *operator)))
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Offline-PIN")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	products, err := a.engine.ListProducts(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeData(w, http.StatusOK, products)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	products, err := a.engine.LowStockProducts(r.Context())
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	type lowStockProduct struct {
		ID       string           `json:"id"`
		SKU      string           `json:"sku"`
		Name     string           `json:"name"`
		Stock    int              `json:"stock"`
		MinStock int              `json:"min_stock"`
		Status   inventory.Status `json:"stock_status"`
	}
	out := make([]lowStockProduct, 0, len(products))
	for _, p := range products {
		out = append(out, lowStockProduct{
			ID:       p.ID,
			SKU:      p.SKU,
			Name:     p.Name,
			Stock:    p.Stock,
			MinStock: p.MinStock,
			Status:   inventory.StatusFor(p.Stock, p.MinStock),
		})
	}
	writeData(w, http.StatusOK, out)
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	categories, err := a.engine.ListCategories(r.Context())
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeData(w, http.StatusOK, categories)
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	customers, err := a.engine.ListCustomers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeData(w, http.StatusOK, customers)
}

func (a *API) handleRegisters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	registers, err := a.engine.ListRegisters(r.Context())
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeData(w, http.StatusOK, registers)
}

type cartView struct {
	Items     []cart.LineItem `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
}

func (a *API) cartView() cartView {
	c := a.engine.Cart()
	return cartView{
		Items:     c.Items(),
		Subtotal:  c.Subtotal(),
		TaxAmount: c.TaxAmount(),
		Total:     c.Total(),
	}
}

func (a *API) handleCart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeData(w, http.StatusOK, a.cartView())
	case http.MethodDelete:
		a.engine.Cart().Clear()
		writeData(w, http.StatusOK, a.cartView())
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCartItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, errors.New("product_id required"))
		return
	}

	if _, err := a.engine.AddToCart(r.Context(), req.ProductID); err != nil {
		writeGatewayError(w, err)
		return
	}
	writeData(w, http.StatusOK, a.cartView())
}

func (a *API) handleCartItemActions(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimPrefix(r.URL.Path, "/api/cart/items/")
	if productID == "" || strings.Contains(productID, "/") {
		writeError(w, http.StatusNotFound, errors.New("unknown cart item path"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req struct {
			Quantity *int     `json:"quantity"`
			Discount *float64 `json:"discount"`
			Notes    *string  `json:"notes"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		c := a.engine.Cart()
		if req.Quantity != nil {
			c.UpdateQuantity(productID, *req.Quantity)
		}
		if req.Discount != nil {
			c.UpdateDiscount(productID, decimal.NewFromFloat(*req.Discount))
		}
		if req.Notes != nil {
			c.SetNotes(productID, *req.Notes)
		}
		writeData(w, http.StatusOK, a.cartView())
	case http.MethodDelete:
		a.engine.Cart().RemoveItem(productID)
		writeData(w, http.StatusOK, a.cartView())
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		CustomerID    string  `json:"customer_id"`
		PaymentMethod string  `json:"payment_method"`
		CashReceived  float64 `json:"cash_received"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.engine.CompleteSale(r.Context(), session.SaleOptions{
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		CashReceived:  decimal.NewFromFloat(req.CashReceived),
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeEnvelope(w, http.StatusOK, map[string]any{
		"sale":             result.Sale,
		"change":           result.Change,
		"change_formatted": money.FormatCurrency(result.Change),
	}, result.Warning)
}

func (a *API) handleShiftOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		OpeningBalance float64 `json:"opening_balance"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.OpeningBalance < 0 {
		writeError(w, http.StatusBadRequest, errors.New("opening_balance cannot be negative"))
		return
	}

	opened, err := a.engine.OpenShift(r.Context(), decimal.NewFromFloat(req.OpeningBalance))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeData(w, http.StatusOK, opened)
}

func (a *API) handleClosePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		ClosingBalance float64 `json:"closing_balance"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	expected, variance, err := a.engine.ClosePreview(decimal.NewFromFloat(req.ClosingBalance))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"expected_balance": expected,
		"difference":       variance,
	})
}

func (a *API) handleShiftClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		ClosingBalance float64 `json:"closing_balance"`
		Notes          string  `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ClosingBalance < 0 {
		writeError(w, http.StatusBadRequest, errors.New("closing_balance cannot be negative"))
		return
	}

	summary, err := a.engine.CloseShift(r.Context(), decimal.NewFromFloat(req.ClosingBalance), req.Notes)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

func (a *API) handleShiftCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	// The open shift, or null when none is.
	writeData(w, http.StatusOK, a.engine.CurrentShift())
}

func (a *API) handleStockAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		ProductID      string `json:"product_id"`
		Quantity       int    `json:"quantity"`
		AdjustmentType string `json:"adjustment_type"`
		Notes          string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := a.engine.AdjustStock(r.Context(), inventory.Adjustment{
		ProductID: req.ProductID,
		Direction: req.AdjustmentType,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated)
}

func (a *API) handleMovements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	movements, err := a.engine.ListMovements(r.Context(), r.URL.Query().Get("product_id"), limit)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeData(w, http.StatusOK, movements)
}

func (a *API) handlePIN(w http.ResponseWriter, r *http.Request) {
	operator, ok := session.OperatorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, session.ErrNoOperator)
		return
	}

	switch r.Method {
	case http.MethodPost:
		// Enrollment needs a live token; a PIN-unlocked session cannot
		// extend its own offline window.
		if operator.Expired() {
			writeError(w, http.StatusUnauthorized, auth.ErrTokenExpired)
			return
		}

		var req struct {
			PIN string `json:"pin"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(req.PIN) < 4 {
			writeError(w, http.StatusBadRequest, errors.New("pin must be at least 4 characters"))
			return
		}
		if err := a.pins.Enroll(operator.ID, req.PIN); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"enrolled": true})
	case http.MethodDelete:
		a.pins.Clear(operator.ID)
		writeData(w, http.StatusOK, map[string]any{"enrolled": false})
	default:
		writeMethodNotAllowed(w)
	}
}

// writeSessionError maps engine errors onto HTTP statuses. Validation
// failures are the client's fault, gateway refusals are conflicts, and
// an unreachable backend is a bad gateway.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrEmptyCart),
		errors.Is(err, session.ErrInsufficientCash),
		errors.Is(err, session.ErrNegativeOpening),
		errors.Is(err, inventory.ErrInvalidAdjustment),
		errors.Is(err, inventory.ErrNegativeStock):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, session.ErrNoOperator):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, session.ErrShiftRequired),
		errors.Is(err, shift.ErrNoOpenShift),
		errors.Is(err, shift.ErrShiftAlreadyOpen),
		errors.Is(err, shift.ErrOperationInFlight),
		errors.Is(err, shift.ErrSaleInFlight):
		writeError(w, http.StatusConflict, err)
	default:
		writeGatewayError(w, err)
	}
}

func writeGatewayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, gateway.ErrRejected):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, gateway.ErrUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 && status != http.StatusBadGateway {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": msg,
	})
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, data, "")
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
