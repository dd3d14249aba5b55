package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/omarPVP123131/pos-terminal/internal/gateway/memory"
	"github.com/omarPVP123131/pos-terminal/internal/session"
)

func testToken(t *testing.T) string {
	t.Helper()
	return testTokenExpiring(t, time.Now().Add(time.Hour))
}

func testTokenExpiring(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":      "op-1",
		"username": "cajero1",
		"role":     "cashier",
		"exp":      expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestAPI(t *testing.T) (*API, *memory.Store) {
	t.Helper()
	store := memory.NewSeeded()
	engine := session.NewEngine(store, nil, session.Options{RegisterID: "reg-1"})
	return New(engine, "http://localhost:1420", nil), store
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func doRequest(t *testing.T, api *API, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestRequiresBearerToken(t *testing.T) {
	api, _ := newTestAPI(t)

	rec, env := doRequest(t, api, http.MethodGet, "/api/products", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if env.Success {
		t.Fatal("envelope must report failure")
	}

	rec, _ = doRequest(t, api, http.MethodGet, "/api/products", nil, "garbage-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", rec.Code)
	}
}

func TestHealthIsOpen(t *testing.T) {
	api, _ := newTestAPI(t)
	rec, _ := doRequest(t, api, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCartFlowThroughAPI(t *testing.T) {
	api, store := newTestAPI(t)
	token := testToken(t)

	products, err := store.ListProducts(context.Background(), "")
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	productID := products[0].ID

	rec, env := doRequest(t, api, http.MethodPost, "/api/cart/items",
		map[string]any{"product_id": productID}, token)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("add item: status %d, body %s", rec.Code, rec.Body.String())
	}

	var view struct {
		Items []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != 1 {
		t.Fatalf("cart = %+v", view)
	}

	rec, env = doRequest(t, api, http.MethodPatch, "/api/cart/items/"+productID,
		map[string]any{"quantity": 3}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch item: status %d", rec.Code)
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if view.Items[0].Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", view.Items[0].Quantity)
	}

	rec, env = doRequest(t, api, http.MethodDelete, "/api/cart", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear cart: status %d", rec.Code)
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("cart not cleared: %+v", view)
	}
}

func TestCheckoutEmptyCartIsBadRequest(t *testing.T) {
	api, _ := newTestAPI(t)
	rec, _ := doRequest(t, api, http.MethodPost, "/api/checkout",
		map[string]any{"payment_method": "card"}, testToken(t))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCheckoutCarriesShiftlessWarning(t *testing.T) {
	api, store := newTestAPI(t)
	token := testToken(t)

	products, err := store.ListProducts(context.Background(), "")
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	doRequest(t, api, http.MethodPost, "/api/cart/items",
		map[string]any{"product_id": products[0].ID}, token)

	rec, env := doRequest(t, api, http.MethodPost, "/api/checkout",
		map[string]any{"payment_method": "card"}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout: status %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Message == "" {
		t.Fatal("shiftless checkout should carry a warning message")
	}
}

func TestShiftEndpointsLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)
	token := testToken(t)

	rec, _ := doRequest(t, api, http.MethodGet, "/api/shifts/current", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("current: status %d", rec.Code)
	}

	rec, env := doRequest(t, api, http.MethodPost, "/api/shifts/open",
		map[string]any{"opening_balance": 1000.0}, token)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("open: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, _ = doRequest(t, api, http.MethodPost, "/api/shifts/open",
		map[string]any{"opening_balance": 500.0}, token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("double open: status %d, want 409", rec.Code)
	}

	rec, env = doRequest(t, api, http.MethodPost, "/api/shifts/close/preview",
		map[string]any{"closing_balance": 980.0}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: status %d", rec.Code)
	}
	var preview struct {
		Expected   string `json:"expected_balance"`
		Difference string `json:"difference"`
	}
	if err := json.Unmarshal(env.Data, &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.Difference != "-20" {
		t.Fatalf("difference = %s, want -20", preview.Difference)
	}

	rec, _ = doRequest(t, api, http.MethodPost, "/api/shifts/close",
		map[string]any{"closing_balance": 980.0, "notes": "cierre"}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("close: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec, _ = doRequest(t, api, http.MethodPost, "/api/shifts/close",
		map[string]any{"closing_balance": 0.0}, token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("close without shift: status %d, want 409", rec.Code)
	}
}

func TestStockAdjustValidation(t *testing.T) {
	api, store := newTestAPI(t)
	token := testToken(t)

	products, err := store.ListProducts(context.Background(), "")
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	p := products[0]

	rec, _ := doRequest(t, api, http.MethodPost, "/api/inventory/stock/adjust",
		map[string]any{"product_id": p.ID, "quantity": p.Stock + 1, "adjustment_type": "out"}, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative stock adjust: status %d, want 400", rec.Code)
	}

	rec, env := doRequest(t, api, http.MethodPost, "/api/inventory/stock/adjust",
		map[string]any{"product_id": p.ID, "quantity": 5, "adjustment_type": "in", "notes": "conteo"}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust: status %d, body %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Stock int `json:"stock"`
	}
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if updated.Stock != p.Stock+5 {
		t.Fatalf("stock = %d, want %d", updated.Stock, p.Stock+5)
	}
}

func TestOfflinePINUnlock(t *testing.T) {
	api, _ := newTestAPI(t)
	live := testToken(t)
	expired := testTokenExpiring(t, time.Now().Add(-time.Minute))

	// An expired token alone stays locked out.
	rec, _ := doRequest(t, api, http.MethodGet, "/api/products", nil, expired)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: status %d, want 401", rec.Code)
	}

	// Enrolling needs a live token.
	rec, _ = doRequest(t, api, http.MethodPost, "/api/auth/pin",
		map[string]any{"pin": "123"}, live)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short pin: status %d, want 400", rec.Code)
	}
	rec, env := doRequest(t, api, http.MethodPost, "/api/auth/pin",
		map[string]any{"pin": "4821"}, live)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("enroll: status %d, body %s", rec.Code, rec.Body.String())
	}

	pinRequest := func(pin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		req.Header.Set("X-Offline-PIN", pin)
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)
		return rec
	}

	if rec := pinRequest("9999"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong pin: status %d, want 401", rec.Code)
	}
	if rec := pinRequest("4821"); rec.Code != http.StatusOK {
		t.Fatalf("pin unlock: status %d, body %s", rec.Code, rec.Body.String())
	}

	// A PIN-unlocked session cannot enroll a new PIN.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/pin",
		bytes.NewReader([]byte(`{"pin":"0000"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+expired)
	req.Header.Set("X-Offline-PIN", "4821")
	enrollRec := httptest.NewRecorder()
	api.Handler().ServeHTTP(enrollRec, req)
	if enrollRec.Code != http.StatusUnauthorized {
		t.Fatalf("re-enroll offline: status %d, want 401", enrollRec.Code)
	}

	// Clearing the PIN revokes the offline path.
	rec, _ = doRequest(t, api, http.MethodDelete, "/api/auth/pin", nil, live)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear pin: status %d", rec.Code)
	}
	if rec := pinRequest("4821"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("cleared pin: status %d, want 401", rec.Code)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	api, _ := newTestAPI(t)
	rec, _ := doRequest(t, api, http.MethodPost, "/api/shifts/open",
		map[string]any{"opening_balance": 100.0, "bogus": true}, testToken(t))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
