// Package gateway abstracts the authoritative backend the terminal
// talks to. Implementations commit sales, open and close shifts, and
// adjust stock; the terminal treats their answers as the source of
// truth and keeps only previews locally.
package gateway

import (
	"context"
	"errors"

	"github.com/omarPVP123131/pos-terminal/internal/domain"
)

var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRejected means the backend understood the request and refused
	// it. The operation did not happen and must not be retried blindly.
	ErrRejected = errors.New("rejected by backend")
	// ErrUnavailable means the backend could not be reached or did not
	// answer. Whether the operation happened is unknown.
	ErrUnavailable = errors.New("backend unavailable")
)

// Gateway is the authoritative store behind the terminal.
type Gateway interface {
	ListProducts(ctx context.Context, search string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	LowStockProducts(ctx context.Context) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)

	CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error)

	ListRegisters(ctx context.Context) ([]domain.Register, error)
	OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (*domain.Shift, error)
	CloseShift(ctx context.Context, shiftID string, req domain.ShiftCloseRequest) (*domain.ShiftSummary, error)
	CurrentShift(ctx context.Context, operatorID string) (*domain.Shift, error)

	AdjustStock(ctx context.Context, req domain.StockAdjustmentRequest) (*domain.Product, error)
	ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)

	ListCustomers(ctx context.Context, search string) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
}
