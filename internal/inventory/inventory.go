// Package inventory defines the stock-adjustment contract the terminal
// and the backend both honor: every stock-affecting action yields
// exactly one movement plus one stock mutation, a movement is immutable
// once recorded, and no committed operation may drive stock negative.
package inventory

import (
	"errors"
	"fmt"

	"github.com/omarPVP123131/pos-terminal/internal/domain"
)

var (
	ErrNegativeStock     = errors.New("adjustment would drive stock below zero")
	ErrInvalidAdjustment = errors.New("invalid stock adjustment")
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Adjustment is a manual stock correction before submission.
type Adjustment struct {
	ProductID  string
	Direction  string
	Quantity   int
	Notes      string
	OperatorID string
}

func (a Adjustment) Validate() error {
	if a.ProductID == "" {
		return fmt.Errorf("%w: product required", ErrInvalidAdjustment)
	}
	if a.Direction != DirectionIn && a.Direction != DirectionOut {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidAdjustment, a.Direction)
	}
	if a.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidAdjustment)
	}
	if a.OperatorID == "" {
		return fmt.Errorf("%w: operator required", ErrInvalidAdjustment)
	}
	return nil
}

// Delta is the signed stock change the adjustment applies.
func (a Adjustment) Delta() int {
	if a.Direction == DirectionOut {
		return -a.Quantity
	}
	return a.Quantity
}

// MovementKind maps the adjustment direction onto the recorded
// movement type.
func (a Adjustment) MovementKind() string {
	if a.Direction == DirectionOut {
		return domain.MovementAdjustmentOut
	}
	return domain.MovementAdjustmentIn
}

// Preview computes the local stock estimate for an adjustment and
// rejects one that would end below zero before anything is submitted.
// The estimate is display-only; the authoritative value is whatever the
// backend returns after applying the movement.
func Preview(currentStock int, a Adjustment) (int, error) {
	if err := a.Validate(); err != nil {
		return currentStock, err
	}
	next := currentStock + a.Delta()
	if next < 0 {
		return currentStock, fmt.Errorf("%w: %d %s %d", ErrNegativeStock,
			currentStock, a.Direction, a.Quantity)
	}
	return next, nil
}

// Reconcile replaces a local estimate with the server-confirmed value.
// The two are never merged; the return reports whether they diverged so
// the caller can log it.
func Reconcile(preview, authoritative int) (int, bool) {
	return authoritative, preview != authoritative
}

// Status is the derived stock level band for a product. It is computed
// from per-product thresholds, never stored.
type Status string

const (
	StatusOutOfStock Status = "out-of-stock"
	StatusLow        Status = "low"
	StatusMedium     Status = "medium"
	StatusNormal     Status = "normal"
)

// StatusFor derives the band: out-of-stock at zero, low at or below the
// product's minimum, medium at or below 1.5x the minimum.
func StatusFor(stock, minStock int) Status {
	switch {
	case stock <= 0:
		return StatusOutOfStock
	case stock <= minStock:
		return StatusLow
	case stock*2 <= minStock*3:
		return StatusMedium
	default:
		return StatusNormal
	}
}
