// Package cart holds the in-progress sale. The cart is advisory: it
// performs no stock checks (the backend validates stock at commit) and
// never touches the network. Totals are derived from line state on
// every read, so a mutation can never drift from the next read.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/domain"
	"github.com/omarPVP123131/pos-terminal/internal/money"
)

// LineItem is one product entry in the cart. UnitPrice is captured when
// the product is first added and stays fixed for the life of the line,
// so a later catalog price change cannot reprice an open cart.
type LineItem struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Discount  decimal.Decimal `json:"discount"`
	Notes     string          `json:"notes,omitempty"`
}

// Subtotal is the line's contribution to the cart subtotal: unit price
// times quantity minus the line discount, floored at zero.
func (li LineItem) Subtotal() decimal.Decimal {
	gross := li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
	return money.ApplyDiscount(gross, li.Discount, false)
}

// Cart is an ordered collection of line items plus a single global tax
// rate. Order matters for display only. One cart exists per active sale
// session and is cleared exactly when a sale commits or is cancelled.
type Cart struct {
	mu      sync.Mutex
	taxRate float64
	items   []LineItem
}

func New(taxRatePercent float64) *Cart {
	if taxRatePercent < 0 {
		taxRatePercent = money.DefaultTaxRate
	}
	return &Cart{taxRate: taxRatePercent}
}

// AddItem appends a new line with quantity 1, or increments the
// quantity of the existing line for the same product.
func (c *Cart) AddItem(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == p.ID {
			c.items[i].Quantity++
			return
		}
	}
	c.items = append(c.items, LineItem{
		ProductID: p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Unit:      p.Unit,
		UnitPrice: p.Price,
		Quantity:  1,
		Discount:  decimal.Zero,
	})
}

// RemoveItem deletes the line for the product; no-op if absent.
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// UpdateQuantity sets the line's quantity verbatim. Callers clamp to
// >= 1 before calling; a zero or negative quantity is a caller error
// and shows up in the totals rather than being silently corrected.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Quantity = quantity
			return
		}
	}
}

// UpdateDiscount sets the line's absolute discount. No upper bound is
// enforced here; the line subtotal floors at zero instead.
func (c *Cart) UpdateDiscount(productID string, discount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Discount = discount
			return
		}
	}
}

// SetNotes attaches free-form notes to a line; no-op if absent.
func (c *Cart) SetNotes(productID string, notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Notes = notes
			return
		}
	}
}

// Clear empties the cart. Used on successful commit and on explicit
// cancellation, never partially.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns the lines in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cart) TaxRate() float64 {
	return c.taxRate
}

func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotalLocked()
}

func (c *Cart) subtotalLocked() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range c.items {
		sum = sum.Add(li.Subtotal())
	}
	return sum
}

func (c *Cart) TaxAmount() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return money.Tax(c.subtotalLocked(), c.taxRate)
}

func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	subtotal := c.subtotalLocked()
	return subtotal.Add(money.Tax(subtotal, c.taxRate))
}

// Snapshot freezes the cart into sale lines plus totals for a commit
// payload. Later edits to the cart or the catalog cannot alter the
// snapshot.
func (c *Cart) Snapshot() (lines []domain.SaleLine, subtotal, tax, discount, total decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines = make([]domain.SaleLine, 0, len(c.items))
	discount = decimal.Zero
	for _, li := range c.items {
		lines = append(lines, domain.SaleLine{
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			Discount:  li.Discount,
			TaxRate:   c.taxRate,
		})
		discount = discount.Add(li.Discount)
	}
	subtotal = c.subtotalLocked()
	tax = money.Tax(subtotal, c.taxRate)
	total = subtotal.Add(tax)
	return lines, subtotal, tax, discount, total
}
