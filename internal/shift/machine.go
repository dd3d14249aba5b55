// Package shift tracks the terminal's view of the operator's cash
// session. The machine holds at most one open shift, serializes shift
// transitions against in-flight sales, and only mutates local state
// after the backend has confirmed the transition.
package shift

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/domain"
)

var (
	ErrNoOpenShift       = errors.New("no open shift")
	ErrShiftAlreadyOpen  = errors.New("a shift is already open")
	ErrOperationInFlight = errors.New("another shift operation is in progress")
	ErrSaleInFlight      = errors.New("a sale is being committed")
)

type Machine struct {
	mu            sync.Mutex
	current       *domain.Shift
	cashRecorded  decimal.Decimal
	saleInFlight  bool
	openInFlight  bool
	closeInFlight bool
}

func NewMachine() *Machine {
	return &Machine{}
}

// Current returns a copy of the open shift, or nil.
func (m *Machine) Current() *domain.Shift {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	cp := *m.current
	return &cp
}

// Restore installs a previously persisted open shift, typically on
// boot. It is rejected while any transition is pending.
func (m *Machine) Restore(s *domain.Shift, cashRecorded decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openInFlight || m.closeInFlight || m.saleInFlight {
		return ErrOperationInFlight
	}
	if m.current != nil {
		return ErrShiftAlreadyOpen
	}
	if s == nil || s.Status != domain.ShiftStatusOpen {
		return ErrNoOpenShift
	}
	cp := *s
	m.current = &cp
	m.cashRecorded = cashRecorded
	return nil
}

// BeginOpen reserves the machine for a shift-open call. The caller must
// follow with CompleteOpen or FailOpen.
func (m *Machine) BeginOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return ErrShiftAlreadyOpen
	}
	if m.openInFlight || m.closeInFlight {
		return ErrOperationInFlight
	}
	m.openInFlight = true
	return nil
}

func (m *Machine) CompleteOpen(s *domain.Shift) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openInFlight = false
	if s == nil {
		return
	}
	cp := *s
	m.current = &cp
	m.cashRecorded = decimal.Zero
}

func (m *Machine) FailOpen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openInFlight = false
}

// BeginSale marks a sale commit in progress so a concurrent close
// cannot race it. Sales are allowed without an open shift; the caller
// decides whether that is a warning or an error.
func (m *Machine) BeginSale() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeInFlight {
		return ErrOperationInFlight
	}
	if m.saleInFlight {
		return ErrSaleInFlight
	}
	m.saleInFlight = true
	return nil
}

// EndSale releases the sale reservation. When the sale committed and
// was paid in cash against the open shift, its total is added to the
// running cash figure used for the closing preview.
func (m *Machine) EndSale(cashTotal decimal.Decimal, committed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saleInFlight = false
	if committed && m.current != nil {
		m.cashRecorded = m.cashRecorded.Add(cashTotal)
	}
}

// BeginClose reserves the machine for a shift-close call. It is refused
// while a sale commit is outstanding.
func (m *Machine) BeginClose() (*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoOpenShift
	}
	if m.saleInFlight {
		return nil, ErrSaleInFlight
	}
	if m.openInFlight || m.closeInFlight {
		return nil, ErrOperationInFlight
	}
	m.closeInFlight = true
	cp := *m.current
	return &cp, nil
}

func (m *Machine) CompleteClose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeInFlight = false
	m.current = nil
	m.cashRecorded = decimal.Zero
}

func (m *Machine) FailClose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeInFlight = false
}

// ExpectedBalance is the local preview of the closing count: opening
// balance plus cash recorded so far. The backend recomputes this from
// its own ledger on close and its value wins.
func (m *Machine) ExpectedBalance() (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return decimal.Zero, ErrNoOpenShift
	}
	return m.current.OpeningBalance.Add(m.cashRecorded), nil
}

// VariancePreview returns declared minus expected for a hypothetical
// closing count.
func (m *Machine) VariancePreview(declared decimal.Decimal) (decimal.Decimal, error) {
	expected, err := m.ExpectedBalance()
	if err != nil {
		return decimal.Zero, err
	}
	return declared.Sub(expected), nil
}

// CashRecorded reports the cash accumulated against the open shift so
// it can be persisted alongside the shift.
func (m *Machine) CashRecorded() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cashRecorded
}
