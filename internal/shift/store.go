package shift

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/domain"
)

// State is the persisted snapshot of an open shift, written after every
// confirmed transition so the terminal can recover it on restart.
type State struct {
	Shift        domain.Shift    `json:"shift"`
	CashRecorded decimal.Decimal `json:"cash_recorded"`
}

// Store persists the open-shift snapshot across terminal restarts.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st State) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the snapshot in process memory. It survives nothing
// but satisfies the interface for tests and the no-persistence mode.
type MemoryStore struct {
	mu    sync.Mutex
	state *State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &st
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	return nil
}
