// Package memory provides in-process implementations of the storage
// interfaces, for development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/xenking/denim-store/internal/cart"
	"github.com/xenking/denim-store/internal/domain/order"
	"github.com/xenking/denim-store/internal/domain/promo"
)

var (
	_ cart.Storage     = (*Snapshots)(nil)
	_ order.Repository = (*Orders)(nil)
	_ promo.Repository = (*Promos)(nil)
)

// Snapshots keeps cart snapshots in a map.
type Snapshots struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewSnapshots returns an empty snapshot store.
func NewSnapshots() *Snapshots {
	return &Snapshots{data: make(map[string][]byte)}
}

// Load implements cart.Storage.
func (s *Snapshots) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return slices.Clone(v), nil
}

// Save implements cart.Storage.
func (s *Snapshots) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = slices.Clone(data)
	return nil
}

// Orders keeps placed orders in a map.
type Orders struct {
	mu   sync.RWMutex
	byID map[string]order.Order
}

// NewOrders returns an empty order repository.
func NewOrders() *Orders {
	return &Orders{byID: make(map[string]order.Order)}
}

// Create implements order.Repository.
func (o *Orders) Create(_ context.Context, ord *order.Order) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cp := *ord
	cp.Lines = slices.Clone(ord.Lines)
	o.byID[ord.ID] = cp
	return nil
}

// GetByID implements order.Repository.
func (o *Orders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ord, ok := o.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	ord.Lines = slices.Clone(ord.Lines)
	return &ord, nil
}

// Promos keeps promo rules in a map keyed by normalized code.
type Promos struct {
	mu    sync.RWMutex
	rules map[string]promo.Rule
}

// NewPromos returns a repository holding rules.
func NewPromos(rules ...promo.Rule) *Promos {
	p := &Promos{rules: make(map[string]promo.Rule, len(rules))}
	for _, r := range rules {
		r.Code = promo.NormalizeCode(r.Code)
		p.rules[r.Code] = r
	}
	return p
}

// FindByCode implements promo.Repository.
func (p *Promos) FindByCode(_ context.Context, code string) (*promo.Rule, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.rules[strings.ToUpper(code)]
	if !ok {
		return nil, promo.ErrInvalidCode
	}
	return &r, nil
}

// IncrementUses implements promo.Repository.
func (p *Promos) IncrementUses(_ context.Context, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	code = strings.ToUpper(code)
	r, ok := p.rules[code]
	if !ok {
		return promo.ErrInvalidCode
	}
	r.Uses++
	p.rules[code] = r
	return nil
}
