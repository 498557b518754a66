package payment

import (
	"context"
	"fmt"
	"sync"
)

var _ Provider = (*Memory)(nil)

// Method names recorded by Memory.
const (
	OpCreateProduct     = "CreateProduct"
	OpUpdateProduct     = "UpdateProduct"
	OpSetProductImages  = "SetProductImages"
	OpDeactivateProduct = "DeactivateProduct"
	OpCreatePrice       = "CreatePrice"
	OpDeactivatePrice   = "DeactivatePrice"
	OpCreateCheckout    = "CreateCheckoutSession"
)

// Call is one recorded Provider invocation.
type Call struct {
	Op string
	ID string
}

// RemoteProduct is the provider-side state kept by Memory.
type RemoteProduct struct {
	ProductParams
	ID     string
	Images []string
}

// RemotePrice is the provider-side state kept by Memory.
type RemotePrice struct {
	PriceParams
	ID string
}

// Memory is an in-process Provider that records every call. Failures can be
// injected per operation. Used by tests and local development.
type Memory struct {
	mu       sync.Mutex
	seq      int
	products map[string]*RemoteProduct
	prices   map[string]*RemotePrice
	calls    []Call
	fail     map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[string]*RemoteProduct),
		prices:   make(map[string]*RemotePrice),
		fail:     make(map[string]error),
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls returns a copy of the recorded calls in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Count reports how many times op was called.
func (m *Memory) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Product returns a copy of the remote product.
func (m *Memory) Product(id string) (RemoteProduct, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return RemoteProduct{}, false
	}
	cp := *p
	cp.Images = append([]string(nil), p.Images...)
	return cp, true
}

// Price returns a copy of the remote price.
func (m *Memory) Price(id string) (RemotePrice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[id]
	if !ok {
		return RemotePrice{}, false
	}
	return *p, true
}

func (m *Memory) record(op, id string) error {
	m.calls = append(m.calls, Call{Op: op, ID: id})
	return m.fail[op]
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_%d", prefix, m.seq)
}

func (m *Memory) CreateProduct(_ context.Context, p ProductParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpCreateProduct, ""); err != nil {
		return "", err
	}
	id := m.nextID("prod")
	m.products[id] = &RemoteProduct{ProductParams: p, ID: id}
	return id, nil
}

func (m *Memory) UpdateProduct(_ context.Context, id string, p ProductParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpUpdateProduct, id); err != nil {
		return err
	}
	prod, ok := m.products[id]
	if !ok {
		return fmt.Errorf("payment: no such product %s", id)
	}
	prod.ProductParams = p
	return nil
}

func (m *Memory) SetProductImages(_ context.Context, id string, urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpSetProductImages, id); err != nil {
		return err
	}
	prod, ok := m.products[id]
	if !ok {
		return fmt.Errorf("payment: no such product %s", id)
	}
	prod.Images = append([]string(nil), urls...)
	return nil
}

func (m *Memory) DeactivateProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpDeactivateProduct, id); err != nil {
		return err
	}
	prod, ok := m.products[id]
	if !ok {
		return fmt.Errorf("payment: no such product %s", id)
	}
	prod.Active = false
	return nil
}

func (m *Memory) CreatePrice(_ context.Context, p PriceParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpCreatePrice, p.ProductID); err != nil {
		return "", err
	}
	if _, ok := m.products[p.ProductID]; !ok {
		return "", fmt.Errorf("payment: no such product %s", p.ProductID)
	}
	id := m.nextID("price")
	m.prices[id] = &RemotePrice{PriceParams: p, ID: id}
	return id, nil
}

func (m *Memory) DeactivatePrice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpDeactivatePrice, id); err != nil {
		return err
	}
	price, ok := m.prices[id]
	if !ok {
		return fmt.Errorf("payment: no such price %s", id)
	}
	price.Active = false
	return nil
}

func (m *Memory) CreateCheckoutSession(_ context.Context, p CheckoutParams) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpCreateCheckout, ""); err != nil {
		return nil, err
	}
	for _, it := range p.Items {
		if _, ok := m.prices[it.PriceID]; !ok {
			return nil, fmt.Errorf("payment: no such price %s", it.PriceID)
		}
	}
	id := m.nextID("cs")
	return &CheckoutSession{ID: id, URL: "https://checkout.invalid/" + id}, nil
}
