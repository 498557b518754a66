package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu         sync.Mutex
	principals map[int64]*Principal
	tokens     map[string]*TokenRecord
	nextUser   int64
	nextToken  int64
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		principals: make(map[int64]*Principal),
		tokens:     make(map[string]*TokenRecord),
		now:        time.Now,
	}
}

func (m *MemoryStore) Principals() PrincipalStore { return memPrincipals{m} }
func (m *MemoryStore) Tokens() Ledger { return memLedger{m} }

// Record returns a copy of the ledger row for token.
func (m *MemoryStore) Record(token string) (TokenRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tokens[token]
	if !ok {
		return TokenRecord{}, false
	}
	return *rec, true
}

type memPrincipals struct{ m *MemoryStore }

func (p memPrincipals) Create(_ context.Context, pr *Principal) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	for _, existing := range p.m.principals {
		if existing.Name == pr.Name {
			return errors.New("auth: principal name already taken")
		}
	}
	p.m.nextUser++
	pr.ID = p.m.nextUser
	cp := *pr
	p.m.principals[pr.ID] = &cp
	return nil
}

func (p memPrincipals) Find(_ context.Context, id int64) (*Principal, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	pr, ok := p.m.principals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *pr
	return &cp, nil
}

func (p memPrincipals) FindByName(_ context.Context, name string) (*Principal, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	for _, pr := range p.m.principals {
		if pr.Name == name {
			cp := *pr
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type memLedger struct{ m *MemoryStore }

func (l memLedger) Insert(_ context.Context, rec *TokenRecord) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	if _, dup := l.m.tokens[rec.Token]; dup {
		return errors.New("auth: duplicate token")
	}
	l.m.nextToken++
	rec.ID = l.m.nextToken
	rec.IssuedAt = l.m.now().UTC()
	rec.Status = TokenActive
	cp := *rec
	l.m.tokens[rec.Token] = &cp
	return nil
}

func (l memLedger) IsActive(_ context.Context, token string) (bool, error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	rec, ok := l.m.tokens[token]
	return ok && rec.Status == TokenActive, nil
}

func (l memLedger) Revoke(_ context.Context, token string) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	if rec, ok := l.m.tokens[token]; ok {
		rec.Status = TokenInactive
	}
	return nil
}
