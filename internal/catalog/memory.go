package catalog

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and local development.
// Returned values are copies; callers never share state with the store.
type MemoryStore struct {
	mu            sync.Mutex
	seq           int64
	products      map[int64]*Product
	productImages map[int64]*Image
	works         map[int64]*Work
	workImages    map[int64]*Image
	failInsert    error
	noRowOnInsert bool
	failUpdate    error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:      make(map[int64]*Product),
		productImages: make(map[int64]*Image),
		works:         make(map[int64]*Work),
		workImages:    make(map[int64]*Image),
	}
}

// FailProductInsert makes product inserts return err.
func (m *MemoryStore) FailProductInsert(err error) {
	m.mu.Lock()
	m.failInsert = err
	m.mu.Unlock()
}

// DropInsertedRow makes product inserts succeed without returning a row.
func (m *MemoryStore) DropInsertedRow(v bool) {
	m.mu.Lock()
	m.noRowOnInsert = v
	m.mu.Unlock()
}

// FailProductUpdate makes product updates return err.
func (m *MemoryStore) FailProductUpdate(err error) {
	m.mu.Lock()
	m.failUpdate = err
	m.mu.Unlock()
}

// ProductCount reports how many product rows exist.
func (m *MemoryStore) ProductCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}

func (m *MemoryStore) Products() ProductStore { return memProducts{m} }
func (m *MemoryStore) ProductImages() ImageStore { return memImages{m: m, rows: m.productImages} }
func (m *MemoryStore) Works() WorkStore { return memWorks{m} }
func (m *MemoryStore) WorkImages() ImageStore { return memImages{m: m, rows: m.workImages} }

func (m *MemoryStore) next() int64 {
	m.seq++
	return m.seq
}

func copyProduct(p *Product) *Product {
	cp := *p
	if p.Metadata != nil {
		cp.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			cp.Metadata[k] = v
		}
	}
	cp.Images = nil
	return &cp
}

type memProducts struct{ m *MemoryStore }

func (s memProducts) Insert(_ context.Context, p *Product) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.failInsert != nil {
		return s.m.failInsert
	}
	if s.m.noRowOnInsert {
		return ErrNoRow
	}
	p.ID = s.m.next()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.m.products[p.ID] = copyProduct(p)
	return nil
}

func (s memProducts) Get(_ context.Context, id int64) (*Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProduct(p), nil
}

func (s memProducts) List(_ context.Context) ([]*Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	res := make([]*Product, 0, len(s.m.products))
	for _, p := range s.m.products {
		res = append(res, copyProduct(p))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (s memProducts) Update(_ context.Context, p *Product) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.failUpdate != nil {
		return s.m.failUpdate
	}
	existing, ok := s.m.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	cp := copyProduct(p)
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.m.products[p.ID] = cp
	return nil
}

func (s memProducts) Delete(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.products, id)
	// Cascade like the foreign key does.
	for imgID, img := range s.m.productImages {
		if img.OwnerID != nil && *img.OwnerID == id {
			delete(s.m.productImages, imgID)
		}
	}
	return nil
}

type memImages struct {
	m    *MemoryStore
	rows map[int64]*Image
}

func copyImage(img *Image) Image {
	cp := *img
	if img.OwnerID != nil {
		owner := *img.OwnerID
		cp.OwnerID = &owner
	}
	return cp
}

func (s memImages) Insert(_ context.Context, img *Image) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	img.ID = s.m.next()
	cp := copyImage(img)
	s.rows[img.ID] = &cp
	return nil
}

func (s memImages) Get(_ context.Context, id int64) (*Image, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	img, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyImage(img)
	return &cp, nil
}

func (s memImages) ListByOwner(_ context.Context, ownerID int64) ([]Image, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var res []Image
	for _, img := range s.rows {
		if img.OwnerID != nil && *img.OwnerID == ownerID {
			res = append(res, copyImage(img))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s memImages) ListAttached(_ context.Context) (map[int64][]Image, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	res := make(map[int64][]Image)
	for _, img := range s.rows {
		if img.OwnerID != nil {
			res[*img.OwnerID] = append(res[*img.OwnerID], copyImage(img))
		}
	}
	for owner := range res {
		imgs := res[owner]
		sort.Slice(imgs, func(i, j int) bool { return imgs[i].ID < imgs[j].ID })
	}
	return res, nil
}

func (s memImages) Attach(_ context.Context, ownerID int64, imageIDs []int64) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n := 0
	for _, id := range imageIDs {
		img, ok := s.rows[id]
		if !ok || img.OwnerID != nil {
			continue
		}
		owner := ownerID
		img.OwnerID = &owner
		n++
	}
	return n, nil
}

func (s memImages) DetachAll(_ context.Context, ownerID int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, img := range s.rows {
		if img.OwnerID != nil && *img.OwnerID == ownerID {
			img.OwnerID = nil
		}
	}
	return nil
}

func (s memImages) Delete(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type memWorks struct{ m *MemoryStore }

func (s memWorks) Insert(_ context.Context, w *Work) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	w.ID = s.m.next()
	cp := *w
	cp.Images = nil
	s.m.works[w.ID] = &cp
	return nil
}

func (s memWorks) List(_ context.Context) ([]*Work, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	res := make([]*Work, 0, len(s.m.works))
	for _, w := range s.m.works {
		cp := *w
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}
