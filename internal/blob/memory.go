package blob

import (
	"context"
	"sync"
)

var _ Storage = (*Memory)(nil)

// Memory is an in-process Storage that tracks objects and delete attempts.
type Memory struct {
	mu       sync.Mutex
	baseURL  string
	objects  map[string]bool
	presigns []string
	deletes  []string
	fail     map[string]error
	failSign error
}

func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL: baseURL,
		objects: make(map[string]bool),
		fail:    make(map[string]error),
	}
}

// Put marks key as uploaded.
func (m *Memory) Put(key string) {
	m.mu.Lock()
	m.objects[key] = true
	m.mu.Unlock()
}

// Exists reports whether key is stored.
func (m *Memory) Exists(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key]
}

// FailDelete makes Delete of key return err.
func (m *Memory) FailDelete(key string, err error) {
	m.mu.Lock()
	m.fail[key] = err
	m.mu.Unlock()
}

// FailPresign makes PresignUpload return err.
func (m *Memory) FailPresign(err error) {
	m.mu.Lock()
	m.failSign = err
	m.mu.Unlock()
}

// Deletes returns every key Delete was called with.
func (m *Memory) Deletes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletes...)
}

// Presigns returns every key an upload URL was issued for.
func (m *Memory) Presigns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.presigns...)
}

func (m *Memory) PresignUpload(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSign != nil {
		return "", m.failSign
	}
	m.presigns = append(m.presigns, key)
	return joinURL(m.baseURL, key) + "?upload=1", nil
}

func (m *Memory) URL(key string) string {
	return joinURL(m.baseURL, key)
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	if err := m.fail[key]; err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}
