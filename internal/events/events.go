// Package events publishes catalog change notifications.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/multierr"
)

// Subjects for product lifecycle notifications.
const (
	ProductCreated = "storefront.catalog.product.created"
	ProductUpdated = "storefront.catalog.product.updated"
	ProductDeleted = "storefront.catalog.product.deleted"
)

// ProductEvent is the payload of every product subject.
type ProductEvent struct {
	ID                int64     `json:"id"`
	ProviderProductID string    `json:"provider_product_id"`
	PriceID           string    `json:"price_id,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// Publisher sends v encoded as JSON to subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// NATS publishes over a core NATS connection.
type NATS struct {
	conn *nats.Conn
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url string, opts ...nats.Option) (*NATS, error) {
	opts = append([]nats.Option{nats.Name("storefront-api")}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATS{conn: nc}, nil
}

// Publish encodes v as JSON and publishes it to the given subject.
func (n *NATS) Publish(ctx context.Context, subject string, v any) error {
	if n == nil {
		return errors.New("nil publisher")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return err
	}
	return n.conn.FlushWithContext(ctx)
}

// Close drains the underlying connection.
func (n *NATS) Close() {
	if n == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// Fanout publishes every event to each of its publishers. All publishers are
// attempted; their errors are combined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, subject string, v any) error {
	var err error
	for _, p := range f {
		if p == nil {
			continue
		}
		err = multierr.Append(err, p.Publish(ctx, subject, v))
	}
	return err
}

// Message is one event captured by Recorder.
type Message struct {
	Subject string
	Data    []byte
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

// FailWith makes later publishes return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *Recorder) Publish(_ context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, Message{Subject: subject, Data: data})
	return nil
}

// Messages returns the captured events in order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Subjects returns the subjects of the captured events in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Subject)
	}
	return out
}
