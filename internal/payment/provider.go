// Package payment wraps the remote payment provider that owns product,
// price and checkout records.
package payment

import (
	"context"
	"errors"
)

// ErrNoSessionURL is returned when the provider creates a checkout session
// without a redirect URL.
var ErrNoSessionURL = errors.New("payment: checkout session has no url")

// ProductParams describes the display side of a remote product.
type ProductParams struct {
	Name        string
	Description string
	Active      bool
	Metadata    map[string]string
}

// PriceParams describes an immutable remote price.
type PriceParams struct {
	ProductID  string
	UnitAmount int64
	Currency   string
	Active     bool
}

// LineItem is one (price, quantity) pair of a checkout.
type LineItem struct {
	PriceID  string
	Quantity int64
}

// CheckoutParams configures a hosted checkout session.
type CheckoutParams struct {
	Items            []LineItem
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
}

// CheckoutSession is the provider-side session the buyer is redirected to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Provider is the subset of the payment provider API the catalog needs.
// Every call is a synchronous RPC and is never retried locally.
type Provider interface {
	CreateProduct(ctx context.Context, p ProductParams) (string, error)
	UpdateProduct(ctx context.Context, id string, p ProductParams) error
	// SetProductImages replaces the product's display images with urls.
	SetProductImages(ctx context.Context, id string, urls []string) error
	DeactivateProduct(ctx context.Context, id string) error

	CreatePrice(ctx context.Context, p PriceParams) (string, error)
	DeactivatePrice(ctx context.Context, id string) error

	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
}
