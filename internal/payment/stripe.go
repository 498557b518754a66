package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

var _ Provider = (*Stripe)(nil)

// Stripe is a Provider backed by one long-lived Stripe API client.
type Stripe struct {
	client *stripe.Client
}

// NewStripe builds the client once; it is safe for concurrent use.
func NewStripe(secretKey string) (*Stripe, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, errors.New("payment: stripe secret key is required")
	}
	return &Stripe{client: stripe.NewClient(secretKey)}, nil
}

// NewStripeWithClient wraps an existing client.
func NewStripeWithClient(c *stripe.Client) *Stripe {
	return &Stripe{client: c}
}

func (s *Stripe) CreateProduct(ctx context.Context, p ProductParams) (string, error) {
	prod, err := s.client.V1Products.Create(ctx, productCreateParams(p))
	if err != nil {
		return "", fmt.Errorf("stripe: create product: %w", err)
	}
	return prod.ID, nil
}

func (s *Stripe) UpdateProduct(ctx context.Context, id string, p ProductParams) error {
	if _, err := s.client.V1Products.Update(ctx, id, productUpdateParams(p)); err != nil {
		return fmt.Errorf("stripe: update product %s: %w", id, err)
	}
	return nil
}

func (s *Stripe) SetProductImages(ctx context.Context, id string, urls []string) error {
	if _, err := s.client.V1Products.Update(ctx, id, productImagesParams(urls)); err != nil {
		return fmt.Errorf("stripe: set images on %s: %w", id, err)
	}
	return nil
}

func (s *Stripe) DeactivateProduct(ctx context.Context, id string) error {
	params := &stripe.ProductUpdateParams{Active: stripe.Bool(false)}
	if _, err := s.client.V1Products.Update(ctx, id, params); err != nil {
		return fmt.Errorf("stripe: deactivate product %s: %w", id, err)
	}
	return nil
}

func (s *Stripe) CreatePrice(ctx context.Context, p PriceParams) (string, error) {
	price, err := s.client.V1Prices.Create(ctx, priceCreateParams(p))
	if err != nil {
		return "", fmt.Errorf("stripe: create price: %w", err)
	}
	return price.ID, nil
}

func (s *Stripe) DeactivatePrice(ctx context.Context, id string) error {
	params := &stripe.PriceUpdateParams{Active: stripe.Bool(false)}
	if _, err := s.client.V1Prices.Update(ctx, id, params); err != nil {
		return fmt.Errorf("stripe: deactivate price %s: %w", id, err)
	}
	return nil
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	sess, err := s.client.V1CheckoutSessions.Create(ctx, checkoutParams(p))
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if sess.URL == "" {
		return nil, ErrNoSessionURL
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func productCreateParams(p ProductParams) *stripe.ProductCreateParams {
	params := &stripe.ProductCreateParams{
		Name:   stripe.String(p.Name),
		Active: stripe.Bool(p.Active),
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func productUpdateParams(p ProductParams) *stripe.ProductUpdateParams {
	params := &stripe.ProductUpdateParams{
		Name:        stripe.String(p.Name),
		Description: stripe.String(p.Description),
		Active:      stripe.Bool(p.Active),
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func productImagesParams(urls []string) *stripe.ProductUpdateParams {
	params := &stripe.ProductUpdateParams{}
	if len(urls) == 0 {
		// An empty value clears the list; an empty slice would send nothing.
		params.AddExtra("images", "")
		return params
	}
	params.Images = stripe.StringSlice(urls)
	return params
}

func priceCreateParams(p PriceParams) *stripe.PriceCreateParams {
	return &stripe.PriceCreateParams{
		Product:    stripe.String(p.ProductID),
		UnitAmount: stripe.Int64(p.UnitAmount),
		Currency:   stripe.String(strings.ToLower(p.Currency)),
		Active:     stripe.Bool(p.Active),
	}
}

func checkoutParams(p CheckoutParams) *stripe.CheckoutSessionCreateParams {
	items := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, &stripe.CheckoutSessionCreateLineItemParams{
			Price:    stripe.String(it.PriceID),
			Quantity: stripe.Int64(it.Quantity),
		})
	}
	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  items,
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	if len(p.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionCreateShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(p.AllowedCountries),
		}
	}
	return params
}
