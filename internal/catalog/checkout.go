package catalog

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"invizible.art/internal/apperr"
	"invizible.art/internal/payment"
)

// CreateCheckoutSession prices the requested items and opens a hosted
// checkout at the provider. Nothing is written locally.
func (s *Service) CreateCheckoutSession(ctx context.Context, items []CheckoutItem) (cs *payment.CheckoutSession, err error) {
	if err := validateCheckout(items); err != nil {
		return nil, err
	}
	ctx, span := s.startSpan(ctx, flowCheckout, attribute.Int("checkout.items", len(items)))
	defer func() { finish(span, err) }()

	lines := make([]payment.LineItem, 0, len(items))
	for _, it := range items {
		p, err := s.store.Products().Get(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, apperr.NotFound("product %d not found", it.ProductID)
			}
			return nil, apperr.Internal(err, "failed to load product")
		}
		if !p.Active {
			return nil, apperr.Validation("Product %q is no longer available", p.Name)
		}
		if p.PriceID == nil || *p.PriceID == "" {
			return nil, apperr.Internal(nil, "product "+p.Name+" has no price configured")
		}
		lines = append(lines, payment.LineItem{PriceID: *p.PriceID, Quantity: it.Quantity})
	}

	cs, err = s.payments.CreateCheckoutSession(ctx, payment.CheckoutParams{
		Items:            lines,
		SuccessURL:       s.checkout.SuccessURL,
		CancelURL:        s.checkout.CancelURL,
		AllowedCountries: s.checkout.AllowedCountries,
	})
	if step(flowCheckout, "provider_session", err) != nil {
		return nil, apperr.Upstream(err, "failed to create checkout session")
	}
	if cs == nil || cs.URL == "" {
		return nil, apperr.Internal(payment.ErrNoSessionURL, "failed to create checkout session")
	}
	s.log.Info("checkout session created", zap.String("session_id", cs.ID), zap.Int("items", len(lines)))
	return cs, nil
}
