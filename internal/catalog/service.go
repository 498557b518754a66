// Package catalog keeps products, works and their images consistent across
// the relational store, the payment provider and blob storage.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"invizible.art/internal/apperr"
	"invizible.art/internal/blob"
	"invizible.art/internal/events"
	"invizible.art/internal/obs"
	"invizible.art/internal/payment"
)

const defaultCurrency = "cad"

// Flow names used in metrics and spans.
const (
	flowCreateProduct = "create_product"
	flowUpdateProduct = "update_product"
	flowDeleteProduct = "delete_product"
	flowCreateImage   = "create_image"
	flowDeleteImage   = "delete_image"
	flowCheckout      = "checkout"
	flowCreateWork    = "create_work"
)

// CheckoutConfig holds the hosted checkout settings.
type CheckoutConfig struct {
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
}

// Service orchestrates catalog changes. The provider and storage clients are
// injected once and shared by every call.
type Service struct {
	store    Store
	payments payment.Provider
	blobs    blob.Storage
	events   events.Publisher
	currency string
	checkout CheckoutConfig
	log      *zap.Logger
	tracer   trace.Tracer
}

// Option configures Service behavior.
type Option func(*Service)

// WithCurrency sets the currency applied to every price.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if currency = strings.ToLower(strings.TrimSpace(currency)); currency != "" {
			s.currency = currency
		}
	}
}

// WithCheckout configures hosted checkout sessions.
func WithCheckout(cfg CheckoutConfig) Option {
	return func(s *Service) { s.checkout = cfg }
}

// WithPublisher sets where change notifications go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService wires the orchestrator.
func NewService(store Store, payments payment.Provider, blobs blob.Storage, opts ...Option) (*Service, error) {
	if store == nil || payments == nil || blobs == nil {
		return nil, errors.New("catalog: store, payment provider and blob storage are required")
	}
	s := &Service{
		store:    store,
		payments: payments,
		blobs:    blobs,
		events:   events.Nop{},
		currency: defaultCurrency,
		log:      obs.Logger().Named("catalog"),
		tracer:   obs.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) startSpan(ctx context.Context, flow string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "catalog."+flow, trace.WithAttributes(attrs...))
}

// finish closes span and records err on it.
func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	}
	span.End()
}

// step records the outcome of one ordered saga step and returns err.
func step(flow, name string, err error) error {
	obs.SagaStep(flow, name, err)
	return err
}

// compensate runs a rollback action. Its failure is logged and counted but
// never replaces the error the caller sees.
func (s *Service) compensate(ctx context.Context, flow, action, remoteID string, fn func(context.Context, string) error) {
	err := fn(context.WithoutCancel(ctx), remoteID)
	obs.Compensation(flow, action, err)
	if err != nil {
		s.log.Error("compensation failed",
			zap.String("flow", flow), zap.String("action", action),
			zap.String("remote_id", remoteID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, subject string, p *Product) {
	ev := events.ProductEvent{
		ID:                p.ID,
		ProviderProductID: p.ProviderProductID,
		OccurredAt:        time.Now().UTC(),
	}
	if p.PriceID != nil {
		ev.PriceID = *p.PriceID
	}
	if err := s.events.Publish(ctx, subject, ev); err != nil {
		s.log.Warn("publish event failed", zap.String("subject", subject), zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

func (s *Service) withURLs(images []Image) []Image {
	out := make([]Image, len(images))
	for i, img := range images {
		img.URL = s.blobs.URL(img.BlobKey)
		out[i] = img
	}
	return out
}

// syncProductImages pushes the full current image URL list of a product to
// the provider, replacing whatever it had.
func (s *Service) syncProductImages(ctx context.Context, productID int64, providerID string) error {
	images, err := s.store.ProductImages().ListByOwner(ctx, productID)
	if err != nil {
		return apperr.Internal(err, "failed to load product images")
	}
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, s.blobs.URL(img.BlobKey))
	}
	if err := s.payments.SetProductImages(ctx, providerID, urls); err != nil {
		return apperr.Upstream(err, "failed to sync product images")
	}
	return nil
}

func (s *Service) attachImages(ctx context.Context, images ImageStore, ownerID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := images.Attach(ctx, ownerID, ids)
	if err != nil {
		return apperr.Internal(err, "failed to attach images")
	}
	if n != len(ids) {
		s.log.Warn("some images were missing or already attached",
			zap.Int64("owner_id", ownerID), zap.Int("requested", len(ids)), zap.Int("attached", n))
	}
	return nil
}

// GetProduct returns the product with image URLs, or nil when it does not exist.
func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	if id <= 0 {
		return nil, apperr.Validation("id must be positive")
	}
	p, err := s.store.Products().Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err, "failed to load product")
	}
	images, err := s.store.ProductImages().ListByOwner(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load product images")
	}
	p.Images = s.withURLs(images)
	return p, nil
}

// ListProducts returns every product, newest first, with image URLs.
func (s *Service) ListProducts(ctx context.Context) ([]*Product, error) {
	products, err := s.store.Products().List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list products")
	}
	byOwner, err := s.store.ProductImages().ListAttached(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list product images")
	}
	for _, p := range products {
		p.Images = s.withURLs(byOwner[p.ID])
	}
	return products, nil
}
