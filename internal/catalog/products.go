package catalog

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"invizible.art/internal/apperr"
	"invizible.art/internal/events"
	"invizible.art/internal/payment"
)

// blobDeleteConcurrency bounds parallel blob deletes of one product.
const blobDeleteConcurrency = 8

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CreateProduct creates the remote product and price, then the local row.
// A local write failure deactivates both remote records before returning.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (p *Product, err error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ctx, span := s.startSpan(ctx, flowCreateProduct)
	defer func() { finish(span, err) }()

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	productID, err := s.payments.CreateProduct(ctx, payment.ProductParams{
		Name:        in.Name,
		Description: derefString(in.Description),
		Active:      active,
		Metadata:    in.Metadata,
	})
	if step(flowCreateProduct, "provider_product", err) != nil {
		return nil, apperr.Upstream(err, "failed to create product")
	}

	priceID, err := s.payments.CreatePrice(ctx, payment.PriceParams{
		ProductID:  productID,
		UnitAmount: in.UnitAmount,
		Currency:   s.currency,
		Active:     active,
	})
	if step(flowCreateProduct, "provider_price", err) != nil {
		s.compensate(ctx, flowCreateProduct, "deactivate_product", productID, s.payments.DeactivateProduct)
		return nil, apperr.Upstream(err, "failed to create product price")
	}

	amount := in.UnitAmount
	p = &Product{
		ProviderProductID: productID,
		PriceID:           &priceID,
		WorkID:            in.WorkID,
		Name:              in.Name,
		Description:       in.Description,
		Active:            active,
		UnitAmount:        &amount,
		Currency:          s.currency,
		Metadata:          in.Metadata,
	}
	if err := step(flowCreateProduct, "local_insert", s.store.Products().Insert(ctx, p)); err != nil {
		s.compensate(ctx, flowCreateProduct, "deactivate_price", priceID, s.payments.DeactivatePrice)
		s.compensate(ctx, flowCreateProduct, "deactivate_product", productID, s.payments.DeactivateProduct)
		return nil, apperr.Internal(err, "failed to create product")
	}
	span.SetAttributes(attribute.Int64("product.id", p.ID))

	if len(in.ImageIDs) > 0 {
		if err := s.attachImages(ctx, s.store.ProductImages(), p.ID, in.ImageIDs); err != nil {
			return nil, err
		}
		if err := step(flowCreateProduct, "provider_images", s.syncProductImages(ctx, p.ID, productID)); err != nil {
			return nil, err
		}
	}

	s.log.Info("product created", zap.Int64("product_id", p.ID),
		zap.String("provider_product_id", productID), zap.String("price_id", priceID))
	s.publish(ctx, events.ProductCreated, p)
	return s.GetProduct(ctx, p.ID)
}

// metadataPatch turns next into a provider update that also unsets keys
// present in prev but absent from next.
func metadataPatch(prev, next map[string]string) map[string]string {
	if len(prev) == 0 && next == nil {
		return nil
	}
	patch := make(map[string]string, len(prev)+len(next))
	for k := range prev {
		patch[k] = ""
	}
	for k, v := range next {
		patch[k] = v
	}
	return patch
}

// UpdateProduct applies the set fields of in. A new remote price is created
// only when the amount or the active flag is part of the update.
func (s *Service) UpdateProduct(ctx context.Context, in UpdateProductInput) (p *Product, err error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ctx, span := s.startSpan(ctx, flowUpdateProduct, attribute.Int64("product.id", in.ID))
	defer func() { finish(span, err) }()

	current, err := s.store.Products().Get(ctx, in.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("product %d not found", in.ID)
		}
		return nil, apperr.Internal(err, "failed to load product")
	}

	next := *current
	if name, ok := in.Name.Get(); ok {
		next.Name = name
	}
	next.Description = in.Description.Apply(current.Description)
	next.WorkID = in.WorkID.Apply(current.WorkID)
	if active, ok := in.Active.Get(); ok {
		next.Active = active
	}
	next.UnitAmount = in.UnitAmount.Apply(current.UnitAmount)
	if in.Metadata.IsSet() {
		next.Metadata, _ = in.Metadata.Get()
	}

	needPrice := in.UnitAmount.IsSet() || in.Active.IsSet()
	if needPrice && next.UnitAmount == nil {
		return nil, apperr.Validation("unit_amount is required to price the product")
	}

	params := payment.ProductParams{
		Name:        next.Name,
		Description: derefString(next.Description),
		Active:      next.Active,
		Metadata:    next.Metadata,
	}
	if in.Metadata.IsSet() {
		params.Metadata = metadataPatch(current.Metadata, next.Metadata)
	}
	err = s.payments.UpdateProduct(ctx, current.ProviderProductID, params)
	if step(flowUpdateProduct, "provider_product", err) != nil {
		return nil, apperr.Upstream(err, "failed to update product")
	}

	var newPriceID string
	if needPrice {
		newPriceID, err = s.payments.CreatePrice(ctx, payment.PriceParams{
			ProductID:  current.ProviderProductID,
			UnitAmount: *next.UnitAmount,
			Currency:   s.currency,
			Active:     next.Active,
		})
		if step(flowUpdateProduct, "provider_price", err) != nil {
			return nil, apperr.Upstream(err, "failed to create product price")
		}
		next.PriceID = &newPriceID
		next.Currency = s.currency
	}

	if err := step(flowUpdateProduct, "local_update", s.store.Products().Update(ctx, &next)); err != nil {
		if newPriceID != "" {
			s.compensate(ctx, flowUpdateProduct, "deactivate_price", newPriceID, s.payments.DeactivatePrice)
		}
		return nil, apperr.Internal(err, "failed to update product")
	}

	if newPriceID != "" && current.PriceID != nil && *current.PriceID != "" {
		// The old price stays at the provider, inactive.
		s.compensate(ctx, flowUpdateProduct, "retire_price", *current.PriceID, s.payments.DeactivatePrice)
	}

	if ids, ok := in.ImageIDs.Get(); ok {
		images := s.store.ProductImages()
		if err := images.DetachAll(ctx, current.ID); err != nil {
			return nil, apperr.Internal(err, "failed to detach images")
		}
		if err := s.attachImages(ctx, images, current.ID, ids); err != nil {
			return nil, err
		}
		if err := step(flowUpdateProduct, "provider_images", s.syncProductImages(ctx, current.ID, current.ProviderProductID)); err != nil {
			return nil, err
		}
	}

	s.log.Info("product updated", zap.Int64("product_id", current.ID), zap.Bool("repriced", newPriceID != ""))
	s.publish(ctx, events.ProductUpdated, &next)
	return s.GetProduct(ctx, current.ID)
}

// deleteBlobs removes every image blob concurrently and deletes the rows of
// the blobs that are gone. It returns the combined failures.
func (s *Service) deleteBlobs(ctx context.Context, images ImageStore, list []Image) error {
	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(blobDeleteConcurrency)
	for _, img := range list {
		g.Go(func() error {
			if err := s.blobs.Delete(ctx, img.BlobKey); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			if err := images.Delete(ctx, img.ID); err != nil && !errors.Is(err, ErrNotFound) {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// DeleteProduct removes blobs, deactivates the remote price and product and
// deletes the local row last.
func (s *Service) DeleteProduct(ctx context.Context, id int64) (err error) {
	if id <= 0 {
		return apperr.Validation("id must be positive")
	}
	ctx, span := s.startSpan(ctx, flowDeleteProduct, attribute.Int64("product.id", id))
	defer func() { finish(span, err) }()

	p, err := s.store.Products().Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("product %d not found", id)
		}
		return apperr.Internal(err, "failed to load product")
	}
	images := s.store.ProductImages()
	list, err := images.ListByOwner(ctx, id)
	if err != nil {
		return apperr.Internal(err, "failed to load product images")
	}

	if err := step(flowDeleteProduct, "blobs", s.deleteBlobs(ctx, images, list)); err != nil {
		s.log.Error("product blob cleanup failed", zap.Int64("product_id", id),
			zap.Int("failures", len(multierr.Errors(err))), zap.Error(err))
		return apperr.Upstream(err, "failed to delete product images")
	}

	if p.PriceID != nil && *p.PriceID != "" {
		err := s.payments.DeactivatePrice(ctx, *p.PriceID)
		if step(flowDeleteProduct, "provider_price", err) != nil {
			return apperr.Upstream(err, "failed to deactivate product price")
		}
	}
	err = s.payments.DeactivateProduct(ctx, p.ProviderProductID)
	if step(flowDeleteProduct, "provider_product", err) != nil {
		return apperr.Upstream(err, "failed to deactivate product")
	}

	if err := step(flowDeleteProduct, "local_delete", s.store.Products().Delete(ctx, id)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("product %d not found", id)
		}
		return apperr.Internal(err, "failed to delete product")
	}

	s.log.Info("product deleted", zap.Int64("product_id", id), zap.Int("images", len(list)))
	s.publish(ctx, events.ProductDeleted, p)
	return nil
}
