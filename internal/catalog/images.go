package catalog

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"invizible.art/internal/apperr"
	"invizible.art/internal/ids"
)

// Blob key prefixes per image owner kind.
const (
	productImagePrefix = "products"
	workImagePrefix    = "works"
)

func validateFileName(fileName *string) error {
	return validateMaxLen("file_name", fileName, maxShortTextLen)
}

// createImage allocates a key, stores an unattached row and returns a
// short-lived upload URL for it. The bytes never pass through this service.
func (s *Service) createImage(ctx context.Context, images ImageStore, prefix string, fileName *string) (up *ImageUpload, err error) {
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}
	ctx, span := s.startSpan(ctx, flowCreateImage, attribute.String("image.kind", prefix))
	defer func() { finish(span, err) }()

	img := &Image{FileName: fileName, BlobKey: ids.BlobKey(prefix)}
	if err := step(flowCreateImage, "local_insert", images.Insert(ctx, img)); err != nil {
		return nil, apperr.Internal(err, "failed to create image")
	}

	url, err := s.blobs.PresignUpload(ctx, img.BlobKey)
	if step(flowCreateImage, "presign", err) != nil {
		s.compensate(ctx, flowCreateImage, "delete_row", img.BlobKey, func(ctx context.Context, _ string) error {
			return images.Delete(ctx, img.ID)
		})
		return nil, apperr.Upstream(err, "failed to create upload url")
	}
	return &ImageUpload{ID: img.ID, UploadURL: url}, nil
}

// CreateProductImage starts a product image upload.
func (s *Service) CreateProductImage(ctx context.Context, fileName *string) (*ImageUpload, error) {
	return s.createImage(ctx, s.store.ProductImages(), productImagePrefix, fileName)
}

// CreateWorkImage starts a work image upload.
func (s *Service) CreateWorkImage(ctx context.Context, fileName *string) (*ImageUpload, error) {
	return s.createImage(ctx, s.store.WorkImages(), workImagePrefix, fileName)
}

// DeleteProductImage deletes the blob, then the row. When the image belonged
// to a product the provider's image list is pushed again.
func (s *Service) DeleteProductImage(ctx context.Context, id int64) (err error) {
	if id <= 0 {
		return apperr.Validation("id must be positive")
	}
	ctx, span := s.startSpan(ctx, flowDeleteImage, attribute.Int64("image.id", id))
	defer func() { finish(span, err) }()

	images := s.store.ProductImages()
	img, err := images.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("image %d not found", id)
		}
		return apperr.Internal(err, "failed to load image")
	}

	var owner *Product
	if img.OwnerID != nil {
		owner, err = s.store.Products().Get(ctx, *img.OwnerID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return apperr.Internal(err, "failed to load image owner")
		}
	}

	err = s.blobs.Delete(ctx, img.BlobKey)
	if step(flowDeleteImage, "blob", err) != nil {
		return apperr.Upstream(err, "failed to delete image")
	}
	if err := step(flowDeleteImage, "local_delete", images.Delete(ctx, id)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("image %d not found", id)
		}
		return apperr.Internal(err, "failed to delete image")
	}

	if owner != nil {
		if err := step(flowDeleteImage, "provider_images", s.syncProductImages(ctx, owner.ID, owner.ProviderProductID)); err != nil {
			return err
		}
	}
	s.log.Info("product image deleted", zap.Int64("image_id", id), zap.Bool("attached", owner != nil))
	return nil
}
