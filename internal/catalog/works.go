package catalog

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"invizible.art/internal/apperr"
)

// CreateWork stores a portfolio work and attaches its pre-uploaded images.
func (s *Service) CreateWork(ctx context.Context, in CreateWorkInput) (w *Work, err error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ctx, span := s.startSpan(ctx, flowCreateWork)
	defer func() { finish(span, err) }()

	w = &Work{
		Title:        in.Title,
		TitleEnglish: in.TitleEnglish,
		Description:  in.Description,
		CategoryID:   in.CategoryID,
		SeriesID:     in.SeriesID,
		Year:         in.Year,
		Material:     in.Material,
		Dimensions:   in.Dimensions,
	}
	if err := step(flowCreateWork, "local_insert", s.store.Works().Insert(ctx, w)); err != nil {
		return nil, apperr.Internal(err, "failed to create work")
	}
	span.SetAttributes(attribute.Int64("work.id", w.ID))

	images := s.store.WorkImages()
	if err := s.attachImages(ctx, images, w.ID, in.ImageIDs); err != nil {
		return nil, err
	}
	list, err := images.ListByOwner(ctx, w.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load work images")
	}
	w.Images = s.withURLs(list)

	s.log.Info("work created", zap.Int64("work_id", w.ID), zap.Int("images", len(list)))
	return w, nil
}

// ListWorks returns every work, newest first, with image URLs.
func (s *Service) ListWorks(ctx context.Context) ([]*Work, error) {
	works, err := s.store.Works().List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list works")
	}
	byOwner, err := s.store.WorkImages().ListAttached(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list work images")
	}
	for _, w := range works {
		w.Images = s.withURLs(byOwner[w.ID])
	}
	return works, nil
}
