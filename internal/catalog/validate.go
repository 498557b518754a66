package catalog

import (
	"strings"
	"unicode/utf8"

	"invizible.art/internal/apperr"
)

const (
	maxNameLen       = 255
	maxCreateDescLen = 2000
	maxUpdateDescLen = 10000
	maxWorkDescLen   = 2000
	maxShortTextLen  = 255
)

// validateName checks an already trimmed name.
func validateName(field, name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > maxNameLen {
		return apperr.Validation("%s must be between 1 and %d characters", field, maxNameLen)
	}
	return nil
}

func validateMaxLen(field string, v *string, max int) error {
	if v != nil && utf8.RuneCountInString(*v) > max {
		return apperr.Validation("%s must be at most %d characters", field, max)
	}
	return nil
}

func validateIDs(field string, ids []int64) error {
	for _, id := range ids {
		if id <= 0 {
			return apperr.Validation("%s must contain positive ids", field)
		}
	}
	return nil
}

func validatePositive(field string, id *int64) error {
	if id != nil && *id <= 0 {
		return apperr.Validation("%s must be a positive id", field)
	}
	return nil
}

// validate trims Name in place so the stored and provider copies match what was checked.
func (in *CreateProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateName("name", in.Name); err != nil {
		return err
	}
	if err := validateMaxLen("description", in.Description, maxCreateDescLen); err != nil {
		return err
	}
	if in.UnitAmount < 0 {
		return apperr.Validation("unit_amount must not be negative")
	}
	if err := validatePositive("work_id", in.WorkID); err != nil {
		return err
	}
	return validateIDs("image_ids", in.ImageIDs)
}

func (in *UpdateProductInput) validate() error {
	if in.ID <= 0 {
		return apperr.Validation("id must be positive")
	}
	if in.Name.IsNull() {
		return apperr.Validation("name cannot be null")
	}
	if name, ok := in.Name.Get(); ok {
		name = strings.TrimSpace(name)
		in.Name = Some(name)
		if err := validateName("name", name); err != nil {
			return err
		}
	}
	if err := validateMaxLen("description", in.Description.Ptr(), maxUpdateDescLen); err != nil {
		return err
	}
	if err := validatePositive("work_id", in.WorkID.Ptr()); err != nil {
		return err
	}
	if in.Active.IsNull() {
		return apperr.Validation("active cannot be null")
	}
	if amount, ok := in.UnitAmount.Get(); ok && amount < 0 {
		return apperr.Validation("unit_amount must not be negative")
	}
	if in.ImageIDs.IsNull() {
		return apperr.Validation("image_ids cannot be null")
	}
	ids, _ := in.ImageIDs.Get()
	return validateIDs("image_ids", ids)
}

func (in *CreateWorkInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateName("title", in.Title); err != nil {
		return err
	}
	if err := validateMaxLen("title_english", in.TitleEnglish, maxShortTextLen); err != nil {
		return err
	}
	if err := validateMaxLen("description", in.Description, maxWorkDescLen); err != nil {
		return err
	}
	if err := validateMaxLen("material", in.Material, maxShortTextLen); err != nil {
		return err
	}
	if err := validateMaxLen("dimensions", in.Dimensions, maxShortTextLen); err != nil {
		return err
	}
	if err := validatePositive("category_id", in.CategoryID); err != nil {
		return err
	}
	if err := validatePositive("series_id", in.SeriesID); err != nil {
		return err
	}
	return validateIDs("image_ids", in.ImageIDs)
}

func validateCheckout(items []CheckoutItem) error {
	if len(items) == 0 {
		return apperr.Validation("at least one item is required")
	}
	for _, it := range items {
		if it.ProductID <= 0 {
			return apperr.Validation("product_id must be positive")
		}
		if it.Quantity <= 0 {
			return apperr.Validation("quantity must be positive")
		}
	}
	return nil
}
