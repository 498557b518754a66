package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("catalog: not found")
	// ErrNoRow is returned when an insert reports success but returns no row.
	ErrNoRow = errors.New("catalog: insert returned no row")
)

// Product is a sellable catalog entity mirrored at the payment provider.
type Product struct {
	ID                int64             `json:"id"`
	ProviderProductID string            `json:"provider_product_id"`
	PriceID           *string           `json:"price_id"`
	WorkID            *int64            `json:"work_id"`
	Name              string            `json:"name"`
	Description       *string           `json:"description"`
	Active            bool              `json:"active"`
	UnitAmount        *int64            `json:"unit_amount"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Images            []Image           `json:"images"`
}

// Purchasable reports whether the product can be put in a checkout.
func (p *Product) Purchasable() bool {
	return p.Active && p.PriceID != nil && *p.PriceID != ""
}

// Image is a blob-storage-backed asset. OwnerID is nil until the image is
// attached to a product or work.
type Image struct {
	ID       int64   `json:"id"`
	OwnerID  *int64  `json:"owner_id"`
	FileName *string `json:"file_name"`
	BlobKey  string  `json:"blob_key"`
	URL      string  `json:"url,omitempty"`
}

// ImageUpload is returned by the first phase of an image upload.
type ImageUpload struct {
	ID        int64  `json:"id"`
	UploadURL string `json:"url"`
}

// Work is an exhibited portfolio entry. Works never touch the payment provider.
type Work struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	TitleEnglish *string `json:"title_english"`
	Description  *string `json:"description"`
	CategoryID   *int64  `json:"category_id"`
	SeriesID     *int64  `json:"series_id"`
	Year         *int    `json:"year"`
	Material     *string `json:"material"`
	Dimensions   *string `json:"dimensions"`
	Images       []Image `json:"images"`
}

// CreateProductInput describes a new product and its first price.
type CreateProductInput struct {
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	WorkID      *int64            `json:"work_id"`
	Active      *bool             `json:"active"`
	UnitAmount  int64             `json:"unit_amount"`
	Metadata    map[string]string `json:"metadata"`
	ImageIDs    []int64           `json:"image_ids"`
}

// UpdateProductInput changes any subset of a product's fields.
type UpdateProductInput struct {
	ID          int64                       `json:"-"`
	Name        Optional[string]            `json:"name"`
	Description Optional[string]            `json:"description"`
	WorkID      Optional[int64]             `json:"work_id"`
	Active      Optional[bool]              `json:"active"`
	UnitAmount  Optional[int64]             `json:"unit_amount"`
	Metadata    Optional[map[string]string] `json:"metadata"`
	ImageIDs    Optional[[]int64]           `json:"image_ids"`
}

// CreateWorkInput describes a new portfolio work.
type CreateWorkInput struct {
	Title        string  `json:"title"`
	TitleEnglish *string `json:"title_english"`
	Description  *string `json:"description"`
	CategoryID   *int64  `json:"category_id"`
	SeriesID     *int64  `json:"series_id"`
	Year         *int    `json:"year"`
	Material     *string `json:"material"`
	Dimensions   *string `json:"dimensions"`
	ImageIDs     []int64 `json:"image_ids"`
}

// CheckoutItem is one requested (product, quantity) pair.
type CheckoutItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}
