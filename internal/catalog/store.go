package catalog

import "context"

// Store describes persistence operations required by the catalog.
type Store interface {
	Products() ProductStore
	ProductImages() ImageStore
	Works() WorkStore
	WorkImages() ImageStore
}

// ProductStore persists products. Images are loaded through ImageStore.
type ProductStore interface {
	// Insert stores p and fills ID, CreatedAt and UpdatedAt. It returns
	// ErrNoRow when the database acknowledges the insert without a row.
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id int64) (*Product, error)
	// List returns every product, newest first.
	List(ctx context.Context) ([]*Product, error)
	// Update writes every mutable column of p.
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
}

// ImageStore persists images owned by one kind of entity.
type ImageStore interface {
	Insert(ctx context.Context, img *Image) error
	Get(ctx context.Context, id int64) (*Image, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Image, error)
	// ListAttached returns every attached image grouped by owner.
	ListAttached(ctx context.Context) (map[int64][]Image, error)
	// Attach sets the owner of each listed image that is currently
	// unattached and reports how many rows changed.
	Attach(ctx context.Context, ownerID int64, imageIDs []int64) (int, error)
	DetachAll(ctx context.Context, ownerID int64) error
	Delete(ctx context.Context, id int64) error
}

// WorkStore persists portfolio works.
type WorkStore interface {
	Insert(ctx context.Context, w *Work) error
	// List returns every work, newest first.
	List(ctx context.Context) ([]*Work, error)
}
