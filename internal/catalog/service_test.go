package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invizible.art/internal/apperr"
	"invizible.art/internal/blob"
	"invizible.art/internal/events"
	"invizible.art/internal/obs"
	"invizible.art/internal/payment"
)

type fixture struct {
	svc    *Service
	store  *MemoryStore
	pay    *payment.Memory
	blobs  *blob.Memory
	events *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	obs.SetLogger(nil)
	f := &fixture{
		store:  NewMemoryStore(),
		pay:    payment.NewMemory(),
		blobs:  blob.NewMemory("https://cdn.example.test"),
		events: &events.Recorder{},
	}
	svc, err := NewService(f.store, f.pay, f.blobs,
		WithCurrency("CAD"),
		WithPublisher(f.events),
		WithCheckout(CheckoutConfig{
			SuccessURL:       "https://shop.example.test/success",
			CancelURL:        "https://shop.example.test/cancel",
			AllowedCountries: []string{"CA", "US"},
		}),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) createProduct(t *testing.T, in CreateProductInput) *Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (f *fixture) uploadImages(t *testing.T, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		up, err := f.svc.CreateProductImage(context.Background(), nil)
		require.NoError(t, err)
		ids = append(ids, up.ID)
	}
	return ids
}

// lastCall returns the ID of the most recent call of op.
func (f *fixture) lastCall(op string) string {
	calls := f.pay.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Op == op {
			return calls[i].ID
		}
	}
	return ""
}

func ptr[T any](v T) *T { return &v }

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(nil, payment.NewMemory(), blob.NewMemory(""))
	assert.Error(t, err)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{
		Name:        "Blue Hour",
		Description: ptr("oil on canvas"),
		UnitAmount:  12500,
		Metadata:    map[string]string{"edition": "1/10"},
	})

	assert.True(t, p.Active)
	assert.Equal(t, "cad", p.Currency)
	require.NotNil(t, p.PriceID)
	require.NotNil(t, p.UnitAmount)
	assert.Equal(t, int64(12500), *p.UnitAmount)

	remote, ok := f.pay.Product(p.ProviderProductID)
	require.True(t, ok)
	assert.True(t, remote.Active)
	assert.Equal(t, "Blue Hour", remote.Name)
	assert.Equal(t, "oil on canvas", remote.Description)

	price, ok := f.pay.Price(*p.PriceID)
	require.True(t, ok)
	assert.Equal(t, p.ProviderProductID, price.ProductID)
	assert.Equal(t, int64(12500), price.UnitAmount)
	assert.Equal(t, "cad", price.Currency)
	assert.True(t, price.Active)

	assert.Equal(t, []string{events.ProductCreated}, f.events.Subjects())
	assert.Zero(t, f.pay.Count(payment.OpSetProductImages))
}

func TestCreateProductCompensatesWhenInsertFails(t *testing.T) {
	for name, arrange := range map[string]func(*MemoryStore){
		"constraint violation": func(s *MemoryStore) { s.FailProductInsert(errors.New("duplicate key value")) },
		"no row returned":      func(s *MemoryStore) { s.DropInsertedRow(true) },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			arrange(f.store)

			_, err := f.svc.CreateProduct(context.Background(), CreateProductInput{Name: "Dusk", UnitAmount: 900})
			require.Error(t, err)
			assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
			assert.Equal(t, "failed to create product", apperr.PublicMessage(err))

			productID := f.lastCall(payment.OpDeactivateProduct)
			priceID := f.lastCall(payment.OpDeactivatePrice)
			require.NotEmpty(t, productID)
			require.NotEmpty(t, priceID)

			remote, _ := f.pay.Product(productID)
			assert.False(t, remote.Active)
			price, _ := f.pay.Price(priceID)
			assert.False(t, price.Active)
			assert.Equal(t, productID, price.ProductID)

			assert.Zero(t, f.store.ProductCount())
			assert.Empty(t, f.events.Subjects())

			ops := make([]string, 0, 4)
			for _, c := range f.pay.Calls() {
				ops = append(ops, c.Op)
			}
			assert.Equal(t, []string{
				payment.OpCreateProduct,
				payment.OpCreatePrice,
				payment.OpDeactivatePrice,
				payment.OpDeactivateProduct,
			}, ops)
		})
	}
}

func TestCreateProductCompensationFailureKeepsOriginalError(t *testing.T) {
	f := newFixture(t)
	f.store.FailProductInsert(errors.New("connection reset"))
	f.pay.FailOn(payment.OpDeactivatePrice, errors.New("provider down"))

	_, err := f.svc.CreateProduct(context.Background(), CreateProductInput{Name: "Dusk", UnitAmount: 900})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 1, f.pay.Count(payment.OpDeactivateProduct))
}

func TestCreateProductPriceFailureDeactivatesProduct(t *testing.T) {
	f := newFixture(t)
	f.pay.FailOn(payment.OpCreatePrice, errors.New("rate limited"))

	_, err := f.svc.CreateProduct(context.Background(), CreateProductInput{Name: "Dusk", UnitAmount: 900})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, "internal error", apperr.PublicMessage(err))

	remote, ok := f.pay.Product(f.lastCall(payment.OpDeactivateProduct))
	require.True(t, ok)
	assert.False(t, remote.Active)
	assert.Zero(t, f.store.ProductCount())
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]CreateProductInput{
		"empty name":      {Name: "  ", UnitAmount: 1},
		"negative amount": {Name: "x", UnitAmount: -1},
		"bad image id":    {Name: "x", ImageIDs: []int64{0}},
		"bad work id":     {Name: "x", WorkID: ptr(int64(-3))},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateProduct(context.Background(), in)
			assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
		})
	}
	assert.Empty(t, f.pay.Calls())
}

func TestCreateProductNameLengthIsCheckedAfterTrim(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "  " + strings.Repeat("a", maxNameLen+1) + " ",
		UnitAmount: 1,
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
	assert.Zero(t, f.pay.Count(payment.OpCreateProduct))

	// Padding around a name of exactly the maximum length is dropped before storing.
	name := strings.Repeat("a", maxNameLen)
	p := f.createProduct(t, CreateProductInput{Name: "  " + name + "\t", UnitAmount: 1})
	assert.Equal(t, name, p.Name)
	remote, _ := f.pay.Product(p.ProviderProductID)
	assert.Equal(t, name, remote.Name)
}

func TestUpdateProductTrimsName(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})
	updatesBefore := f.pay.Count(payment.OpUpdateProduct)

	_, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{
		ID:   p.ID,
		Name: Some("  " + strings.Repeat("b", maxNameLen+1)),
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
	assert.Equal(t, updatesBefore, f.pay.Count(payment.OpUpdateProduct))

	got, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{
		ID:   p.ID,
		Name: Some("  Low Tide  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Low Tide", got.Name)
	remote, _ := f.pay.Product(p.ProviderProductID)
	assert.Equal(t, "Low Tide", remote.Name)
}

func TestCreateProductAttachesImagesAndSyncsProvider(t *testing.T) {
	f := newFixture(t)
	imageIDs := f.uploadImages(t, 2)

	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100, ImageIDs: imageIDs})
	require.Len(t, p.Images, 2)
	for _, img := range p.Images {
		assert.Equal(t, "https://cdn.example.test/"+img.BlobKey, img.URL)
	}

	remote, _ := f.pay.Product(p.ProviderProductID)
	assert.Equal(t, []string{p.Images[0].URL, p.Images[1].URL}, remote.Images)

	// Images already owned by a product are not stolen.
	other := f.createProduct(t, CreateProductInput{Name: "Other", UnitAmount: 100, ImageIDs: imageIDs})
	assert.Empty(t, other.Images)
}

func TestUpdateDescriptionOnlyKeepsPrice(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})
	pricesBefore := f.pay.Count(payment.OpCreatePrice)

	got, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{
		ID:          p.ID,
		Description: Some("new words"),
	})
	require.NoError(t, err)

	assert.Equal(t, pricesBefore, f.pay.Count(payment.OpCreatePrice))
	assert.Equal(t, *p.PriceID, *got.PriceID)
	require.NotNil(t, got.Description)
	assert.Equal(t, "new words", *got.Description)
	assert.Equal(t, 1, f.pay.Count(payment.OpUpdateProduct))
	assert.Zero(t, f.pay.Count(payment.OpDeactivatePrice))

	remote, _ := f.pay.Product(p.ProviderProductID)
	assert.Equal(t, "new words", remote.Description)
	assert.Equal(t, []string{events.ProductCreated, events.ProductUpdated}, f.events.Subjects())
}

func TestUpdateUnitAmountSwapsPrice(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})
	oldPrice := *p.PriceID
	pricesBefore := f.pay.Count(payment.OpCreatePrice)

	got, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{
		ID:         p.ID,
		UnitAmount: Some(int64(250)),
	})
	require.NoError(t, err)

	assert.Equal(t, pricesBefore+1, f.pay.Count(payment.OpCreatePrice))
	require.NotNil(t, got.PriceID)
	assert.NotEqual(t, oldPrice, *got.PriceID)
	assert.Equal(t, int64(250), *got.UnitAmount)

	stored, err := f.store.Products().Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, *got.PriceID, *stored.PriceID)

	old, _ := f.pay.Price(oldPrice)
	assert.False(t, old.Active)
	fresh, _ := f.pay.Price(*got.PriceID)
	assert.True(t, fresh.Active)
	assert.Equal(t, int64(250), fresh.UnitAmount)
}

func TestUpdateActiveFlagCreatesInactivePrice(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})

	got, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{ID: p.ID, Active: Some(false)})
	require.NoError(t, err)
	assert.False(t, got.Active)

	fresh, _ := f.pay.Price(*got.PriceID)
	assert.False(t, fresh.Active)
	assert.Equal(t, int64(100), fresh.UnitAmount)
	remote, _ := f.pay.Product(p.ProviderProductID)
	assert.False(t, remote.Active)
}

func TestUpdateNullAmountFailsBeforeProvider(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})
	callsBefore := len(f.pay.Calls())

	_, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{
		ID:         p.ID,
		UnitAmount: Null[int64](),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Len(t, f.pay.Calls(), callsBefore)
}

func TestUpdateLocalFailureDeactivatesNewPrice(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})
	f.store.FailProductUpdate(errors.New("deadlock detected"))

	_, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{ID: p.ID, UnitAmount: Some(int64(300))})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	newPrice := f.lastCall(payment.OpDeactivatePrice)
	require.NotEmpty(t, newPrice)
	assert.NotEqual(t, *p.PriceID, newPrice)
	price, _ := f.pay.Price(newPrice)
	assert.False(t, price.Active)

	old, _ := f.pay.Price(*p.PriceID)
	assert.True(t, old.Active)
	stored, _ := f.store.Products().Get(context.Background(), p.ID)
	assert.Equal(t, *p.PriceID, *stored.PriceID)
}

func TestUpdateMetadataUnsetsRemovedKeys(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{
		Name:       "Tide",
		UnitAmount: 100,
		Metadata:   map[string]string{"edition": "1/10", "frame": "oak"},
	})

	got, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{
		ID:       p.ID,
		Metadata: Some(map[string]string{"frame": "walnut"}),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"frame": "walnut"}, got.Metadata)

	remote, _ := f.pay.Product(p.ProviderProductID)
	assert.Equal(t, map[string]string{"edition": "", "frame": "walnut"}, remote.Metadata)
}

func TestUpdateImagesReplacesSet(t *testing.T) {
	f := newFixture(t)
	first := f.uploadImages(t, 2)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100, ImageIDs: first})
	second := f.uploadImages(t, 1)

	got, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{
		ID:       p.ID,
		ImageIDs: Some([]int64{first[1], second[0]}),
	})
	require.NoError(t, err)
	require.Len(t, got.Images, 2)
	assert.Equal(t, first[1], got.Images[0].ID)
	assert.Equal(t, second[0], got.Images[1].ID)

	detached, err := f.store.ProductImages().Get(context.Background(), first[0])
	require.NoError(t, err)
	assert.Nil(t, detached.OwnerID)

	remote, _ := f.pay.Product(p.ProviderProductID)
	assert.Equal(t, []string{got.Images[0].URL, got.Images[1].URL}, remote.Images)
}

func TestUpdateMissingProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateProduct(context.Background(), UpdateProductInput{ID: 42, Name: Some("x")})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Empty(t, f.pay.Calls())
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100, ImageIDs: f.uploadImages(t, 2)})

	require.NoError(t, f.svc.DeleteProduct(context.Background(), p.ID))

	assert.Len(t, f.blobs.Deletes(), 2)
	price, _ := f.pay.Price(*p.PriceID)
	assert.False(t, price.Active)
	remote, _ := f.pay.Product(p.ProviderProductID)
	assert.False(t, remote.Active)

	got, err := f.svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, events.ProductDeleted, f.events.Subjects()[len(f.events.Subjects())-1])

	var ev events.ProductEvent
	msgs := f.events.Messages()
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Data, &ev))
	assert.Equal(t, p.ID, ev.ID)
	assert.Equal(t, p.ProviderProductID, ev.ProviderProductID)
}

func TestDeleteProductBlobFailureKeepsRow(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100, ImageIDs: f.uploadImages(t, 3)})
	require.Len(t, p.Images, 3)
	f.blobs.FailDelete(p.Images[1].BlobKey, errors.New("access denied"))

	err := f.svc.DeleteProduct(context.Background(), p.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))

	assert.ElementsMatch(t, []string{p.Images[0].BlobKey, p.Images[1].BlobKey, p.Images[2].BlobKey}, f.blobs.Deletes())
	assert.Zero(t, f.pay.Count(payment.OpDeactivatePrice))
	assert.Zero(t, f.pay.Count(payment.OpDeactivateProduct))

	got, err := f.svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Images, 1)
	assert.Equal(t, p.Images[1].ID, got.Images[0].ID)
}

func TestDeleteProductProviderFailureKeepsRow(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})
	f.pay.FailOn(payment.OpDeactivateProduct, errors.New("timeout"))

	err := f.svc.DeleteProduct(context.Background(), p.ID)
	require.Error(t, err)
	assert.Equal(t, 1, f.store.ProductCount())
}

func TestDeleteMissingProduct(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteProduct(context.Background(), 7)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Empty(t, f.blobs.Deletes())
}

func TestCreateImageReturnsUploadURL(t *testing.T) {
	f := newFixture(t)
	up, err := f.svc.CreateProductImage(context.Background(), ptr("sunrise.jpg"))
	require.NoError(t, err)
	assert.Positive(t, up.ID)
	assert.Contains(t, up.UploadURL, "https://cdn.example.test/products/")

	img, err := f.store.ProductImages().Get(context.Background(), up.ID)
	require.NoError(t, err)
	assert.Nil(t, img.OwnerID)
	assert.Equal(t, []string{img.BlobKey}, f.blobs.Presigns())

	work, err := f.svc.CreateWorkImage(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, work.UploadURL, "/works/")
}

func TestCreateImagePresignFailureRemovesRow(t *testing.T) {
	f := newFixture(t)
	f.blobs.FailPresign(errors.New("no credentials"))

	_, err := f.svc.CreateProductImage(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Empty(t, f.store.productImages)
}

func TestDeleteAttachedImageResyncsProvider(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100, ImageIDs: f.uploadImages(t, 2)})

	require.NoError(t, f.svc.DeleteProductImage(context.Background(), p.Images[0].ID))

	assert.Equal(t, []string{p.Images[0].BlobKey}, f.blobs.Deletes())
	remote, _ := f.pay.Product(p.ProviderProductID)
	assert.Equal(t, []string{p.Images[1].URL}, remote.Images)

	err := f.svc.DeleteProductImage(context.Background(), p.Images[0].ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestDeleteUnattachedImageSkipsProvider(t *testing.T) {
	f := newFixture(t)
	ids := f.uploadImages(t, 1)

	require.NoError(t, f.svc.DeleteProductImage(context.Background(), ids[0]))
	assert.Len(t, f.blobs.Deletes(), 1)
	assert.Zero(t, f.pay.Count(payment.OpSetProductImages))
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	a := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})
	b := f.createProduct(t, CreateProductInput{Name: "Dusk", UnitAmount: 200})

	cs, err := f.svc.CreateCheckoutSession(context.Background(), []CheckoutItem{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 3},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cs.ID)
	assert.NotEmpty(t, cs.URL)
	assert.Equal(t, 2, f.store.ProductCount())
}

func TestCheckoutRejectsUnavailableProducts(t *testing.T) {
	f := newFixture(t)
	inactive := f.createProduct(t, CreateProductInput{Name: "Gone", UnitAmount: 100, Active: ptr(false)})

	_, err := f.svc.CreateCheckoutSession(context.Background(), []CheckoutItem{{ProductID: inactive.ID, Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, `Product "Gone" is no longer available`, apperr.PublicMessage(err))

	_, err = f.svc.CreateCheckoutSession(context.Background(), []CheckoutItem{{ProductID: 999, Quantity: 1}})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.CreateCheckoutSession(context.Background(), nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.CreateCheckoutSession(context.Background(), []CheckoutItem{{ProductID: inactive.ID, Quantity: 0}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	assert.Zero(t, f.pay.Count(payment.OpCreateCheckout))
}

func TestCheckoutProviderFailure(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})
	f.pay.FailOn(payment.OpCreateCheckout, errors.New("card network down"))

	_, err := f.svc.CreateCheckoutSession(context.Background(), []CheckoutItem{{ProductID: p.ID, Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, "internal error", apperr.PublicMessage(err))
}

func TestPublishFailureDoesNotFailFlow(t *testing.T) {
	f := newFixture(t)
	f.events.FailWith(errors.New("nats: connection closed"))

	p := f.createProduct(t, CreateProductInput{Name: "Tide", UnitAmount: 100})
	assert.Equal(t, 1, f.store.ProductCount())
	assert.Zero(t, f.pay.Count(payment.OpDeactivateProduct))
	require.NoError(t, f.svc.DeleteProduct(context.Background(), p.ID))
}

func TestListProductsNewestFirst(t *testing.T) {
	f := newFixture(t)
	first := f.createProduct(t, CreateProductInput{Name: "First", UnitAmount: 1, ImageIDs: f.uploadImages(t, 1)})
	second := f.createProduct(t, CreateProductInput{Name: "Second", UnitAmount: 2})

	list, err := f.svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Empty(t, list[0].Images)
	assert.Equal(t, first.ID, list[1].ID)
	require.Len(t, list[1].Images, 1)
	assert.NotEmpty(t, list[1].Images[0].URL)
}

func TestWorks(t *testing.T) {
	f := newFixture(t)
	up, err := f.svc.CreateWorkImage(context.Background(), ptr("study.png"))
	require.NoError(t, err)

	w, err := f.svc.CreateWork(context.Background(), CreateWorkInput{
		Title:    "Study in Grey",
		Year:     ptr(2019),
		Material: ptr("graphite"),
		ImageIDs: []int64{up.ID},
	})
	require.NoError(t, err)
	require.Len(t, w.Images, 1)
	assert.Equal(t, up.ID, w.Images[0].ID)

	list, err := f.svc.ListWorks(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Study in Grey", list[0].Title)
	require.Len(t, list[0].Images, 1)
	assert.Empty(t, f.pay.Calls())

	_, err = f.svc.CreateWork(context.Background(), CreateWorkInput{Title: ""})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.CreateWork(context.Background(), CreateWorkInput{Title: " " + strings.Repeat("t", maxNameLen+1)})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	trimmed, err := f.svc.CreateWork(context.Background(), CreateWorkInput{Title: "  Nocturne "})
	require.NoError(t, err)
	assert.Equal(t, "Nocturne", trimmed.Title)
}
