package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeParamBuilders(t *testing.T) {
	create := productCreateParams(ProductParams{
		Name:     "Print",
		Active:   true,
		Metadata: map[string]string{"edition": "1/10"},
	})
	assert.Equal(t, "Print", *create.Name)
	assert.True(t, *create.Active)
	assert.Nil(t, create.Description)
	assert.Equal(t, "1/10", create.Metadata["edition"])

	price := priceCreateParams(PriceParams{ProductID: "prod_1", UnitAmount: 2500, Currency: "CAD", Active: true})
	assert.Equal(t, "prod_1", *price.Product)
	assert.Equal(t, int64(2500), *price.UnitAmount)
	assert.Equal(t, "cad", *price.Currency)

	images := productImagesParams([]string{"https://cdn/a.jpg", "https://cdn/b.jpg"})
	require.Len(t, images.Images, 2)
	assert.Equal(t, "https://cdn/b.jpg", *images.Images[1])
	assert.Nil(t, productImagesParams(nil).Images)

	co := checkoutParams(CheckoutParams{
		Items:            []LineItem{{PriceID: "price_1", Quantity: 2}},
		SuccessURL:       "https://shop/ok",
		CancelURL:        "https://shop/cancel",
		AllowedCountries: []string{"CA", "US"},
	})
	assert.Equal(t, "payment", *co.Mode)
	require.Len(t, co.LineItems, 1)
	assert.Equal(t, "price_1", *co.LineItems[0].Price)
	assert.Equal(t, int64(2), *co.LineItems[0].Quantity)
	require.NotNil(t, co.ShippingAddressCollection)
	assert.Len(t, co.ShippingAddressCollection.AllowedCountries, 2)
	assert.Equal(t, "https://shop/ok", *co.SuccessURL)
}

func TestNewStripeRequiresKey(t *testing.T) {
	_, err := NewStripe("  ")
	assert.Error(t, err)
	s, err := NewStripe("sk_test_123")
	require.NoError(t, err)
	assert.NotNil(t, s.client)
}

func TestMemoryRecordsCallsAndState(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	prodID, err := m.CreateProduct(ctx, ProductParams{Name: "Print", Active: true})
	require.NoError(t, err)
	priceID, err := m.CreatePrice(ctx, PriceParams{ProductID: prodID, UnitAmount: 100, Currency: "cad", Active: true})
	require.NoError(t, err)
	require.NoError(t, m.SetProductImages(ctx, prodID, []string{"u1"}))
	require.NoError(t, m.DeactivatePrice(ctx, priceID))
	require.NoError(t, m.DeactivateProduct(ctx, prodID))

	prod, ok := m.Product(prodID)
	require.True(t, ok)
	assert.False(t, prod.Active)
	assert.Equal(t, []string{"u1"}, prod.Images)
	price, ok := m.Price(priceID)
	require.True(t, ok)
	assert.False(t, price.Active)

	assert.Equal(t, []Call{
		{Op: OpCreateProduct},
		{Op: OpCreatePrice, ID: prodID},
		{Op: OpSetProductImages, ID: prodID},
		{Op: OpDeactivatePrice, ID: priceID},
		{Op: OpDeactivateProduct, ID: prodID},
	}, m.Calls())
}

func TestMemoryFailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("provider down")
	m.FailOn(OpCreateProduct, boom)

	_, err := m.CreateProduct(ctx, ProductParams{Name: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.Count(OpCreateProduct))

	m.FailOn(OpCreateProduct, nil)
	_, err = m.CreateProduct(ctx, ProductParams{Name: "x"})
	assert.NoError(t, err)

	sess, err := m.CreateCheckoutSession(ctx, CheckoutParams{})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.URL)
}
