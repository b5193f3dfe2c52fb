package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCartItemIdentityOrder(t *testing.T) {
	// product._id wins over productId, which wins over id.
	item := NormalizeCartItem(CartItemResponse{
		ProductID: "flat",
		ID:        "legacy",
		Product:   &ProductRef{MongoID: "nested"},
		Quantity:  2,
	})
	assert.Equal(t, "nested", item.ProductID)

	item = NormalizeCartItem(CartItemResponse{
		ProductID: "flat",
		ID:        "legacy",
		Quantity:  2,
	})
	assert.Equal(t, "flat", item.ProductID)

	item = NormalizeCartItem(CartItemResponse{ID: "legacy", Quantity: 2})
	assert.Equal(t, "legacy", item.ProductID)
}

func TestNormalizeCartItemDefaults(t *testing.T) {
	item := NormalizeCartItem(CartItemResponse{ProductID: "p1"})
	assert.Equal(t, "Product", item.Name)
	assert.Equal(t, 1, item.Quantity)
	assert.NotNil(t, item.Benefits)
	assert.NotNil(t, item.Ingredients)
	assert.Empty(t, item.Benefits)
}

func TestNormalizeCartItemNestedFallbacks(t *testing.T) {
	item := NormalizeCartItem(CartItemResponse{
		ProductID: "p1",
		Product: &ProductRef{
			MongoID: "p1",
			Name:    "Vitamin C",
			Price:   12.5,
			Image:   "/img/vitc.png",
		},
		Quantity: 3,
	})
	assert.Equal(t, "Vitamin C", item.Name)
	assert.Equal(t, 12.5, item.Price)
	assert.Equal(t, "/img/vitc.png", item.Image)
	assert.Equal(t, 3, item.Quantity)

	// Flat fields take precedence over the nested record when both exist.
	item = NormalizeCartItem(CartItemResponse{
		ProductID: "p1",
		Name:      "Flat Name",
		Price:     9.99,
		Product:   &ProductRef{MongoID: "p1", Name: "Nested", Price: 1},
		Quantity:  1,
	})
	assert.Equal(t, "Flat Name", item.Name)
	assert.Equal(t, 9.99, item.Price)
}

func TestNormalizeCartItemQuantityFloor(t *testing.T) {
	assert.Equal(t, 1, NormalizeCartItem(CartItemResponse{ProductID: "p1", Quantity: 0}).Quantity)
	assert.Equal(t, 1, NormalizeCartItem(CartItemResponse{ProductID: "p1", Quantity: -4}).Quantity)
}

func TestFlexIntDecoding(t *testing.T) {
	var resp CartItemResponse
	require.NoError(t, json.Unmarshal([]byte(`{"productId":"p1","quantity":"3"}`), &resp))
	assert.Equal(t, FlexInt(3), resp.Quantity)

	require.NoError(t, json.Unmarshal([]byte(`{"productId":"p1","quantity":7}`), &resp))
	assert.Equal(t, FlexInt(7), resp.Quantity)

	require.NoError(t, json.Unmarshal([]byte(`{"productId":"p1","quantity":2.0}`), &resp))
	assert.Equal(t, FlexInt(2), resp.Quantity)

	require.NoError(t, json.Unmarshal([]byte(`{"productId":"p1","quantity":null}`), &resp))
	assert.Equal(t, FlexInt(0), resp.Quantity)

	assert.Error(t, json.Unmarshal([]byte(`{"quantity":"lots"}`), &resp))
}
