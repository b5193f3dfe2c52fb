package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   []byte
}

func newCartTestServer(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*CartClient, *[]recordedRequest, func()) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		respond(w, r)
	}))
	client := NewCartClient(hostOf(srv), discardLogger(), func() string { return "tok-abc" })
	return client, &requests, srv.Close
}

func TestCartGet(t *testing.T) {
	client, requests, done := newCartTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CartResponse{Items: []CartItemResponse{
			{ProductID: "p1", Name: "Zinc", Price: 4.5, Quantity: 2},
		}})
	})
	defer done()

	resp, err := client.Get(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "p1", resp.Items[0].ProductID)

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/api/cart", got.path)
	assert.Empty(t, got.query)
	assert.Equal(t, "Bearer tok-abc", got.auth)
}

func TestCartGetForceRefresh(t *testing.T) {
	client, requests, done := newCartTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CartResponse{})
	})
	defer done()

	_, err := client.Get(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, *requests, 1)
	assert.Equal(t, "refresh=true", (*requests)[0].query)
}

func TestCartAdd(t *testing.T) {
	client, requests, done := newCartTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OpResult{Success: true, Message: "Item added to cart"})
	})
	defer done()

	result, err := client.Add(context.Background(), "p1", 2, 4.5)
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/cart", got.path)

	var body cartMutation
	require.NoError(t, json.Unmarshal(got.body, &body))
	assert.Equal(t, cartMutation{ProductID: "p1", Quantity: 2, Price: 4.5}, body)
}

func TestCartUpdateAndRemovePaths(t *testing.T) {
	client, requests, done := newCartTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OpResult{Success: true})
	})
	defer done()

	_, err := client.Update(context.Background(), "p1", 5, 4.5)
	require.NoError(t, err)
	_, err = client.Remove(context.Background(), "p2")
	require.NoError(t, err)
	_, err = client.Clear(context.Background())
	require.NoError(t, err)

	require.Len(t, *requests, 3)
	assert.Equal(t, http.MethodPut, (*requests)[0].method)
	assert.Equal(t, "/api/cart/p1", (*requests)[0].path)
	assert.Equal(t, http.MethodDelete, (*requests)[1].method)
	assert.Equal(t, "/api/cart/p2", (*requests)[1].path)
	assert.Equal(t, http.MethodDelete, (*requests)[2].method)
	assert.Equal(t, "/api/cart", (*requests)[2].path)
}

func TestCartErrorMapping(t *testing.T) {
	client, _, done := newCartTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "authentication required"})
	})
	defer done()

	_, err := client.Get(context.Background(), false)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "authentication required", apiErr.Message)
}
