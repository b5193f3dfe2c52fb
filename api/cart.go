// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// CartClient talks to the cart service. Every call carries the current
// bearer token from tokenFn; an empty token is sent as no Authorization
// header and the server answers 401.
type CartClient struct {
	c       *Client
	tokenFn func() string
}

func NewCartClient(addr string, log logrus.FieldLogger, tokenFn func() string) *CartClient {
	return &CartClient{c: newClient(addr, log), tokenFn: tokenFn}
}

type cartMutation struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Get fetches the cart. forceRefresh asks the backend to bypass its cache.
func (cc *CartClient) Get(ctx context.Context, forceRefresh bool) (*CartResponse, error) {
	path := "/api/cart"
	if forceRefresh {
		path += "?refresh=true"
	}
	var out CartResponse
	if err := cc.c.call(ctx, http.MethodGet, path, cc.tokenFn(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Add puts quantity units of a product in the cart. The price is sent to
// satisfy backend validation; the server recomputes the authoritative price.
func (cc *CartClient) Add(ctx context.Context, productID string, quantity int, price float64) (*OpResult, error) {
	var out OpResult
	in := cartMutation{ProductID: productID, Quantity: quantity, Price: price}
	if err := cc.c.call(ctx, http.MethodPost, "/api/cart", cc.tokenFn(), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sets the quantity of an existing cart line.
func (cc *CartClient) Update(ctx context.Context, productID string, quantity int, price float64) (*OpResult, error) {
	var out OpResult
	in := cartMutation{ProductID: productID, Quantity: quantity, Price: price}
	path := fmt.Sprintf("/api/cart/%s", url.PathEscape(productID))
	if err := cc.c.call(ctx, http.MethodPut, path, cc.tokenFn(), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes a cart line.
func (cc *CartClient) Remove(ctx context.Context, productID string) (*OpResult, error) {
	var out OpResult
	path := fmt.Sprintf("/api/cart/%s", url.PathEscape(productID))
	if err := cc.c.call(ctx, http.MethodDelete, path, cc.tokenFn(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Clear empties the whole cart.
func (cc *CartClient) Clear(ctx context.Context) (*OpResult, error) {
	var out OpResult
	if err := cc.c.call(ctx, http.MethodDelete, "/api/cart", cc.tokenFn(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
