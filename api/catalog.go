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

// CatalogClient talks to the product catalog service.
type CatalogClient struct {
	c *Client
}

func NewCatalogClient(addr string, log logrus.FieldLogger) *CatalogClient {
	return &CatalogClient{c: newClient(addr, log)}
}

// Products lists the whole catalog.
func (pc *CatalogClient) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := pc.c.call(ctx, http.MethodGet, "/api/products", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Product fetches a single catalog entry by id.
func (pc *CatalogClient) Product(ctx context.Context, id string) (*Product, error) {
	var out Product
	path := fmt.Sprintf("/api/products/%s", url.PathEscape(id))
	if err := pc.c.call(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a catalog text search.
func (pc *CatalogClient) Search(ctx context.Context, query string) ([]Product, error) {
	var out []Product
	path := fmt.Sprintf("/api/products/search?q=%s", url.QueryEscape(query))
	if err := pc.c.call(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
