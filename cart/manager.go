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

// Package cart owns the shopping-cart line items, synchronized against the
// remote cart service and gated by the session's authentication state.
//
// Every mutating operation is optimistic: the change is applied locally,
// the remote call is issued, and on failure the pre-call snapshot is
// restored before the error is reported. Rollback is the only recovery;
// nothing is retried. Two independent single-flight guards (one for loads,
// one for mutations) reject, rather than queue, concurrent operations.
package cart

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Mehulsingh1010/healthcare/api"
	"github.com/Mehulsingh1010/healthcare/nav"
	"github.com/Mehulsingh1010/healthcare/notify"
	"github.com/Mehulsingh1010/healthcare/storage"
)

// OpInProgressMessage is surfaced when a second operation arrives while one
// is still in flight.
const OpInProgressMessage = "Please wait, another operation is in progress"

const itemNotFoundMessage = "Item not found in cart"

// AuthState is the slice of the session manager the cart depends on.
type AuthState interface {
	IsAuthenticated() bool
	// Invalidate drops the stored token after the backend rejected it.
	Invalidate()
	// OnAuthSettled registers a callback fired on every transition between
	// the authenticated and unauthenticated states.
	OnAuthSettled(func(authenticated bool))
}

// pendingItem is the minimal product projection persisted across the login
// boundary when an add-to-cart is attempted while signed out.
type pendingItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// Manager owns the cart state. Construct one per process and inject it.
type Manager struct {
	client   *api.CartClient
	store    storage.Store
	auth     AuthState
	notifier notify.Notifier
	router   nav.Router
	log      logrus.FieldLogger

	mu    sync.Mutex
	items []api.CartItem

	loading   atomic.Bool
	pendingOp atomic.Bool
}

// NewManager wires a cart manager to its collaborators and subscribes it to
// the session's auth-settled event: on login the cart is loaded and any
// pending intent consumed, on logout the local state is dropped.
func NewManager(client *api.CartClient, store storage.Store, auth AuthState, notifier notify.Notifier, router nav.Router, log logrus.FieldLogger) *Manager {
	m := &Manager{
		client:   client,
		store:    store,
		auth:     auth,
		notifier: notifier,
		router:   router,
		log:      log,
	}
	auth.OnAuthSettled(m.onAuthSettled)
	return m
}

func (m *Manager) onAuthSettled(authenticated bool) {
	if !authenticated {
		m.mu.Lock()
		m.items = nil
		m.mu.Unlock()
		return
	}
	ctx := context.Background()
	if err := m.Load(ctx, false); err != nil {
		m.log.WithField("error", err).Warn("initial cart load failed")
	}
	m.consumePendingIntent(ctx)
}

// Items returns a copy of the current cart lines.
func (m *Manager) Items() []api.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.items)
}

// TotalItems is the sum of all line quantities, recomputed on every call.
func (m *Manager) TotalItems() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, item := range m.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is the sum of price times quantity, recomputed on every call.
func (m *Manager) TotalPrice() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0.0
	for _, item := range m.items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// Load synchronizes local state from the cart service. It is a no-op while
// another load or mutation is in flight. When signed out the cart is forced
// empty without a remote call. Local state is only replaced when the
// normalized result actually differs from what is already held.
func (m *Manager) Load(ctx context.Context, forceRefresh bool) error {
	if m.pendingOp.Load() {
		return nil
	}
	if !m.loading.CompareAndSwap(false, true) {
		return nil
	}
	defer m.loading.Store(false)

	if !m.auth.IsAuthenticated() {
		m.mu.Lock()
		m.items = nil
		m.mu.Unlock()
		return nil
	}

	resp, err := m.client.Get(ctx, forceRefresh)
	if err != nil {
		m.log.WithField("error", err).Error("failed to load cart")
		if api.IsUnauthorized(err) {
			m.mu.Lock()
			m.items = nil
			m.mu.Unlock()
			m.auth.Invalidate()
		}
		return err
	}

	items := make([]api.CartItem, 0, len(resp.Items))
	for _, raw := range resp.Items {
		items = append(items, api.NormalizeCartItem(raw))
	}

	m.mu.Lock()
	if !reflect.DeepEqual(items, m.items) {
		m.items = items
	}
	m.mu.Unlock()
	return nil
}

// Add puts one unit of product in the cart. A signed-out call does not touch
// the cart at all: the product is persisted as a pending intent and the user
// is sent to sign-in. On remote success the cart is reloaded from the server
// as reconciliation; on failure the pre-call snapshot is restored.
func (m *Manager) Add(ctx context.Context, product api.Product) error {
	if !m.auth.IsAuthenticated() {
		m.savePendingIntent(product)
		m.notifier.Error("Please login to add items to cart")
		m.router.Push("/auth/signin?redirect=cart")
		return nil
	}
	if !m.beginMutation() {
		m.notifier.Error(OpInProgressMessage)
		return errors.New(OpInProgressMessage)
	}
	defer m.endMutation()

	if product.ID == "" {
		m.notifier.Error("Invalid product data")
		return errors.New("invalid product data")
	}

	m.mu.Lock()
	original := snapshot(m.items)
	if idx := indexOf(m.items, product.ID); idx >= 0 {
		m.items[idx].Quantity++
	} else {
		m.items = append(m.items, itemFromProduct(product))
	}
	m.mu.Unlock()

	result, err := m.client.Add(ctx, product.ID, 1, product.Price)
	if err != nil {
		m.restore(original)
		m.log.WithField("error", err).Error("failed to add item to cart")
		if api.IsUnauthorized(err) {
			m.auth.Invalidate()
			m.router.Push("/auth/signin?redirect=cart")
		}
		m.notifier.Error("Failed to add item to cart")
		return err
	}
	if !result.Success {
		m.restore(original)
		if isAuthMessage(result.Message) {
			m.router.Push("/auth/signin?redirect=cart")
		}
		msg := result.Message
		if msg == "" {
			msg = "Failed to add item to cart"
		}
		m.notifier.Error(msg)
		return errors.New(msg)
	}

	// The server owns the authoritative cart; release the guard and
	// reconcile with a forced reload.
	m.endMutation()
	if err := m.Load(ctx, true); err != nil {
		m.log.WithField("error", err).Warn("cart reload after add failed")
	}
	m.notifier.Success("Item added to cart")
	return nil
}

// Remove deletes a cart line by its canonical product id. On remote success
// the optimistic removal stands without a reload: refreshing immediately
// after the delete races the backend and can resurrect the removed line.
func (m *Manager) Remove(ctx context.Context, productID string) (bool, string) {
	if !m.beginMutation() {
		m.notifier.Error(OpInProgressMessage)
		return false, OpInProgressMessage
	}
	defer m.endMutation()

	m.mu.Lock()
	original := snapshot(m.items)
	idx := indexOf(m.items, productID)
	if idx < 0 {
		m.mu.Unlock()
		m.log.WithField("productId", productID).Error("item not found in cart")
		m.notifier.Error(itemNotFoundMessage)
		return false, itemNotFoundMessage
	}
	m.items = append(m.items[:idx:idx], m.items[idx+1:]...)
	m.mu.Unlock()

	result, err := m.client.Remove(ctx, productID)
	if err != nil {
		m.restore(original)
		m.log.WithField("error", err).Error("failed to remove item from cart")
		m.notifier.Error("Failed to remove item from cart")
		return false, "Failed to remove item from cart"
	}
	if !result.Success {
		m.restore(original)
		msg := result.Message
		if msg == "" {
			msg = "Failed to remove item from cart"
		}
		m.notifier.Error(msg)
		return false, msg
	}

	m.notifier.Success("Item removed from cart")
	return true, "Item removed from cart"
}

// UpdateQuantity sets the quantity of an existing line. Quantities below one
// are rejected locally without a remote call. The server recomputes the
// authoritative price; the optimistic state stands on success.
func (m *Manager) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		m.log.WithField("quantity", quantity).Error("invalid quantity value")
		return nil
	}
	if !m.auth.IsAuthenticated() {
		m.notifier.Error("Please login to manage your cart")
		m.router.Push("/auth/signin")
		return nil
	}
	if !m.beginMutation() {
		m.notifier.Error(OpInProgressMessage)
		return errors.New(OpInProgressMessage)
	}
	defer m.endMutation()

	m.mu.Lock()
	original := snapshot(m.items)
	idx := indexOf(m.items, productID)
	if idx < 0 {
		m.mu.Unlock()
		m.log.WithField("productId", productID).Error("item not found in cart")
		m.notifier.Error(itemNotFoundMessage)
		return errors.New(itemNotFoundMessage)
	}
	price := m.items[idx].Price
	m.items[idx].Quantity = quantity
	m.mu.Unlock()

	result, err := m.client.Update(ctx, productID, quantity, price)
	if err != nil {
		m.restore(original)
		m.log.WithField("error", err).Error("failed to update quantity")
		if api.IsUnauthorized(err) {
			m.auth.Invalidate()
			m.router.Push("/auth/signin")
		}
		m.notifier.Error("Failed to update quantity")
		return err
	}
	if !result.Success {
		m.restore(original)
		if isAuthMessage(result.Message) {
			m.router.Push("/auth/signin")
		}
		msg := result.Message
		if msg == "" {
			msg = "Failed to update cart"
		}
		m.notifier.Error(msg)
		return errors.New(msg)
	}

	msg := result.Message
	if msg == "" {
		msg = "Cart updated"
	}
	m.notifier.Success(msg)
	return nil
}

// Clear empties the cart server-side first. Unlike the other mutations it is
// not optimistic: local state is only dropped on a confirmed remote success,
// because a failed clear leaving a falsely empty cart is worse than a failed
// add leaving a stale line.
func (m *Manager) Clear(ctx context.Context) error {
	if !m.auth.IsAuthenticated() {
		m.notifier.Error("Please login to manage your cart")
		m.router.Push("/auth/signin")
		return nil
	}
	if !m.beginMutation() {
		m.notifier.Error(OpInProgressMessage)
		return errors.New(OpInProgressMessage)
	}
	defer m.endMutation()

	result, err := m.client.Clear(ctx)
	if err != nil {
		m.log.WithField("error", err).Error("failed to clear cart")
		if api.IsUnauthorized(err) {
			m.auth.Invalidate()
			m.router.Push("/auth/signin")
		}
		m.notifier.Error("Failed to clear cart")
		return err
	}
	if !result.Success {
		if isAuthMessage(result.Message) {
			m.router.Push("/auth/signin")
		}
		msg := result.Message
		if msg == "" {
			msg = "Failed to clear cart"
		}
		m.notifier.Error(msg)
		return errors.New(msg)
	}

	m.mu.Lock()
	m.items = nil
	m.mu.Unlock()
	msg := result.Message
	if msg == "" {
		msg = "Cart cleared"
	}
	m.notifier.Success(msg)
	return nil
}

func (m *Manager) savePendingIntent(p api.Product) {
	item := pendingItem{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image, Quantity: 1}
	if item.Name == "" {
		item.Name = "Product"
	}
	raw, err := json.Marshal(item)
	if err != nil {
		m.log.WithField("error", err).Error("failed to encode pending cart item")
		return
	}
	if err := m.store.Set(storage.KeyPendingAdd, string(raw)); err != nil {
		m.log.WithField("error", err).Error("failed to store pending cart item")
	}
}

// consumePendingIntent applies the add-to-cart the user attempted before
// signing in. The stored intent is deleted before the add is issued so a
// failing add cannot replay it; failure here is logged, never surfaced.
func (m *Manager) consumePendingIntent(ctx context.Context) {
	if m.loading.Load() {
		return
	}
	raw, ok := m.store.Get(storage.KeyPendingAdd)
	if !ok {
		return
	}
	if err := m.store.Delete(storage.KeyPendingAdd); err != nil {
		m.log.WithField("error", err).Warn("failed to clear pending cart item")
	}

	var item pendingItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil || item.ID == "" {
		m.log.Warn("discarding invalid pending cart item")
		return
	}

	product := api.Product{
		ID:          item.ID,
		Name:        item.Name,
		Price:       item.Price,
		Image:       item.Image,
		Benefits:    []string{},
		Ingredients: []string{},
	}
	if product.Name == "" {
		product.Name = "Product"
	}
	if err := m.Add(ctx, product); err != nil {
		m.log.WithField("error", err).Warn("failed to add pending item to cart")
		return
	}
	m.notifier.Success("Previously selected item added to cart")
}

// beginMutation acquires the mutation guard. Both guards have to be clear:
// a concurrent load also blocks mutations.
func (m *Manager) beginMutation() bool {
	if m.loading.Load() {
		return false
	}
	return m.pendingOp.CompareAndSwap(false, true)
}

// endMutation is idempotent so operations that release early to reload can
// still defer it.
func (m *Manager) endMutation() {
	m.pendingOp.Store(false)
}

func (m *Manager) restore(items []api.CartItem) {
	m.mu.Lock()
	m.items = items
	m.mu.Unlock()
}

func snapshot(items []api.CartItem) []api.CartItem {
	cp := make([]api.CartItem, len(items))
	copy(cp, items)
	return cp
}

func indexOf(items []api.CartItem, productID string) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func itemFromProduct(p api.Product) api.CartItem {
	benefits := p.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	ingredients := p.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	return api.CartItem{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		Featured:    p.Featured,
		Rating:      p.Rating,
		StockCount:  p.StockCount,
		Benefits:    benefits,
		Ingredients: ingredients,
		Weight:      p.Weight,
		Quantity:    1,
	}
}

func isAuthMessage(msg string) bool {
	s := strings.ToLower(msg)
	return strings.Contains(s, "authentication") || strings.Contains(s, "login")
}
