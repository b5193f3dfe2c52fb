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

// Package session owns the authenticated-user identity, derived from the
// bearer token in client storage. The state machine has exactly two states:
// unauthenticated and authenticated. It re-derives from storage on every
// process start; there is no other way in or out of the authenticated state
// than a decodable token.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mehulsingh1010/healthcare/api"
	"github.com/Mehulsingh1010/healthcare/nav"
	"github.com/Mehulsingh1010/healthcare/notify"
	"github.com/Mehulsingh1010/healthcare/storage"
)

const (
	// How often the expiry watcher looks at the stored token.
	checkInterval = 5 * time.Minute
	// How long the near-expiry warning toast stays up.
	expiryWarningDuration = 10 * time.Second
)

// User is the authenticated identity derived from the stored bearer token.
type User struct {
	ID    string
	Email string
	Role  string
	Token string
	Name  string
}

// LoginResult is what Login hands back to the UI.
type LoginResult struct {
	Success bool
	Error   string
}

// Manager owns the session state. Construct one per process and inject it;
// the persisted token in storage is the durable copy.
type Manager struct {
	store    storage.Store
	auth     *api.AuthClient
	notifier notify.Notifier
	router   nav.Router
	log      logrus.FieldLogger

	mu   sync.Mutex
	user *User

	checkInFlight atomic.Bool

	subMu sync.Mutex
	subs  []func(authenticated bool)
}

func NewManager(store storage.Store, auth *api.AuthClient, notifier notify.Notifier, router nav.Router, log logrus.FieldLogger) *Manager {
	return &Manager{
		store:    store,
		auth:     auth,
		notifier: notifier,
		router:   router,
		log:      log,
	}
}

// IsAuthenticated reports whether a user is currently derived from the token.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil
}

// CurrentUser returns a copy of the current user, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	cp := *m.user
	return &cp
}

// OnAuthSettled registers fn to run on every transition between the
// authenticated and unauthenticated states. Subscribers run synchronously on
// the goroutine that caused the transition.
func (m *Manager) OnAuthSettled(fn func(authenticated bool)) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subs = append(m.subs, fn)
}

// ValidateToken re-derives the session from the persisted token. It fails
// closed: a missing, malformed or expired token clears the user. Concurrent
// invocations collapse to a single check; a caller arriving while one is in
// flight gets the cached authentication state instead of a second check.
func (m *Manager) ValidateToken() bool {
	if !m.checkInFlight.CompareAndSwap(false, true) {
		return m.IsAuthenticated()
	}
	defer m.checkInFlight.Store(false)

	token, ok := m.store.Get(storage.KeyToken)
	if !ok || token == "" {
		m.setUser(nil)
		return false
	}
	if !api.IsTokenValid(token) {
		m.discardToken()
		return false
	}
	profile := api.ProfileFromToken(token)
	if profile == nil {
		m.discardToken()
		return false
	}
	m.setUser(&User{
		ID:    profile.ID,
		Email: profile.Email,
		Role:  profile.Role,
		Name:  profile.Name,
		Token: token,
	})
	return true
}

// Login authenticates against the auth service. The token is persisted only
// if it decodes into a user: a nominally successful login whose token cannot
// be decoded is discarded and reported as a failure.
func (m *Manager) Login(ctx context.Context, email, password string, redirectAfterCart bool) LoginResult {
	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.log.WithField("error", err).Warn("login failed")
		return LoginResult{Success: false, Error: classifyLoginError(err)}
	}
	if !resp.Success || resp.Data == nil || resp.Data.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "Login failed. Please check your email and password."
		}
		return LoginResult{Success: false, Error: msg}
	}

	token := resp.Data.Token
	// Store the token first so it is immediately visible to the cart loader.
	if err := m.store.Set(storage.KeyToken, token); err != nil {
		m.log.WithField("error", err).Error("failed to persist token")
		return LoginResult{Success: false, Error: "Could not persist session. Please try again."}
	}

	profile := api.ProfileFromToken(token)
	if profile == nil {
		m.log.Error("login succeeded but token claims could not be decoded")
		m.discardToken()
		return LoginResult{
			Success: false,
			Error:   "Authentication error: invalid token data. Please try again or contact support.",
		}
	}

	flipped, _ := m.swapUser(&User{
		ID:    profile.ID,
		Email: profile.Email,
		Role:  profile.Role,
		Name:  profile.Name,
		Token: token,
	})
	m.log.WithField("email", profile.Email).Info("user logged in successfully")
	// The landing page must be decided while the pending cart intent is still
	// in storage; the cart manager consumes it from the settle event.
	m.RedirectBasedOnRole(profile.Role, redirectAfterCart)
	if flipped {
		m.settle(true)
	}
	return LoginResult{Success: true}
}

func classifyLoginError(err error) string {
	switch {
	case api.IsUnauthorized(err):
		return "Invalid email or password. Please try again."
	case api.IsNotFound(err):
		return "User not found. Please check your email or register."
	case api.IsNoResponse(err):
		return "Server not responding. Please try again later."
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "An error occurred during login"
}

// Logout clears the token, any pending cart intent and the cached user, then
// sends the user back to sign-in.
func (m *Manager) Logout() {
	if err := m.store.Delete(storage.KeyToken); err != nil {
		m.log.WithField("error", err).Warn("failed to clear stored token")
	}
	if err := m.store.Delete(storage.KeyPendingAdd); err != nil {
		m.log.WithField("error", err).Warn("failed to clear pending cart intent")
	}
	m.setUser(nil)
	m.notifier.Success("You have been logged out successfully")
	m.router.Push("/auth/signin")
}

// Invalidate drops the stored token and cached user after the backend
// rejected it, without the logout toast or redirect.
func (m *Manager) Invalidate() {
	m.discardToken()
}

// CheckPermission reports whether the current user holds one of the required
// roles. The "user" and "customer" roles are interchangeable in both
// directions.
func (m *Manager) CheckPermission(requiredRoles []string) bool {
	m.mu.Lock()
	user := m.user
	m.mu.Unlock()
	if user == nil || user.Role == "" {
		return false
	}
	for _, role := range requiredRoles {
		if role == user.Role {
			return true
		}
		if role == "user" && user.Role == "customer" {
			return true
		}
		if role == "customer" && user.Role == "user" {
			return true
		}
	}
	return false
}

// RedirectBasedOnRole sends the user to their landing page. Plain users with
// a pending add-to-cart intent land on the cart page instead of home; the
// intent itself stays in storage for the cart manager to consume.
func (m *Manager) RedirectBasedOnRole(role string, redirectAfterCart bool) {
	switch role {
	case "admin":
		m.router.Push("/admin")
	case "dealer":
		m.router.Push("/dealer/dashboard")
	case "user", "customer":
		if redirectAfterCart {
			if _, ok := m.store.Get(storage.KeyPendingAdd); ok {
				m.router.Push("/cart-details")
				return
			}
		}
		m.router.Push("/")
	default:
		m.log.WithField("role", role).Warn("unknown role, redirecting to home page")
		m.router.Push("/")
	}
}

// StartExpiryWatcher warns the user when the stored token is close to
// expiry. Advisory only: the session is never cleared from here.
func (m *Manager) StartExpiryWatcher(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				token, ok := m.store.Get(storage.KeyToken)
				if ok && token != "" && api.IsTokenExpiringSoon(token) {
					m.notifier.Warning("Your session is about to expire. Please login again.", expiryWarningDuration)
				}
			}
		}
	}()
}

func (m *Manager) discardToken() {
	if err := m.store.Delete(storage.KeyToken); err != nil {
		m.log.WithField("error", err).Warn("failed to clear stored token")
	}
	m.setUser(nil)
}

// setUser replaces the cached identity only when it actually changed and
// fires the auth-settled subscribers when the authenticated state flips.
func (m *Manager) setUser(u *User) {
	if flipped, now := m.swapUser(u); flipped {
		m.settle(now)
	}
}

// swapUser stores the identity and reports whether the authenticated state
// flipped, leaving the settle event to the caller.
func (m *Manager) swapUser(u *User) (flipped, authenticated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u != nil && m.user != nil && *u == *m.user {
		return false, true
	}
	was := m.user != nil
	m.user = u
	now := u != nil
	return was != now, now
}

func (m *Manager) settle(authenticated bool) {
	m.subMu.Lock()
	subs := append([]func(bool){}, m.subs...)
	m.subMu.Unlock()
	for _, fn := range subs {
		fn(authenticated)
	}
}
