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
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// How close to expiry a token has to be before the session watcher starts
// warning. Larger than the watcher interval so at least one warning fires.
const expiryWarningWindow = 10 * time.Minute

// AuthClient talks to the auth service.
type AuthClient struct {
	c *Client
}

func NewAuthClient(addr string, log logrus.FieldLogger) *AuthClient {
	return &AuthClient{c: newClient(addr, log)}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenData is the payload of a successful login reply.
type TokenData struct {
	Token string `json:"token"`
}

// LoginResponse is the auth service's login reply.
type LoginResponse struct {
	Success bool       `json:"success"`
	Data    *TokenData `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Login calls the auth service POST /api/auth/login.
func (a *AuthClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := a.c.call(ctx, http.MethodPost, "/api/auth/login", "", loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile is the identity embedded in a bearer token.
type Profile struct {
	ID    string
	Email string
	Role  string
	Name  string
}

type tokenClaims struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

var tokenParser = jwt.NewParser()

func parseToken(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	if _, _, err := tokenParser.ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ProfileFromToken decodes the identity claims out of a bearer token without
// verifying the signature; the backend is the verifier, the client only needs
// the embedded claims. Returns nil when the token is structurally invalid or
// missing the identity claims.
func ProfileFromToken(token string) *Profile {
	claims, err := parseToken(token)
	if err != nil {
		return nil
	}
	id := claims.ID
	if id == "" {
		id = claims.UserID
	}
	if id == "" {
		id = claims.Subject
	}
	if id == "" || claims.Email == "" {
		return nil
	}
	role := claims.Role
	if role == "" {
		role = "user"
	}
	return &Profile{ID: id, Email: claims.Email, Role: role, Name: claims.Name}
}

// IsTokenValid reports whether the token parses and has not expired. A token
// without an exp claim never expires client-side.
func IsTokenValid(token string) bool {
	claims, err := parseToken(token)
	if err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.After(time.Now())
}

// IsTokenExpiringSoon reports whether the token expires within the warning
// window. Malformed or non-expiring tokens never warn.
func IsTokenExpiringSoon(token string) bool {
	claims, err := parseToken(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < expiryWarningWindow
}
