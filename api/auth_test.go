package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestProfileFromToken(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"id":    "u1",
		"email": "asha@example.com",
		"role":  "customer",
		"name":  "Asha",
	})
	p := ProfileFromToken(token)
	require.NotNil(t, p)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "asha@example.com", p.Email)
	assert.Equal(t, "customer", p.Role)
	assert.Equal(t, "Asha", p.Name)
}

func TestProfileFromTokenSubjectFallback(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub":   "u2",
		"email": "sub@example.com",
		"role":  "user",
	})
	p := ProfileFromToken(token)
	require.NotNil(t, p)
	assert.Equal(t, "u2", p.ID)
}

func TestProfileFromTokenDefaultsRole(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"id":    "u3",
		"email": "norole@example.com",
	})
	p := ProfileFromToken(token)
	require.NotNil(t, p)
	assert.Equal(t, "user", p.Role)
}

func TestProfileFromTokenRejectsMissingClaims(t *testing.T) {
	assert.Nil(t, ProfileFromToken("not-a-token"))
	assert.Nil(t, ProfileFromToken(""))

	noEmail := signedToken(t, jwt.MapClaims{"id": "u4", "role": "user"})
	assert.Nil(t, ProfileFromToken(noEmail))

	noID := signedToken(t, jwt.MapClaims{"email": "noid@example.com"})
	assert.Nil(t, ProfileFromToken(noID))
}

func TestIsTokenValid(t *testing.T) {
	valid := signedToken(t, jwt.MapClaims{
		"id": "u1", "email": "a@b.c",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signedToken(t, jwt.MapClaims{
		"id": "u1", "email": "a@b.c",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	noExpiry := signedToken(t, jwt.MapClaims{"id": "u1", "email": "a@b.c"})

	assert.True(t, IsTokenValid(valid))
	assert.False(t, IsTokenValid(expired))
	assert.True(t, IsTokenValid(noExpiry))
	assert.False(t, IsTokenValid("garbage"))
	assert.False(t, IsTokenValid(""))
}

func TestIsTokenExpiringSoon(t *testing.T) {
	soon := signedToken(t, jwt.MapClaims{
		"id": "u1", "email": "a@b.c",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})
	later := signedToken(t, jwt.MapClaims{
		"id": "u1", "email": "a@b.c",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noExpiry := signedToken(t, jwt.MapClaims{"id": "u1", "email": "a@b.c"})

	assert.True(t, IsTokenExpiringSoon(soon))
	assert.False(t, IsTokenExpiringSoon(later))
	assert.False(t, IsTokenExpiringSoon(noExpiry))
	assert.False(t, IsTokenExpiringSoon("garbage"))
}

func TestLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "asha@example.com", in.Email)
		assert.Equal(t, "secret", in.Password)
		json.NewEncoder(w).Encode(LoginResponse{Success: true, Data: &TokenData{Token: "tok-123"}})
	}))
	defer srv.Close()

	client := NewAuthClient(hostOf(srv), discardLogger())
	resp, err := client.Login(context.Background(), "asha@example.com", "secret")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "tok-123", resp.Data.Token)
}

func TestLoginUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
	}))
	defer srv.Close()

	client := NewAuthClient(hostOf(srv), discardLogger())
	_, err := client.Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsNotFound(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid credentials", apiErr.Message)
}

func TestLoginNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no such user"})
	}))
	defer srv.Close()

	client := NewAuthClient(hostOf(srv), discardLogger())
	_, err := client.Login(context.Background(), "ghost@b.c", "pw")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "no such user", apiErr.Message)
}

func TestLoginNoResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := hostOf(srv)
	srv.Close()

	client := NewAuthClient(addr, discardLogger())
	_, err := client.Login(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	assert.True(t, IsNoResponse(err))
	assert.False(t, IsUnauthorized(err))
}
