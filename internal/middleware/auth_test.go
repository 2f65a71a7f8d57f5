package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrainer/trainer-backend/internal/response"
	"github.com/aitrainer/trainer-backend/internal/service"
)

type fakeAuth struct {
	tokens     map[string]*service.Claims
	expired    string
	sessionErr error
}

func (f *fakeAuth) ValidateToken(tokenStr string) (*service.Claims, error) {
	if tokenStr == f.expired {
		return nil, fmt.Errorf("parse: %w", jwt.ErrTokenExpired)
	}
	if c, ok := f.tokens[tokenStr]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

func (f *fakeAuth) ValidateSession(context.Context, string, string) error {
	return f.sessionErr
}

func newAuthEngine(auth *fakeAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetClaims(c).UserID})
	}
	r.GET("/api", RequireJWT(auth), CheckSingleDeviceSession(auth), ok)
	r.GET("/ws", RequireWSAuth(auth), ok)
	return r
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func claimsFor(userID string) *service.Claims {
	c := &service.Claims{UserID: userID}
	c.ID = "jti-" + userID
	return c
}

func TestRequireJWT(t *testing.T) {
	auth := &fakeAuth{tokens: map[string]*service.Claims{"good": claimsFor("u1")}, expired: "old"}
	r := newAuthEngine(auth)

	cases := []struct {
		name   string
		header string
		status int
		code   response.ErrCode
	}{
		{"missing header", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, response.ErrTokenRequired},
		{"expired", "Bearer old", http.StatusUnauthorized, response.ErrTokenExpired},
		{"garbage", "Bearer nope", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"valid", "bearer good", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, errCode(t, w))
			}
		})
	}
}

func TestRequireWSAuthReadsQueryToken(t *testing.T) {
	auth := &fakeAuth{tokens: map[string]*service.Claims{"good": claimsFor("u9")}}
	r := newAuthEngine(auth)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token=good", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u9")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "headers are not read on the socket route")
}

func TestCheckSingleDeviceSession(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"active", nil, http.StatusOK, ""},
		{"replaced by newer sign-in", service.ErrSessionInvalidated, http.StatusUnauthorized, response.ErrSessionInvalidated},
		{"signed out", service.ErrNoSession, http.StatusUnauthorized, response.ErrSessionInvalidated},
		{"store down", errors.New("redis: connection refused"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &fakeAuth{tokens: map[string]*service.Claims{"good": claimsFor("u1")}, sessionErr: tc.err}
			r := newAuthEngine(auth)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api", nil)
			req.Header.Set("Authorization", "Bearer good")
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, errCode(t, w))
			}
		})
	}
}
