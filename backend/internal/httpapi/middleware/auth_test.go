package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"sync-service/backend/internal/identity"
)

type stubVerifier map[string]error

func (s stubVerifier) Verify(ctx context.Context, token string) (*identity.Identity, error) {
	if err, ok := s[token]; ok {
		return nil, err
	}
	return &identity.Identity{UserID: 11, Username: "carol", Type: "access"}, nil
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v := stubVerifier{
		"expired": identity.ErrUnauthorized,
		"down":    errors.Join(identity.ErrUpstream, errors.New("dial tcp: refused")),
	}
	r.GET("/me", AuthMiddleware(v), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.GetUint64("userId"), "username": c.GetString("username")})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		status int
		code   string
	}{
		{name: "bearer", header: "Bearer good", status: 200},
		{name: "lowercase prefix", header: "bearer good", status: 200},
		{name: "query token", query: "?token=good", status: 200},
		{name: "missing", status: 401, code: "UNAUTHENTICATED"},
		{name: "basic auth", header: "Basic Zm9vOmJhcg==", status: 401, code: "UNAUTHENTICATED"},
		{name: "invalid", header: "Bearer expired", status: 401, code: "UNAUTHENTICATED"},
		{name: "upstream down", header: "Bearer down", status: 502, code: "AUTH_UPSTREAM_ERROR"},
	}
	r := newRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if tt.status == 200 {
				if body["userId"] != float64(11) || body["username"] != "carol" {
					t.Fatalf("body = %v", body)
				}
				return
			}
			if body["code"] != tt.code {
				t.Fatalf("code = %v, want %s", body["code"], tt.code)
			}
		})
	}
}
