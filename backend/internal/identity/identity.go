package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream 认证服务不可用，和 token 无效要区分开
	ErrUpstream = errors.New("auth upstream error")
)

type Identity struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
	Type     string `json:"typ"`
	// token 的过期时间，缓存不能比它活得更久
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
}

// Verifier 校验 bearer token，失败返回 ErrUnauthorized
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
