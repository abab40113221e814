package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"sync-service/backend/internal/identity"
)

const (
	// 空值标记，表示 token 已确认无效
	InvalidTokenMarker = "-1"
	InvalidTokenTTL    = time.Minute
)

// CachedVerifier 在 redis 里缓存校验结果，减少对认证服务的调用
type CachedVerifier struct {
	next identity.Verifier
	rdb  redis.UniversalClient
	ttl  time.Duration
	sf   singleflight.Group
}

var _ identity.Verifier = (*CachedVerifier)(nil)

func NewCachedVerifier(next identity.Verifier, rdb redis.UniversalClient, ttl time.Duration) *CachedVerifier {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedVerifier{next: next, rdb: rdb, ttl: ttl}
}

func (v *CachedVerifier) readCache(ctx context.Context, key string) (*identity.Identity, bool, error) {
	res, err := v.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if res == InvalidTokenMarker {
		return nil, true, identity.ErrUnauthorized
	}
	var id identity.Identity
	if err := json.Unmarshal([]byte(res), &id); err != nil {
		// 脏数据当作未命中
		return nil, false, nil
	}
	if id.ExpiresAt != nil && !time.Now().Before(id.ExpiresAt.Time) {
		return nil, false, nil
	}
	return &id, true, nil
}

// cacheTTL 取配置的 ttl 和 token 剩余有效期中较小的一个，<=0 表示不缓存
func (v *CachedVerifier) cacheTTL(id *identity.Identity) time.Duration {
	if id.ExpiresAt == nil {
		return v.ttl
	}
	if left := time.Until(id.ExpiresAt.Time); left < v.ttl {
		return left
	}
	return v.ttl
}

func (v *CachedVerifier) Verify(ctx context.Context, token string) (*identity.Identity, error) {
	key := GetTokenKey(token)
	val, err, _ := v.sf.Do(key, func() (interface{}, error) {
		id, hit, err := v.readCache(ctx, key)
		if hit {
			return id, err
		}
		if err != nil {
			// redis 挂了直接回源，不影响鉴权
			log.Printf("[cache] read token cache failed: %v", err)
		}

		id, err = v.next.Verify(ctx, token)
		if err != nil {
			if errors.Is(err, identity.ErrUnauthorized) {
				if werr := v.rdb.Set(ctx, key, InvalidTokenMarker, InvalidTokenTTL).Err(); werr != nil {
					log.Printf("[cache] write invalid token marker failed: %v", werr)
				}
			}
			return nil, err
		}
		ttl := v.cacheTTL(id)
		if ttl <= 0 {
			return id, nil
		}
		b, _ := json.Marshal(id)
		if werr := v.rdb.Set(ctx, key, b, ttl).Err(); werr != nil {
			log.Printf("[cache] write token cache failed: %v", werr)
		}
		return id, nil
	})
	if err != nil {
		return nil, err
	}
	id, ok := val.(*identity.Identity)
	if !ok || id == nil {
		return nil, fmt.Errorf("%w: internal type error", identity.ErrUpstream)
	}
	return id, nil
}
