package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"sync-service/backend/internal/identity"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type countingVerifier struct {
	calls atomic.Int32
	valid map[string]uint64
	exp   map[string]time.Time
}

func (c *countingVerifier) Verify(ctx context.Context, token string) (*identity.Identity, error) {
	c.calls.Add(1)
	uid, ok := c.valid[token]
	if !ok {
		return nil, identity.ErrUnauthorized
	}
	id := &identity.Identity{UserID: uid, Username: "u", Type: "access"}
	if exp, ok := c.exp[token]; ok {
		id.ExpiresAt = jwt.NewNumericDate(exp)
	}
	return id, nil
}

func TestParsePokeChannel(t *testing.T) {
	cases := map[string]struct {
		id uint64
		ok bool
	}{
		GetPokeChannel(9): {9, true},
		"sync:poke:":      {0, false},
		"sync:poke:abc":   {0, false},
		"sync:poke:0":     {0, false},
		"other:poke:9":    {0, false},
	}
	for ch, want := range cases {
		id, ok := ParsePokeChannel(ch)
		if id != want.id || ok != want.ok {
			t.Fatalf("ParsePokeChannel(%q) = %d,%v want %d,%v", ch, id, ok, want.id, want.ok)
		}
	}
}

func TestGetTokenKey(t *testing.T) {
	a, b := GetTokenKey("token-a"), GetTokenKey("token-b")
	if a == b {
		t.Fatalf("different tokens share a key: %s", a)
	}
	if a != GetTokenKey("token-a") {
		t.Fatalf("key not stable")
	}
}

func TestPokeBroker(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	b := NewPokeBroker(rdb)

	ps, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer ps.Close()

	if err := b.Poke(ctx, 12, 34); err != nil {
		t.Fatalf("Poke() error = %v", err)
	}
	select {
	case msg := <-ps.Channel():
		if msg.Channel != "sync:poke:12" || msg.Payload != "34" {
			t.Fatalf("got %s %s", msg.Channel, msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("poke not delivered")
	}
}

func TestCachedVerifier(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	next := &countingVerifier{valid: map[string]uint64{"good": 5}}
	v := NewCachedVerifier(next, rdb, time.Minute)

	for i := 0; i < 3; i++ {
		id, err := v.Verify(ctx, "good")
		if err != nil || id.UserID != 5 {
			t.Fatalf("Verify(good) = %+v, %v", id, err)
		}
	}
	if got := next.calls.Load(); got != 1 {
		t.Fatalf("upstream calls = %d, want 1", got)
	}

	for i := 0; i < 2; i++ {
		if _, err := v.Verify(ctx, "bad"); !errors.Is(err, identity.ErrUnauthorized) {
			t.Fatalf("Verify(bad) error = %v", err)
		}
	}
	if got := next.calls.Load(); got != 2 {
		t.Fatalf("upstream calls = %d, want 2", got)
	}

	// 过期之后重新回源
	mr.FastForward(2 * time.Minute)
	if _, err := v.Verify(ctx, "good"); err != nil {
		t.Fatalf("Verify(good) after expiry error = %v", err)
	}
	if got := next.calls.Load(); got != 3 {
		t.Fatalf("upstream calls = %d, want 3", got)
	}
}

func TestCachedVerifier_TokenExpiryCapsTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	now := time.Now()
	next := &countingVerifier{
		valid: map[string]uint64{"short": 5, "stale": 6},
		exp: map[string]time.Time{
			"short": now.Add(10 * time.Second),
			"stale": now.Add(-time.Second),
		},
	}
	v := NewCachedVerifier(next, rdb, time.Hour)

	if _, err := v.Verify(ctx, "short"); err != nil {
		t.Fatalf("Verify(short) error = %v", err)
	}
	ttl := mr.TTL(GetTokenKey("short"))
	if ttl <= 0 || ttl > 10*time.Second {
		t.Fatalf("cache ttl = %v, want within token lifetime", ttl)
	}
	mr.FastForward(11 * time.Second)
	if _, err := v.Verify(ctx, "short"); err != nil {
		t.Fatalf("Verify(short) error = %v", err)
	}
	if got := next.calls.Load(); got != 2 {
		t.Fatalf("upstream calls = %d, want 2", got)
	}

	// 已经过期的身份不写缓存
	if _, err := v.Verify(ctx, "stale"); err != nil {
		t.Fatalf("Verify(stale) error = %v", err)
	}
	if mr.Exists(GetTokenKey("stale")) {
		t.Fatalf("expired identity was cached")
	}
}

func TestCachedVerifier_RedisDown(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	next := &countingVerifier{valid: map[string]uint64{"good": 5}}
	v := NewCachedVerifier(next, rdb, time.Minute)

	id, err := v.Verify(context.Background(), "good")
	if err != nil || id.UserID != 5 {
		t.Fatalf("Verify() = %+v, %v", id, err)
	}
}
