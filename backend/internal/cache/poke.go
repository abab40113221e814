package cache

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// PokeBroker 通过 redis pub/sub 广播版本变化，多实例部署时 ws 连接可能在任何一台上
type PokeBroker struct {
	rdb redis.UniversalClient
}

func NewPokeBroker(rdb redis.UniversalClient) *PokeBroker {
	return &PokeBroker{rdb: rdb}
}

func (b *PokeBroker) Poke(ctx context.Context, userID uint64, version uint64) error {
	return b.rdb.Publish(ctx, GetPokeChannel(userID), strconv.FormatUint(version, 10)).Err()
}

// Subscribe 订阅所有用户的 poke，调用方负责 Close
func (b *PokeBroker) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	ps := b.rdb.PSubscribe(ctx, PokeChannelPattern)
	// 等订阅确认，否则之后的 Publish 可能丢
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return ps, nil
}
