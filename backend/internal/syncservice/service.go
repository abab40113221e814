package syncservice

import (
	"context"

	"sync-service/backend/internal/events"
	"sync-service/backend/internal/mutation"
	"sync-service/backend/internal/repo"
)

// Poker 通知同一用户的其他客户端来 pull
type Poker interface {
	Poke(ctx context.Context, userID uint64, version uint64) error
}

// EventSink 提交后的事件出口（Kafka）
type EventSink interface {
	Enqueue(ctx context.Context, evt events.PushCommitted) error
}

type Service struct {
	stores     repo.TenantStores
	versions   repo.VersionStore
	clients    repo.ClientRegistry
	changes    repo.ChangeReader
	dispatcher *mutation.Dispatcher

	poker  Poker
	events EventSink
}

type Options struct {
	Stores     repo.TenantStores
	Versions   repo.VersionStore
	Clients    repo.ClientRegistry
	Changes    repo.ChangeReader
	Dispatcher *mutation.Dispatcher
	// 以下可以为 nil
	Poker  Poker
	Events EventSink
}

func NewService(opt Options) *Service {
	return &Service{
		stores:     opt.Stores,
		versions:   opt.Versions,
		clients:    opt.Clients,
		changes:    opt.Changes,
		dispatcher: opt.Dispatcher,
		poker:      opt.Poker,
		events:     opt.Events,
	}
}
