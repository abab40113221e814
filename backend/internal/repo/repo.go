package repo

import (
	"context"

	"gorm.io/gorm"

	"sync-service/backend/internal/entity"
)

// 所有方法的 db 参数都是调用方给的连接或事务，仓储自己不开事务

// TenantStores 根据用户找到他自己的库
type TenantStores interface {
	Open(ctx context.Context, userID uint64) (*gorm.DB, error)
	Close() error
}

// VersionStore 租户的 SpaceVersion
type VersionStore interface {
	// Get 返回当前版本，行不存在时创建并返回 0
	Get(ctx context.Context, db *gorm.DB) (uint64, error)
	// Lock 在事务里锁住版本行，让同一租户的 push 串行化
	Lock(ctx context.Context, tx *gorm.DB) (uint64, error)
	// Next 本次 push 提交后会得到的版本，只能在 push 事务里调用
	Next(ctx context.Context, tx *gorm.DB) (uint64, error)
	Increment(ctx context.Context, tx *gorm.DB) (uint64, error)
}

type ClientProgress struct {
	ClientGroupID string
	ClientID      string
	MutationID    uint64
	UserID        uint64
	Version       uint64
}

type ClientRegistry interface {
	LastMutationID(ctx context.Context, db *gorm.DB, clientGroupID, clientID string) (uint64, error)
	LastMutationIDs(ctx context.Context, db *gorm.DB, clientGroupID string) (map[string]uint64, error)
	// ChangedSince 只返回进度在 (since, upTo] 之间变化过的客户端
	ChangedSince(ctx context.Context, db *gorm.DB, clientGroupID string, since, upTo uint64) (map[string]uint64, error)
	UpsertProgress(ctx context.Context, tx *gorm.DB, p ClientProgress) error
}

type TombstoneLog interface {
	Record(ctx context.Context, tx *gorm.DB, kind, entityID string, version uint64) error
	Clear(ctx context.Context, tx *gorm.DB, kind, entityID string) error
}

// Change 一行变化：Row 为 nil 表示已删除
type Change struct {
	Kind    string
	ID      string
	Version uint64
	Row     entity.Versioned
}

func (c Change) Deleted() bool { return c.Row == nil }

type ChangeReader interface {
	// Read 返回版本在 (since, upTo] 之间的所有行，每张表内按版本升序
	Read(ctx context.Context, db *gorm.DB, since, upTo uint64, withDeletes bool) ([]Change, error)
}
