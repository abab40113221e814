package mutation

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"sync-service/backend/internal/entity"
	"sync-service/backend/internal/repo"
)

// handler 每种实体一个，只写自己那张表
type handler interface {
	create(ctx context.Context, tx *gorm.DB, args json.RawMessage) error
	update(ctx context.Context, tx *gorm.DB, args json.RawMessage) error
	delete(ctx context.Context, tx *gorm.DB, args json.RawMessage) error
}

// Dispatcher 把 mutation 名字映射到对应实体的写操作
type Dispatcher struct {
	versions   repo.VersionStore
	tombstones repo.TombstoneLog
	args       *argsDecoder
	handlers   map[string]handler
}

func NewDispatcher(versions repo.VersionStore, tombstones repo.TombstoneLog) *Dispatcher {
	d := &Dispatcher{
		versions:   versions,
		tombstones: tombstones,
		args:       newArgsDecoder(),
	}
	d.handlers = map[string]handler{
		entity.KindTrade:    &entityHandler[entity.Trade, *entity.Trade]{d: d},
		entity.KindOption:   &entityHandler[entity.Option, *entity.Option]{d: d},
		entity.KindNote:     &entityHandler[entity.Note, *entity.Note]{d: d},
		entity.KindTag:      &entityHandler[entity.Tag, *entity.Tag]{d: d},
		entity.KindPlaybook: &entityHandler[entity.Playbook, *entity.Playbook]{d: d},
		entity.KindImage:    &entityHandler[entity.Image, *entity.Image]{d: d},
	}
	return d
}

// Apply 必须在 push 事务里调用，tx 回滚时这里的写入一起作废。
// tx 已经是调用方租户自己的库，不需要再按用户过滤。
func (d *Dispatcher) Apply(ctx context.Context, tx *gorm.DB, name Name, args json.RawMessage) error {
	r, ok := routes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMutation, name)
	}
	h := d.handlers[r.kind]
	switch r.op {
	case opCreate:
		return h.create(ctx, tx, args)
	case opUpdate:
		return h.update(ctx, tx, args)
	case opDelete:
		return h.delete(ctx, tx, args)
	}
	return fmt.Errorf("%w: %q", ErrUnknownMutation, name)
}
