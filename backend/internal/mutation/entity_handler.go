package mutation

import (
	"context"
	"encoding/json"
	"errors"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sync-service/backend/internal/entity"
)

const maxIDLen = 64

type entityHandler[T any, PT interface {
	*T
	entity.Versioned
}] struct {
	d *Dispatcher
}

// create 可以带客户端生成的 id，没有就用 ULID；同 id 已存在时除 created_at 外整行覆盖
func (h *entityHandler[T, PT]) create(ctx context.Context, tx *gorm.DB, args json.RawMessage) error {
	row := PT(new(T))
	if err := h.d.args.decode(args, row); err != nil {
		return err
	}
	meta := row.GetMeta()
	id := meta.ID
	if id == "" {
		id = ulid.Make().String()
	}
	if len(id) > maxIDLen {
		return malformed("id", "longer than %d", maxIDLen)
	}
	// 时间和版本只由服务端决定
	*meta = entity.Meta{ID: id}
	if err := h.d.args.check(row); err != nil {
		return err
	}

	version, err := h.d.versions.Next(ctx, tx)
	if err != nil {
		return err
	}
	meta.Version = version

	cols, err := upsertColumns(tx, row)
	if err != nil {
		return err
	}
	err = tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(row).Error
	if err != nil {
		return err
	}
	return h.d.tombstones.Clear(ctx, tx, row.Kind(), id)
}

// upsertColumns 同 id 重新创建时要覆盖的列，id 和 created_at 保持原值
func upsertColumns(tx *gorm.DB, row any) ([]string, error) {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(row); err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(stmt.Schema.DBNames))
	for _, name := range stmt.Schema.DBNames {
		if name == "id" || name == "created_at" {
			continue
		}
		cols = append(cols, name)
	}
	return cols, nil
}

// update 参数是一个 JSON merge patch（RFC 7386），只改出现的字段
func (h *entityHandler[T, PT]) update(ctx context.Context, tx *gorm.DB, args json.RawMessage) error {
	id, err := h.d.args.id(args)
	if err != nil {
		return err
	}
	cur := PT(new(T))
	err = tx.WithContext(ctx).Where("id = ?", id).Take(cur).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return malformed("id", "%s %s not found", cur.Kind(), id)
		}
		return err
	}

	base, err := json.Marshal(cur)
	if err != nil {
		return err
	}
	merged, err := jsonpatch.MergePatch(base, args)
	if err != nil {
		return malformed("args", "%v", err)
	}
	next := PT(new(T))
	if err := h.d.args.decode(merged, next); err != nil {
		return err
	}
	old := cur.GetMeta()
	meta := next.GetMeta()
	*meta = entity.Meta{ID: old.ID, CreatedAt: old.CreatedAt}
	if err := h.d.args.check(next); err != nil {
		return err
	}

	version, err := h.d.versions.Next(ctx, tx)
	if err != nil {
		return err
	}
	meta.Version = version
	return tx.WithContext(ctx).Save(next).Error
}

// delete 是硬删除，同时留下墓碑；行本来就不存在时什么都不做
func (h *entityHandler[T, PT]) delete(ctx context.Context, tx *gorm.DB, args json.RawMessage) error {
	id, err := h.d.args.id(args)
	if err != nil {
		return err
	}
	res := tx.WithContext(ctx).Where("id = ?", id).Delete(PT(new(T)))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	version, err := h.d.versions.Next(ctx, tx)
	if err != nil {
		return err
	}
	return h.d.tombstones.Record(ctx, tx, PT(new(T)).Kind(), id, version)
}
