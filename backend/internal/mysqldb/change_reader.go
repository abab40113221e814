package mysqldb

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"sync-service/backend/internal/entity"
	"sync-service/backend/internal/repo"
)

type tableReader func(ctx context.Context, db *gorm.DB, since, upTo uint64) ([]repo.Change, error)

type changeReader struct {
	tables []tableReader
}

var _ repo.ChangeReader = (*changeReader)(nil)

// NewChangeReader 表顺序与 entity.Syncable 一致
func NewChangeReader() repo.ChangeReader {
	return &changeReader{tables: []tableReader{
		readTable[entity.Trade],
		readTable[entity.Option],
		readTable[entity.Note],
		readTable[entity.Tag],
		readTable[entity.Playbook],
		readTable[entity.Image],
	}}
}

func (r *changeReader) Read(ctx context.Context, db *gorm.DB, since, upTo uint64, withDeletes bool) ([]repo.Change, error) {
	var out []repo.Change
	if upTo <= since {
		return out, nil
	}
	for _, read := range r.tables {
		changes, err := read(ctx, db, since, upTo)
		if err != nil {
			return nil, err
		}
		out = append(out, changes...)
	}
	if !withDeletes {
		return out, nil
	}

	var tombstones []entity.Tombstone
	err := db.WithContext(ctx).
		Where("version > ? AND version <= ?", since, upTo).
		Order("version ASC, kind ASC, entity_id ASC").
		Find(&tombstones).Error
	if err != nil {
		return nil, fmt.Errorf("read tombstones: %w", err)
	}
	for _, ts := range tombstones {
		out = append(out, repo.Change{Kind: ts.Kind, ID: ts.EntityID, Version: ts.Version})
	}
	return out, nil
}

func readTable[T any, PT interface {
	*T
	entity.Versioned
}](ctx context.Context, db *gorm.DB, since, upTo uint64) ([]repo.Change, error) {
	var rows []T
	err := db.WithContext(ctx).
		Where("version > ? AND version <= ?", since, upTo).
		Order("version ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", PT(new(T)).Kind(), err)
	}
	out := make([]repo.Change, 0, len(rows))
	for i := range rows {
		row := PT(&rows[i])
		meta := row.GetMeta()
		out = append(out, repo.Change{Kind: row.Kind(), ID: meta.ID, Version: meta.Version, Row: row})
	}
	return out, nil
}
