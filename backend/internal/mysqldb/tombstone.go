package mysqldb

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sync-service/backend/internal/entity"
	"sync-service/backend/internal/repo"
)

type tombstoneLog struct{}

var _ repo.TombstoneLog = (*tombstoneLog)(nil)

func NewTombstoneLog() repo.TombstoneLog {
	return &tombstoneLog{}
}

func (l *tombstoneLog) Record(ctx context.Context, tx *gorm.DB, kind, entityID string, version uint64) error {
	ts := &entity.Tombstone{Kind: kind, EntityID: entityID, Version: version, DeletedAt: time.Now()}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "deleted_at"}),
	}).Create(ts).Error
}

// Clear 同一个 key 被重新创建时删掉墓碑
func (l *tombstoneLog) Clear(ctx context.Context, tx *gorm.DB, kind, entityID string) error {
	return tx.WithContext(ctx).
		Where("kind = ? AND entity_id = ?", kind, entityID).
		Delete(&entity.Tombstone{}).Error
}
