package mysqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sync-service/backend/internal/entity"
	"sync-service/backend/internal/repo"
)

type clientRegistry struct{}

var _ repo.ClientRegistry = (*clientRegistry)(nil)

func NewClientRegistry() repo.ClientRegistry {
	return &clientRegistry{}
}

func (r *clientRegistry) LastMutationID(ctx context.Context, db *gorm.DB, clientGroupID, clientID string) (uint64, error) {
	var rec entity.ClientRecord
	err := db.WithContext(ctx).
		Where("client_group_id = ? AND client_id = ?", clientGroupID, clientID).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 新客户端
			return 0, nil
		}
		return 0, err
	}
	return rec.LastMutationID, nil
}

func (r *clientRegistry) LastMutationIDs(ctx context.Context, db *gorm.DB, clientGroupID string) (map[string]uint64, error) {
	var recs []entity.ClientRecord
	err := db.WithContext(ctx).Where("client_group_id = ?", clientGroupID).Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toMutationIDs(recs), nil
}

func (r *clientRegistry) ChangedSince(ctx context.Context, db *gorm.DB, clientGroupID string, since, upTo uint64) (map[string]uint64, error) {
	var recs []entity.ClientRecord
	err := db.WithContext(ctx).
		Where("client_group_id = ? AND last_modified_version > ? AND last_modified_version <= ?", clientGroupID, since, upTo).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toMutationIDs(recs), nil
}

// UpsertProgress 以 (client_group_id, client_id) 为键，后写覆盖
func (r *clientRegistry) UpsertProgress(ctx context.Context, tx *gorm.DB, p repo.ClientProgress) error {
	rec := &entity.ClientRecord{
		ClientGroupID:       p.ClientGroupID,
		ClientID:            p.ClientID,
		LastMutationID:      p.MutationID,
		LastModifiedVersion: p.Version,
		UserID:              p.UserID,
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_group_id"}, {Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_mutation_id", "last_modified_version", "user_id", "updated_at"}),
	}).Create(rec).Error
}

func toMutationIDs(recs []entity.ClientRecord) map[string]uint64 {
	out := make(map[string]uint64, len(recs))
	for _, rec := range recs {
		out[rec.ClientID] = rec.LastMutationID
	}
	return out
}
