package mysqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sync-service/backend/internal/entity"
	"sync-service/backend/internal/repo"
)

type versionStore struct{}

var _ repo.VersionStore = (*versionStore)(nil)

func NewVersionStore() repo.VersionStore {
	return &versionStore{}
}

// ensure 懒创建版本行，并发创建时 DO NOTHING
func (s *versionStore) ensure(ctx context.Context, db *gorm.DB) error {
	row := &entity.SpaceVersion{ID: entity.SpaceRowID}
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

func (s *versionStore) Get(ctx context.Context, db *gorm.DB) (uint64, error) {
	var sv entity.SpaceVersion
	err := db.WithContext(ctx).Where("id = ?", entity.SpaceRowID).Take(&sv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, s.ensure(ctx, db)
	}
	if err != nil {
		return 0, err
	}
	return sv.Version, nil
}

func (s *versionStore) Lock(ctx context.Context, tx *gorm.DB) (uint64, error) {
	if err := s.ensure(ctx, tx); err != nil {
		return 0, err
	}
	var sv entity.SpaceVersion
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", entity.SpaceRowID).
		Take(&sv).Error
	if err != nil {
		return 0, err
	}
	return sv.Version, nil
}

func (s *versionStore) Next(ctx context.Context, tx *gorm.DB) (uint64, error) {
	v, err := s.Get(ctx, tx)
	if err != nil {
		return 0, err
	}
	return v + 1, nil
}

func (s *versionStore) Increment(ctx context.Context, tx *gorm.DB) (uint64, error) {
	res := tx.WithContext(ctx).
		Model(&entity.SpaceVersion{}).
		Where("id = ?", entity.SpaceRowID).
		UpdateColumn("version", gorm.Expr("version + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// 行还不存在
		if err := s.ensure(ctx, tx); err != nil {
			return 0, err
		}
		return s.Increment(ctx, tx)
	}
	return s.Get(ctx, tx)
}
