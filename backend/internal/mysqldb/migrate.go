package mysqldb

import (
	"gorm.io/gorm"

	"sync-service/backend/internal/entity"
)

// Migrate 建好租户库需要的全部表
func Migrate(db *gorm.DB) error {
	models := []any{&entity.SpaceVersion{}, &entity.ClientRecord{}, &entity.Tombstone{}}
	for _, m := range entity.Syncable() {
		models = append(models, m)
	}
	return db.AutoMigrate(models...)
}
