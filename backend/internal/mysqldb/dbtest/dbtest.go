// Package dbtest 给测试用的 SQLite 内存租户库
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sync-service/backend/internal/mysqldb"
	"sync-service/backend/internal/repo"
)

var seq atomic.Uint64

// Open 新建一个迁移好的内存库，测试结束自动关闭
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// 内存库只能用一个连接，否则不同连接看到的是不同的库或者被锁
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := mysqldb.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Stores 每个用户一个独立的内存库；missing 里的用户返回 ErrTenantStoreNotFound
func Stores(t testing.TB, missing ...uint64) repo.TenantStores {
	t.Helper()
	stores := mysqldb.NewTenantStores(func(ctx context.Context, userID uint64) (*gorm.DB, error) {
		for _, m := range missing {
			if m == userID {
				return nil, fmt.Errorf("%w: user %d", mysqldb.ErrTenantStoreNotFound, userID)
			}
		}
		return Open(t), nil
	})
	t.Cleanup(func() { _ = stores.Close() })
	return stores
}
