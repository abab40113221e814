package mysqldb

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"sync-service/backend/internal/entity"
	"sync-service/backend/internal/repo"
)

// OpenFunc 打开某个用户的租户库
type OpenFunc func(ctx context.Context, userID uint64) (*gorm.DB, error)

type tenantStores struct {
	open OpenFunc

	mu  sync.RWMutex
	dbs map[uint64]*gorm.DB
}

var _ repo.TenantStores = (*tenantStores)(nil)

// NewTenantStores 缓存每个租户的连接池，open 只会在第一次访问时调用
func NewTenantStores(open OpenFunc) repo.TenantStores {
	return &tenantStores{open: open, dbs: make(map[uint64]*gorm.DB)}
}

func (t *tenantStores) Open(ctx context.Context, userID uint64) (*gorm.DB, error) {
	t.mu.RLock()
	db := t.dbs[userID]
	t.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	// 建连接不持锁
	opened, err := t.open(ctx, userID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if db = t.dbs[userID]; db != nil {
		closeDB(opened)
		return db, nil
	}
	t.dbs[userID] = opened
	return opened, nil
}

func (t *tenantStores) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, db := range t.dbs {
		closeDB(db)
		delete(t.dbs, id)
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

type MySQLOptions struct {
	// DSN 中的库名会被忽略
	DSN string
	// 库名格式，例如 space_%d
	DBNameFormat  string
	AutoProvision bool
	MaxOpenConns  int
}

// MySQLOpener 每个用户一个库：space_<userID>
func MySQLOpener(opt MySQLOptions) (OpenFunc, error) {
	base, err := mysql.ParseDSN(opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	base.ParseTime = true

	return func(ctx context.Context, userID uint64) (*gorm.DB, error) {
		cfg := base.Clone()
		cfg.DBName = fmt.Sprintf(opt.DBNameFormat, userID)

		db, err := openMySQL(cfg, opt.MaxOpenConns)
		if err != nil {
			if !isUnknownDatabase(err) {
				return nil, err
			}
			if !opt.AutoProvision {
				return nil, fmt.Errorf("%w: %s", ErrTenantStoreNotFound, cfg.DBName)
			}
			if err := provision(ctx, base, cfg.DBName); err != nil {
				return nil, err
			}
			if db, err = openMySQL(cfg, opt.MaxOpenConns); err != nil {
				return nil, err
			}
			log.Printf("tenant store provisioned: user=%d db=%s", userID, cfg.DBName)
		}
		if err := ensureSchema(ctx, db, opt.AutoProvision, cfg.DBName); err != nil {
			closeDB(db)
			return nil, err
		}
		return db, nil
	}, nil
}

// ensureSchema 在每次首次打开租户库时调用。
// AutoProvision 时跑一遍 Migrate（幂等，缺的表会补上）；否则没有版本表就按租户库不存在处理。
func ensureSchema(ctx context.Context, db *gorm.DB, autoProvision bool, dbName string) error {
	if autoProvision {
		if err := Migrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("migrate %s: %w", dbName, err)
		}
		return nil
	}
	if !db.WithContext(ctx).Migrator().HasTable(&entity.SpaceVersion{}) {
		return fmt.Errorf("%w: %s has no schema", ErrTenantStoreNotFound, dbName)
	}
	return nil
}

func openMySQL(cfg *mysql.Config, maxOpen int) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(cfg.FormatDSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(maxOpen)
		}
	}
	return db, nil
}

// provision 连到实例本身（不带库名）建库
func provision(ctx context.Context, base *mysql.Config, dbName string) error {
	cfg := base.Clone()
	cfg.DBName = ""
	admin, err := openMySQL(cfg, 1)
	if err != nil {
		return err
	}
	defer closeDB(admin)
	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4", dbName)
	return admin.WithContext(ctx).Exec(stmt).Error
}
