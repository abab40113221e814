package mysqldb

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var ErrTenantStoreNotFound = errors.New("tenant store not found")

const (
	errUnknownDatabase = 1049
	errDuplicateEntry  = 1062
	errLockDeadlock    = 1213
)

func mysqlErrNumber(err error) uint16 {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number
	}
	return 0
}

func isUnknownDatabase(err error) bool { return mysqlErrNumber(err) == errUnknownDatabase }

// IsRetryable 死锁和唯一键冲突（并发首次创建）整批重试即可
func IsRetryable(err error) bool {
	switch mysqlErrNumber(err) {
	case errLockDeadlock, errDuplicateEntry:
		return true
	}
	return false
}
