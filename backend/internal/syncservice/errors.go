package syncservice

import (
	"errors"
	"fmt"

	"sync-service/backend/internal/identity"
	"sync-service/backend/internal/mutation"
	"sync-service/backend/internal/mysqldb"
)

// 错误分类：
// - Unauthorized            401，不重试
// - UnknownMutation         400，原样重发还是会失败
// - MalformedArguments      400
// - TenantStoreNotFound     404
// - Storage                 500，整批重发是安全的，事务保证没有部分提交
var (
	ErrUnauthorized        = identity.ErrUnauthorized
	ErrUnknownMutation     = mutation.ErrUnknownMutation
	ErrMalformedArguments  = mutation.ErrMalformedArguments
	ErrTenantStoreNotFound = mysqldb.ErrTenantStoreNotFound
	ErrStorage             = errors.New("storage error")
)

// classify 客户端错误原样返回，其余一律当成存储错误
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnknownMutation),
		errors.Is(err, ErrMalformedArguments),
		errors.Is(err, ErrTenantStoreNotFound),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrStorage):
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
