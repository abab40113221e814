package syncservice

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"sync-service/backend/internal/events"
	"sync-service/backend/internal/mysqldb"
	"sync-service/backend/internal/repo"
)

const (
	// 提交后的通知不能拖慢 push
	notifyTimeout = 500 * time.Millisecond
	// 死锁这类存储错误在服务端先重试几次
	pushAttempts = 3
)

// Push 在一个事务里按客户端提交的顺序应用整批 mutation：
// 任意一条失败整批回滚；成功时 SpaceVersion 只 +1。
func (s *Service) Push(ctx context.Context, userID uint64, req PushRequest) (PushResult, error) {
	db, err := s.stores.Open(ctx, userID)
	if err != nil {
		return PushResult{}, classify(err)
	}

	var res PushResult
	for attempt := 1; ; attempt++ {
		res, err = s.pushTx(ctx, db, userID, req)
		if err == nil || attempt >= pushAttempts || !mysqldb.IsRetryable(err) {
			break
		}
		// 事务已经整体回滚，重放判断会在下一次重新做
		log.Printf("push retry: user=%d group=%s attempt=%d err=%v", userID, req.ClientGroupID, attempt, err)
	}
	if err != nil {
		return PushResult{}, classify(err)
	}

	s.afterCommit(ctx, userID, req, res)
	return res, nil
}

func (s *Service) pushTx(ctx context.Context, db *gorm.DB, userID uint64, req PushRequest) (PushResult, error) {
	var res PushResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先锁版本行，同一租户的 push 在这里排队
		if _, err := s.versions.Lock(ctx, tx); err != nil {
			return err
		}

		for _, m := range req.Mutations {
			last, err := s.clients.LastMutationID(ctx, tx, req.ClientGroupID, m.ClientID)
			if err != nil {
				return err
			}
			if m.ID <= last {
				// 重放的 mutation 不再执行，last_mutation_id 也不会倒退
				res.Skipped++
				continue
			}

			if err := s.dispatcher.Apply(ctx, tx, m.Name, m.Args); err != nil {
				log.Printf("push rejected: user=%d group=%s client=%s mutation=%d name=%s err=%v",
					userID, req.ClientGroupID, m.ClientID, m.ID, m.Name, err)
				return err
			}

			next, err := s.versions.Next(ctx, tx)
			if err != nil {
				return err
			}
			err = s.clients.UpsertProgress(ctx, tx, repo.ClientProgress{
				ClientGroupID: req.ClientGroupID,
				ClientID:      m.ClientID,
				MutationID:    m.ID,
				UserID:        userID,
				Version:       next,
			})
			if err != nil {
				return err
			}
			res.Applied++
		}

		v, err := s.versions.Increment(ctx, tx)
		if err != nil {
			return err
		}
		res.Version = v
		return nil
	})
	if err != nil {
		return PushResult{}, err
	}
	return res, nil
}

func (s *Service) afterCommit(ctx context.Context, userID uint64, req PushRequest, res PushResult) {
	if res.Applied == 0 {
		return
	}
	// 请求可能已经结束，通知用独立的超时
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if s.poker != nil {
		if err := s.poker.Poke(nctx, userID, res.Version); err != nil {
			log.Printf("poke failed: user=%d version=%d err=%v", userID, res.Version, err)
		}
	}
	if s.events != nil {
		evt := events.PushCommitted{
			EventType:     events.TypePushCommitted,
			UserID:        userID,
			ClientGroupID: req.ClientGroupID,
			Version:       res.Version,
			Applied:       res.Applied,
			Skipped:       res.Skipped,
			CommittedAt:   time.Now(),
		}
		if err := s.events.Enqueue(nctx, evt); err != nil {
			log.Printf("enqueue commit event failed: user=%d version=%d err=%v", userID, res.Version, err)
		}
	}
}
