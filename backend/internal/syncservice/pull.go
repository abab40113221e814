package syncservice

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pull 返回 (cookie, 当前版本] 之间的变化。不和 push 放在同一个事务里：
// 并发提交的 push 这次可能看不到，下一次 pull 一定能看到。
func (s *Service) Pull(ctx context.Context, userID uint64, req PullRequest) (*PullResponse, error) {
	db, err := s.stores.Open(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}

	current, err := s.versions.Get(ctx, db)
	if err != nil {
		return nil, classify(err)
	}

	// 没有 cookie，或者 cookie 比服务端还新（库被重建过），都按全量处理
	full := req.Cookie == nil || *req.Cookie > current
	var baseline uint64
	if !full {
		baseline = *req.Cookie
	}

	var (
		mutationIDs map[string]uint64
		patch       []Patch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if full {
			mutationIDs, err = s.clients.LastMutationIDs(gctx, db, req.ClientGroupID)
		} else {
			mutationIDs, err = s.clients.ChangedSince(gctx, db, req.ClientGroupID, baseline, current)
		}
		return err
	})
	g.Go(func() error {
		changes, err := s.changes.Read(gctx, db, baseline, current, !full)
		if err != nil {
			return err
		}
		patch, err = translate(changes, full)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, classify(err)
	}

	return &PullResponse{
		Cookie:                current,
		LastMutationIDChanges: mutationIDs,
		Patch:                 patch,
	}, nil
}
