package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"Circle_Community/internal/model"
)

// VoteCountReconciler 投票计数对账：以 votes 表为准修正帖子/评论上的冗余计数
type VoteCountReconciler struct {
	repo      CounterStore
	batchSize int
	interval  time.Duration
	log       *slog.Logger
}

func NewVoteCountReconciler(repo CounterStore, logger *slog.Logger) *VoteCountReconciler {
	return &VoteCountReconciler{
		repo:      repo,
		batchSize: 500,             // 一次对账的大小
		interval:  5 * time.Minute, // 对账的间隔时间
		log:       logger,
	}
}

// Run 对账定时任务启动器
func (r *VoteCountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, target := range []model.VoteTarget{model.VotePost, model.VoteComment} {
				r.ReconcileOnce(ctx, target)
			}
		}
	}
}

// ReconcileOnce 扫描一种目标的全部记录，返回修正条数
func (r *VoteCountReconciler) ReconcileOnce(ctx context.Context, target model.VoteTarget) int {
	fixed := 0
	var lastID uint64
	for {
		rows, err := r.repo.CounterList(ctx, target, lastID, r.batchSize)
		if err != nil {
			r.log.ErrorContext(ctx, "reconcile list failed", "target", target, "err", err)
			return fixed
		}
		if len(rows) == 0 {
			return fixed
		}
		for _, row := range rows {
			// 扫描结果只当候选，锁行重算在 Reconcile 里完成
			ok, err := r.repo.Reconcile(ctx, target, row.ID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				r.log.WarnContext(ctx, "reconcile fix failed", "target", target, "id", row.ID, "err", err)
				continue
			}
			if ok {
				fixed++
			}
		}
		lastID = rows[len(rows)-1].ID
	}
}
