package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

const DefaultOutboxMaxRetry = 10

type Sender func(ctx context.Context, ob *model.ModerationOutbox) error

// OutboxRelayer outbox表投递服务
type OutboxRelayer struct {
	repo      OutboxStore
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
	log       *slog.Logger
}

func NewOutboxRelayer(repo OutboxStore, sender Sender, interval time.Duration, batchSize int, logger *slog.Logger) *OutboxRelayer {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &OutboxRelayer{
		repo:      repo,
		batchSize: batchSize,
		maxRetry:  DefaultOutboxMaxRetry,
		interval:  interval,
		sender:    sender,
		log:       logger,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 按 id 顺序取一批待投递/失败记录交给 sender，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		r.log.ErrorContext(ctx, "outbox query failed", "err", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			r.log.WarnContext(ctx, "outbox send failed", "id", ob.ID, "event", ob.EventType, "retry", ob.Retry, "err", err)
			if err := r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				r.log.ErrorContext(ctx, "outbox retry update failed", "id", ob.ID, "err", err)
			}
			continue
		}
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.log.ErrorContext(ctx, "outbox success update failed", "id", ob.ID, "err", err)
			continue
		}
		sent++
	}
	return sent
}

// LogSender 未配置 Kafka 时的默认 sender，只打日志
func LogSender(logger *slog.Logger) Sender {
	return func(ctx context.Context, ob *model.ModerationOutbox) error {
		logger.InfoContext(ctx, "outbox event",
			"type", ob.EventType,
			"community_id", ob.CommunityID,
			"actor_id", ob.ActorID,
			"target_id", ob.TargetID,
			"payload", ob.Payload)
		return nil
	}
}

type messageProducer interface {
	Publish(ctx context.Context, msgs ...pkg.ModerationMessage) error
}

// ModerationEvent 每条 outbox 记录发布的消息体
type ModerationEvent struct {
	ID          uint64          `json:"id"`
	Type        string          `json:"type"`
	CommunityID uint64          `json:"communityId"`
	ActorID     uint64          `json:"actorId"`
	TargetID    uint64          `json:"targetId"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// KafkaSender 发布到治理 topic，key 是社区 id，同一社区的事件有序
func KafkaSender(p messageProducer) Sender {
	return func(ctx context.Context, ob *model.ModerationOutbox) error {
		ev := ModerationEvent{
			ID:          ob.ID,
			Type:        ob.EventType,
			CommunityID: ob.CommunityID,
			ActorID:     ob.ActorID,
			TargetID:    ob.TargetID,
			CreatedAt:   ob.CreatedAt,
		}
		if json.Valid([]byte(ob.Payload)) {
			ev.Payload = json.RawMessage(ob.Payload)
		}
		body, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		return p.Publish(ctx, pkg.ModerationMessage{
			OutboxID:    ob.ID,
			CommunityID: ob.CommunityID,
			EventType:   ob.EventType,
			Body:        body,
		})
	}
}
