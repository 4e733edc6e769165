package service

import (
	"context"
	"log"
	"time"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/repository"
)

type Sender func(ctx context.Context, ev *model.RoomOutbox) error

// OutboxRelayer 从发件箱批量取房间事件异步投递（Kafka）
type OutboxRelayer struct {
	repo      repository.OutboxRepository
	batchSize int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(repo repository.OutboxRepository, sender Sender) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      repo,
		batchSize: 200,
		interval:  time.Second,
		sender:    sender,
	}
}

// Run 投递循环启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		log.Printf("outbox query err: %v", err)
		return
	}
	for i := range rows {
		ev := rows[i]
		if err = r.sender(ctx, &ev); err != nil {
			_ = r.repo.MarkRetry(ctx, ev.ID)
			continue
		}
		_ = r.repo.MarkSent(ctx, ev.ID)
	}
}

// LogSender 默认 sender（占位）：先打印，部署时换成 Kafka Producer
func LogSender(ctx context.Context, ev *model.RoomOutbox) error {
	log.Printf("OUTBOX SEND type=%s room=%s payload=%s", ev.EventType, ev.RoomID, ev.Payload)
	return nil
}
