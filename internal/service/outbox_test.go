package service

import (
	"context"
	"errors"
	"testing"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRelayerDrain(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.OutboxRepo()

	require.NoError(t, repo.Enqueue(ctx, &model.RoomOutbox{EventType: EventRoomCreated, RoomID: "r1", Payload: "{}"}))
	require.NoError(t, repo.Enqueue(ctx, &model.RoomOutbox{EventType: EventRoomStarted, RoomID: "r1", Payload: "{}"}))
	require.NoError(t, repo.Enqueue(ctx, &model.RoomOutbox{EventType: EventRoomEnded, RoomID: "r2", Payload: "{}"}))

	var sent []string
	relayer := NewOutboxRelayer(repo, func(ctx context.Context, ev *model.RoomOutbox) error {
		if ev.RoomID == "r2" {
			return errors.New("broker down")
		}
		sent = append(sent, ev.EventType)
		return nil
	})
	relayer.drainOnce(ctx)

	assert.Equal(t, []string{EventRoomCreated, EventRoomStarted}, sent)

	// 发成功的不再重发，失败的已标记重试
	pending, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRoomEventPayload(t *testing.T) {
	room := &model.Room{
		ID:         "room-1",
		MeetID:     "ABCD1234",
		MeetName:   "例会",
		Visibility: model.VisibilityPublic,
		State:      model.RoomLive,
	}
	ev := RoomEvent(EventRoomStarted, room)
	assert.Equal(t, EventRoomStarted, ev.EventType)
	assert.Equal(t, "room-1", ev.RoomID)
	assert.Contains(t, ev.Payload, "ABCD1234")
	assert.Contains(t, ev.Payload, string(model.RoomLive))
}
