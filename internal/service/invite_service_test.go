package service

import (
	"context"
	"testing"

	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteMintAndValidate(t *testing.T) {
	ctx := context.Background()
	svc := NewInviteService(memory.NewStore(), "http://localhost:3000/join")

	invite, err := svc.Mint("room-1")
	require.NoError(t, err)
	assert.Equal(t, "room-1", invite.RoomID)
	assert.Len(t, invite.Token, 64) // 32 字节十六进制

	// Mint 不落库：没 Upsert 之前校验不过
	assert.Equal(t, pkg.KindInvalidInviteToken, pkg.KindOf(svc.Validate(ctx, "room-1", invite.Token)))
}

func TestInviteRotate(t *testing.T) {
	ctx := context.Background()
	svc := NewInviteService(memory.NewStore(), "http://localhost:3000/join")

	first, err := svc.Rotate(ctx, "room-1")
	require.NoError(t, err)
	assert.NoError(t, svc.Validate(ctx, "room-1", first.Token))

	second, err := svc.Rotate(ctx, "room-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	// 轮换后旧令牌立刻失效
	assert.Equal(t, pkg.KindInvalidInviteToken, pkg.KindOf(svc.Validate(ctx, "room-1", first.Token)))
	assert.NoError(t, svc.Validate(ctx, "room-1", second.Token))

	// 别的房间拿不到这个令牌
	assert.Equal(t, pkg.KindInvalidInviteToken, pkg.KindOf(svc.Validate(ctx, "room-2", second.Token)))
}

func TestInviteRevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewInviteService(memory.NewStore(), "http://localhost:3000/join")

	invite, err := svc.Rotate(ctx, "room-1")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, "room-1"))
	require.NoError(t, svc.Revoke(ctx, "room-1"))
	assert.Equal(t, pkg.KindInvalidInviteToken, pkg.KindOf(svc.Validate(ctx, "room-1", invite.Token)))
}

func TestInviteLink(t *testing.T) {
	svc := NewInviteService(memory.NewStore(), "http://localhost:3000/join")
	link := svc.Link("ABCDEFGH", "tok123")
	assert.Equal(t, "http://localhost:3000/join/ABCDEFGH?invite=tok123", link)
}
