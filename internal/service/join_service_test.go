package service

import (
	"context"
	"testing"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPublicLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "公开课", Visibility: model.VisibilityPublic})
	require.NoError(t, err)

	// 没开播之前路人进不来
	_, err = env.join.Join(ctx, bob, room.ID, "", "")
	assert.Equal(t, pkg.KindRoomNotStarted, pkg.KindOf(err))

	// 管理者 join 即 start
	res, err := env.join.Join(ctx, admin, room.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, model.RoomLive, res.Room.State)
	assert.Contains(t, res.JoinURL, room.MeetID)

	// 开播后路人正常进
	res, err = env.join.Join(ctx, bob, room.ID, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.JoinURL)

	// 重复 join 幂等，不吃第二个席位
	_, err = env.join.Join(ctx, bob, room.ID, "", "")
	require.NoError(t, err)
	n, err := env.rooms.ParticipantCount(ctx, room.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// 结束之后一律 room_closed
	_, err = env.rooms.End(ctx, admin, room.ID)
	require.NoError(t, err)
	_, err = env.join.Join(ctx, bob, room.ID, "", "")
	assert.Equal(t, pkg.KindRoomClosed, pkg.KindOf(err))
}

func TestJoinUnknownRoom(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.join.Join(context.Background(), bob, "no-such-room", "", "")
	assert.Equal(t, pkg.KindNotFound, pkg.KindOf(err))
}

func TestJoinPrivateCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, invite, err := env.rooms.Create(ctx, admin, CreateRoomParams{
		MeetName:   "闭门会",
		Visibility: model.VisibilityPrivate,
		Password:   "s3cret",
	})
	require.NoError(t, err)
	_, err = env.rooms.Start(ctx, admin, room.ID)
	require.NoError(t, err)

	// 什么都没带：两段式第一段，列出缺的凭证
	_, err = env.join.Join(ctx, bob, room.ID, "", "")
	require.Equal(t, pkg.KindCredentialRequired, pkg.KindOf(err))
	var ae *pkg.AppError
	require.ErrorAs(t, err, &ae)
	assert.ElementsMatch(t, []string{"inviteToken", "password"}, ae.Missing)

	// 只带 token：还缺密码
	_, err = env.join.Join(ctx, bob, room.ID, invite.Token, "")
	require.Equal(t, pkg.KindCredentialRequired, pkg.KindOf(err))
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"password"}, ae.Missing)

	// token 错永远先报 token 错，密码对不对无所谓
	_, err = env.join.Join(ctx, bob, room.ID, "bogus", "s3cret")
	assert.Equal(t, pkg.KindInvalidInviteToken, pkg.KindOf(err))
	_, err = env.join.Join(ctx, bob, room.ID, "bogus", "wrong")
	assert.Equal(t, pkg.KindInvalidInviteToken, pkg.KindOf(err))

	// token 对、密码错
	_, err = env.join.Join(ctx, bob, room.ID, invite.Token, "wrong")
	assert.Equal(t, pkg.KindInvalidPassword, pkg.KindOf(err))

	// 凭证齐了放行
	res, err := env.join.Join(ctx, bob, room.ID, invite.Token, "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, res.JoinURL)

	// 管理者免凭证
	_, err = env.join.Join(ctx, admin, room.ID, "", "")
	require.NoError(t, err)
}

func TestJoinCourseExclusiveMemberGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	comm := env.community(t, "net-course", alice.UID)
	env.member(t, comm, bob.UID, model.MemberRoleMember)

	room, _, err := env.rooms.Create(ctx, alice, CreateRoomParams{
		MeetName:    "课程直播",
		Visibility:  model.VisibilityCourseExclusive,
		CommunityID: &comm,
	})
	require.NoError(t, err)
	_, err = env.rooms.Start(ctx, alice, room.ID)
	require.NoError(t, err)

	_, err = env.join.Join(ctx, carol, room.ID, "", "")
	assert.Equal(t, pkg.KindNotCommunityMember, pkg.KindOf(err))

	_, err = env.join.Join(ctx, bob, room.ID, "", "")
	require.NoError(t, err)
}

func TestJoinCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{
		MeetName:        "小房间",
		Visibility:      model.VisibilityPublic,
		MaxParticipants: 2,
	})
	require.NoError(t, err)

	// 管理者 join-start 占第一个席位
	_, err = env.join.Join(ctx, admin, room.ID, "", "")
	require.NoError(t, err)
	_, err = env.join.Join(ctx, bob, room.ID, "", "")
	require.NoError(t, err)

	// 满了
	_, err = env.join.Join(ctx, carol, room.ID, "", "")
	assert.Equal(t, pkg.KindRoomFull, pkg.KindOf(err))

	// 在房的人重进不算新席位
	_, err = env.join.Join(ctx, bob, room.ID, "", "")
	require.NoError(t, err)

	// 有人走了席位让出来
	require.NoError(t, env.join.Leave(ctx, bob, room.ID))
	_, err = env.join.Join(ctx, carol, room.ID, "", "")
	require.NoError(t, err)

	// leave 幂等
	require.NoError(t, env.join.Leave(ctx, bob, room.ID))
}

type failingProvider struct{}

func (failingProvider) JoinURL(ctx context.Context, meetID string, userID uint64) (string, error) {
	return "", pkg.E(pkg.KindProviderUnavailable, "meeting provider unavailable")
}

func TestJoinProviderFailureReleasesSeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.join.provider = failingProvider{}

	room, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "坏供应商", Visibility: model.VisibilityPublic})
	require.NoError(t, err)
	_, err = env.rooms.Start(ctx, admin, room.ID)
	require.NoError(t, err)

	_, err = env.join.Join(ctx, bob, room.ID, "", "")
	assert.Equal(t, pkg.KindProviderUnavailable, pkg.KindOf(err))

	// 失败的 join 不能留下占位
	n, err := env.rooms.ParticipantCount(ctx, room.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	// 供应商恢复后同一个人能正常进
	env.join.provider = &StaticMeetingProvider{Base: "http://meet.local"}
	_, err = env.join.Join(ctx, bob, room.ID, "", "")
	require.NoError(t, err)
}
