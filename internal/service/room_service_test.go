package service

import (
	"context"
	"testing"
	"time"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"
	"Lee_Meet/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store    *memory.Store
	invites  *InviteService
	rooms    *RoomService
	requests *RequestService
	join     *JoinService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	invites := NewInviteService(store, "http://localhost:3000/join")
	return &testEnv{
		store:    store,
		invites:  invites,
		rooms:    NewRoomService(store, store, invites, store, store.OutboxRepo()),
		requests: NewRequestService(store.Requests(), store, invites, nil, 72*time.Hour),
		join: NewJoinService(store, store, invites, store,
			&StaticMeetingProvider{Base: "http://meet.local"}, store.OutboxRepo()),
	}
}

// community 建社区并返回 ID，创建者自动成为 owner
func (e *testEnv) community(t *testing.T, name string, owner uint64) uint64 {
	t.Helper()
	c := &model.Community{Name: name, CreatorID: owner}
	require.NoError(t, e.store.CreateCommunity(context.Background(), c))
	return c.ID
}

func (e *testEnv) member(t *testing.T, communityID, uid uint64, role int) {
	t.Helper()
	require.NoError(t, e.store.Join(context.Background(), &model.CommunityMember{
		CommunityID: communityID,
		UserID:      uid,
		Role:        role,
	}))
}

var (
	admin = Viewer{UID: 1, Role: model.PlatformAdmin}
	alice = Viewer{UID: 10, Role: model.PlatformUser}
	bob   = Viewer{UID: 11, Role: model.PlatformUser}
	carol = Viewer{UID: 12, Role: model.PlatformUser}
)

func TestCreateRoomRights(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	comm := env.community(t, "go-101", alice.UID) // alice 是 owner
	env.member(t, comm, bob.UID, model.MemberRoleMember)

	// 普通成员没有任何直建权
	_, _, err := env.rooms.Create(ctx, bob, CreateRoomParams{MeetName: "晚自习", Visibility: model.VisibilityPublic})
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))
	_, _, err = env.rooms.Create(ctx, bob, CreateRoomParams{MeetName: "晚自习", Visibility: model.VisibilityCourseExclusive, CommunityID: &comm})
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))

	// 社区 owner 可以建本社区的 course_exclusive 房
	room, invite, err := env.rooms.Create(ctx, alice, CreateRoomParams{
		MeetName:    "答疑",
		Visibility:  model.VisibilityCourseExclusive,
		CommunityID: &comm,
	})
	require.NoError(t, err)
	assert.Nil(t, invite)
	assert.Equal(t, model.RoomScheduled, room.State)
	assert.Len(t, room.MeetID, MeetCodeLen)
	assert.Equal(t, DefaultMaxParticipants, room.MaxParticipants)

	// 至少当一个社区版主的人可以建平台私密房
	_, _, err = env.rooms.Create(ctx, alice, CreateRoomParams{MeetName: "内部会", Visibility: model.VisibilityPrivate})
	require.NoError(t, err)

	// public 只有平台管理员
	_, _, err = env.rooms.Create(ctx, alice, CreateRoomParams{MeetName: "公开课", Visibility: model.VisibilityPublic})
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))
	_, _, err = env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "公开课", Visibility: model.VisibilityPublic})
	require.NoError(t, err)
}

func TestCreatePrivateRoomMintsInvite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, invite, err := env.rooms.Create(ctx, admin, CreateRoomParams{
		MeetName:   "闭门会",
		Visibility: model.VisibilityPrivate,
	})
	require.NoError(t, err)
	require.NotNil(t, invite)
	assert.Equal(t, room.ID, invite.RoomID)

	// 建房事务里令牌已经可用
	assert.NoError(t, env.invites.Validate(ctx, room.ID, invite.Token))
	assert.Equal(t, pkg.KindInvalidInviteToken, pkg.KindOf(env.invites.Validate(ctx, room.ID, "bogus")))
}

func TestCreateRoomValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		p    CreateRoomParams
		kind pkg.Kind
	}{
		{"empty name", CreateRoomParams{MeetName: "", Visibility: model.VisibilityPublic}, pkg.KindInvalidParams},
		{"negative capacity", CreateRoomParams{MeetName: "x", Visibility: model.VisibilityPublic, MaxParticipants: -1}, pkg.KindInvalidParams},
		{"scheduled in the past", CreateRoomParams{MeetName: "x", Visibility: model.VisibilityPublic, ScheduledAt: &past}, pkg.KindInvalidParams},
		{"course without community", CreateRoomParams{MeetName: "x", Visibility: model.VisibilityCourseExclusive}, pkg.KindInvalidVisibility},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.rooms.Create(ctx, admin, tt.p)
			assert.Equal(t, tt.kind, pkg.KindOf(err))
		})
	}
}

func TestStartIdempotentForSameActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "早会", Visibility: model.VisibilityPublic})
	require.NoError(t, err)

	started, err := env.rooms.Start(ctx, admin, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomLive, started.State)

	// 同一操作者重试：幂等拿回现房
	again, err := env.rooms.Start(ctx, admin, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomLive, again.State)

	// 换一个有管理权的操作者再 start 就是非法迁移
	other := Viewer{UID: 2, Role: model.PlatformAdmin}
	_, err = env.rooms.Start(ctx, other, room.ID)
	assert.Equal(t, pkg.KindInvalidTransition, pkg.KindOf(err))
}

func TestEndTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "例会", Visibility: model.VisibilityPublic})
	require.NoError(t, err)

	// 还没 start 不能 end
	_, err = env.rooms.End(ctx, admin, room.ID)
	assert.Equal(t, pkg.KindInvalidTransition, pkg.KindOf(err))

	_, err = env.rooms.Start(ctx, admin, room.ID)
	require.NoError(t, err)
	ended, err := env.rooms.End(ctx, admin, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomEnded, ended.State)

	// end 已 ended 的房是无操作成功
	again, err := env.rooms.End(ctx, admin, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomEnded, again.State)

	// 终态之后不能再 start
	_, err = env.rooms.Start(ctx, admin, room.ID)
	assert.Equal(t, pkg.KindInvalidTransition, pkg.KindOf(err))
}

func TestCancelIsStrict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "计划会", Visibility: model.VisibilityPublic})
	require.NoError(t, err)

	canceled, err := env.rooms.Cancel(ctx, admin, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomCanceled, canceled.State)

	_, err = env.rooms.Cancel(ctx, admin, room.ID)
	assert.Equal(t, pkg.KindInvalidTransition, pkg.KindOf(err))

	// live 的房只能 end，不能 cancel
	live, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "进行中", Visibility: model.VisibilityPublic})
	require.NoError(t, err)
	_, err = env.rooms.Start(ctx, admin, live.ID)
	require.NoError(t, err)
	_, err = env.rooms.Cancel(ctx, admin, live.ID)
	assert.Equal(t, pkg.KindInvalidTransition, pkg.KindOf(err))
}

func TestTerminateCleansUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, invite, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "私密房", Visibility: model.VisibilityPrivate})
	require.NoError(t, err)
	_, err = env.rooms.Start(ctx, admin, room.ID)
	require.NoError(t, err)

	res, err := env.store.Reserve(ctx, room.ID, bob.UID, room.MaxParticipants)
	require.NoError(t, err)
	require.Equal(t, repository.ReserveNew, res)

	_, err = env.rooms.End(ctx, admin, room.ID)
	require.NoError(t, err)

	// 终止后邀请令牌吊销、在场名单清空
	assert.Equal(t, pkg.KindInvalidInviteToken, pkg.KindOf(env.invites.Validate(ctx, room.ID, invite.Token)))
	n, err := env.rooms.ParticipantCount(ctx, room.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRotateInvite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, invite, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "密室", Visibility: model.VisibilityPrivate})
	require.NoError(t, err)

	link, err := env.rooms.RotateInvite(ctx, admin, room.ID)
	require.NoError(t, err)
	assert.Contains(t, link, room.MeetID)

	// 旧令牌立刻作废
	assert.Equal(t, pkg.KindInvalidInviteToken, pkg.KindOf(env.invites.Validate(ctx, room.ID, invite.Token)))

	// 非私密房没有邀请令牌可换
	pub, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "公开", Visibility: model.VisibilityPublic})
	require.NoError(t, err)
	_, err = env.rooms.RotateInvite(ctx, admin, pub.ID)
	assert.Equal(t, pkg.KindInvalidParams, pkg.KindOf(err))

	// 管理权门槛
	_, err = env.rooms.RotateInvite(ctx, bob, room.ID)
	assert.Equal(t, pkg.KindUnauthorized, pkg.KindOf(err))

	// 终态之后不再换
	_, err = env.rooms.Cancel(ctx, admin, room.ID)
	require.NoError(t, err)
	_, err = env.rooms.RotateInvite(ctx, admin, room.ID)
	assert.Equal(t, pkg.KindRoomClosed, pkg.KindOf(err))
}

func TestListVisibilityFiltering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	comm := env.community(t, "algo", alice.UID)

	pub, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "公开课", Visibility: model.VisibilityPublic})
	require.NoError(t, err)
	priv, _, err := env.rooms.Create(ctx, admin, CreateRoomParams{MeetName: "内部会", Visibility: model.VisibilityPrivate})
	require.NoError(t, err)
	_, _, err = env.rooms.Create(ctx, alice, CreateRoomParams{
		MeetName: "课程房", Visibility: model.VisibilityCourseExclusive, CommunityID: &comm,
	})
	require.NoError(t, err)

	// 平台范围列表：路人看不到别人的 private 房
	list, err := env.rooms.List(ctx, bob, nil, nil, false, 1, 20)
	require.NoError(t, err)
	ids := roomIDs(list)
	assert.Contains(t, ids, pub.ID)
	assert.NotContains(t, ids, priv.ID)

	// 创建者和平台管理员能看到
	list, err = env.rooms.List(ctx, admin, nil, nil, false, 1, 20)
	require.NoError(t, err)
	assert.Contains(t, roomIDs(list), priv.ID)

	// 社区列表只对成员开放
	_, err = env.rooms.List(ctx, bob, &comm, nil, false, 1, 20)
	assert.Equal(t, pkg.KindNotCommunityMember, pkg.KindOf(err))
	list, err = env.rooms.List(ctx, alice, &comm, nil, false, 1, 20)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func roomIDs(list []model.Room) []string {
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	return ids
}
