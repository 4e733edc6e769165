// Package memory 提供全套仓储的内存实现，开发与测试用。
// 单把锁直接给出 Approve 的事务语义。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"
)

type Store struct {
	mu sync.Mutex

	rooms    map[string]*model.Room
	meetIDs  map[string]string // meetID -> roomID
	invites  map[string]*model.RoomInvite
	requests map[string]*model.RoomRequest
	members  map[uint64]map[uint64]int // communityID -> userID -> role
	comms    map[uint64]*model.Community
	users    map[uint64]*model.User
	outbox   []*model.RoomOutbox

	participants map[string]map[uint64]struct{}

	nextCommID   uint64
	nextUserID   uint64
	nextOutboxID uint64
}

func NewStore() *Store {
	return &Store{
		rooms:        make(map[string]*model.Room),
		meetIDs:      make(map[string]string),
		invites:      make(map[string]*model.RoomInvite),
		requests:     make(map[string]*model.RoomRequest),
		members:      make(map[uint64]map[uint64]int),
		comms:        make(map[uint64]*model.Community),
		users:        make(map[uint64]*model.User),
		participants: make(map[string]map[uint64]struct{}),
	}
}

func cloneRoom(r *model.Room) *model.Room {
	cp := *r
	return &cp
}

func cloneRequest(r *model.RoomRequest) *model.RoomRequest {
	cp := *r
	return &cp
}

/*
RoomRepository
*/

func (s *Store) Create(ctx context.Context, room *model.Room, invite *model.RoomInvite, event *model.RoomOutbox) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetIDs[room.MeetID]; ok {
		return repository.ErrMeetIDExists
	}
	s.rooms[room.ID] = cloneRoom(room)
	s.meetIDs[room.MeetID] = room.ID
	if invite != nil {
		cp := *invite
		s.invites[invite.RoomID] = &cp
	}
	if event != nil {
		s.enqueueLocked(event)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*model.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (s *Store) FindByMeetID(ctx context.Context, meetID string) (*model.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.meetIDs[meetID]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return cloneRoom(s.rooms[id]), nil
}

func (s *Store) List(ctx context.Context, f repository.RoomFilter) ([]model.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.Room
	for _, room := range s.rooms {
		if f.CommunityID != nil {
			if room.CommunityID == nil || *room.CommunityID != *f.CommunityID {
				continue
			}
		} else if room.CommunityID != nil {
			continue
		}
		if f.CreatorUID != 0 && room.CreatorUID != f.CreatorUID {
			continue
		}
		if len(f.States) > 0 {
			hit := false
			for _, st := range f.States {
				if room.State == st {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
		}
		list = append(list, *cloneRoom(room))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if f.Offset > 0 {
		if f.Offset >= len(list) {
			return nil, nil
		}
		list = list[f.Offset:]
	}
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, nil
}

func (s *Store) UpdateState(ctx context.Context, id string, from, to model.RoomState, actor uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok || room.State != from {
		return false, nil
	}
	room.State = to
	if to == model.RoomLive {
		a := actor
		room.StartedBy = &a
	}
	room.UpdatedAt = time.Now()
	return true, nil
}

/*
RoomInviteRepository
*/

func (s *Store) Upsert(ctx context.Context, invite *model.RoomInvite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *invite
	s.invites[invite.RoomID] = &cp
	return nil
}

func (s *Store) FindByRoom(ctx context.Context, roomID string) (*model.RoomInvite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[roomID]
	if !ok {
		return nil, repository.ErrInviteNotFound
	}
	cp := *invite
	return &cp, nil
}

func (s *Store) DeleteByRoom(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invites, roomID)
	return nil
}

/*
RoomRequestRepository
*/

func (s *Store) CreateRequest(ctx context.Context, req *model.RoomRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *Store) FindRequestByID(ctx context.Context, id string) (*model.RoomRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

func inScope(req *model.RoomRequest, scope repository.RequestScope) bool {
	if scope.All {
		return true
	}
	if req.CommunityID == nil {
		return false
	}
	for _, id := range scope.CommunityIDs {
		if id == *req.CommunityID {
			return true
		}
	}
	return false
}

func (s *Store) ListPending(ctx context.Context, scope repository.RequestScope, now time.Time) ([]model.RoomRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.RoomRequest
	for _, req := range s.requests {
		if req.Status != model.RequestPending || now.After(req.ExpiresAt) {
			continue
		}
		if !inScope(req, scope) {
			continue
		}
		list = append(list, *cloneRequest(req))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (s *Store) CountPending(ctx context.Context, scope repository.RequestScope, now time.Time) (int64, error) {
	list, err := s.ListPending(ctx, scope, now)
	return int64(len(list)), err
}

func (s *Store) resolveGuard(id string, to model.RequestStatus, resolvedBy uint64, note string, now time.Time, roomID *string) (*model.RoomRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, pkg.E(pkg.KindNotFound, "request not found")
	}
	if req.Status != model.RequestPending {
		return nil, pkg.Ef(pkg.KindAlreadyResolved, "request already %s", req.Status)
	}
	if now.After(req.ExpiresAt) {
		return nil, pkg.E(pkg.KindRequestExpired, "request expired")
	}
	req.Status = to
	req.ResolutionNote = note
	rb := resolvedBy
	req.ResolvedBy = &rb
	ra := now
	req.ResolvedAt = &ra
	req.RoomID = roomID
	req.UpdatedAt = now
	return req, nil
}

func (s *Store) Approve(ctx context.Context, id string, resolvedBy uint64, note string, now time.Time,
	room *model.Room, invite *model.RoomInvite, event *model.RoomOutbox) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetIDs[room.MeetID]; ok {
		return repository.ErrMeetIDExists
	}
	if _, err := s.resolveGuard(id, model.RequestApproved, resolvedBy, note, now, &room.ID); err != nil {
		return err
	}
	s.rooms[room.ID] = cloneRoom(room)
	s.meetIDs[room.MeetID] = room.ID
	if invite != nil {
		cp := *invite
		s.invites[invite.RoomID] = &cp
	}
	if event != nil {
		s.enqueueLocked(event)
	}
	return nil
}

func (s *Store) Reject(ctx context.Context, id string, resolvedBy uint64, note string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.resolveGuard(id, model.RequestRejected, resolvedBy, note, now, nil)
	return err
}

func (s *Store) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, req := range s.requests {
		if req.Status == model.RequestPending && now.After(req.ExpiresAt) {
			req.Status = model.RequestExpired
			req.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

/*
MemberRepository / CommunityRepository / UserRepository
*/

func (s *Store) Join(ctx context.Context, member *model.CommunityMember) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.members[member.CommunityID]
	if m == nil {
		m = make(map[uint64]int)
		s.members[member.CommunityID] = m
	}
	if _, ok := m[member.UserID]; !ok {
		m[member.UserID] = member.Role
	}
	return nil
}

func (s *Store) Leave(ctx context.Context, communityID, userID uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members[communityID], userID)
	return nil
}

func (s *Store) RoleOf(ctx context.Context, communityID, userID uint64) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.members[communityID][userID]
	return role, ok, nil
}

func (s *Store) ModeratedCommunityIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for commID, m := range s.members {
		if role, ok := m[userID]; ok && role >= model.MemberRoleModerator {
			ids = append(ids, commID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) MemberCommunityIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for commID, m := range s.members {
		if _, ok := m[userID]; ok {
			ids = append(ids, commID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) ListByUser(ctx context.Context, userID uint64) ([]model.CommunityMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.CommunityMember
	for commID, m := range s.members {
		if role, ok := m[userID]; ok {
			list = append(list, model.CommunityMember{CommunityID: commID, UserID: userID, Role: role})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CommunityID < list[j].CommunityID })
	return list, nil
}

func (s *Store) CreateCommunity(ctx context.Context, c *model.Community) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.nextCommID++
	c.ID = s.nextCommID
	cp := *c
	s.comms[c.ID] = &cp
	s.mu.Unlock()
	return s.Join(ctx, &model.CommunityMember{
		CommunityID: c.ID,
		UserID:      c.CreatorID,
		Role:        model.MemberRoleOwner,
	})
}

func (s *Store) FindCommunityByID(ctx context.Context, id uint64) (*model.Community, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comms[id]
	if !ok {
		return nil, repository.ErrCommunityNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCommunities(ctx context.Context, offset, limit int) ([]model.Community, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.Community
	for _, c := range s.comms {
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	user.ID = s.nextUserID
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id uint64) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

/*
OutboxRepository
*/

func (s *Store) enqueueLocked(ev *model.RoomOutbox) {
	s.nextOutboxID++
	ev.ID = s.nextOutboxID
	cp := *ev
	s.outbox = append(s.outbox, &cp)
}

func (s *Store) Enqueue(ctx context.Context, ev *model.RoomOutbox) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(ev)
	return nil
}

func (s *Store) ListPendingOutbox(ctx context.Context, batchSize int) ([]model.RoomOutbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.RoomOutbox
	for _, ev := range s.outbox {
		if ev.Status == 0 {
			list = append(list, *ev)
		}
		if len(list) == batchSize {
			break
		}
	}
	return list, nil
}

func (s *Store) MarkSent(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.outbox {
		if ev.ID == id {
			ev.Status = 1
		}
	}
	return nil
}

func (s *Store) MarkRetry(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.outbox {
		if ev.ID == id {
			ev.Status = 2
			ev.Retry++
		}
	}
	return nil
}

/*
ParticipantStore
*/

func (s *Store) Reserve(ctx context.Context, roomID string, userID uint64, max int) (repository.ReserveResult, error) {
	if err := ctx.Err(); err != nil {
		return repository.ReserveFull, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.participants[roomID]
	if set == nil {
		set = make(map[uint64]struct{})
		s.participants[roomID] = set
	}
	if _, ok := set[userID]; ok {
		return repository.ReserveHeld, nil
	}
	if len(set) >= max {
		return repository.ReserveFull, nil
	}
	set[userID] = struct{}{}
	return repository.ReserveNew, nil
}

func (s *Store) Release(ctx context.Context, roomID string, userID uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants[roomID], userID)
	return nil
}

func (s *Store) Clear(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, roomID)
	return nil
}

func (s *Store) Count(ctx context.Context, roomID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.participants[roomID])), nil
}

/*
视图适配：Store 上请求/社区/用户/发件箱的方法名为避免与房间方法冲突带了前缀，
这里包一层以满足各仓储接口。
*/

type requestView struct{ s *Store }

func (s *Store) Requests() repository.RoomRequestRepository { return requestView{s} }

func (v requestView) Create(ctx context.Context, req *model.RoomRequest) error {
	return v.s.CreateRequest(ctx, req)
}

func (v requestView) FindByID(ctx context.Context, id string) (*model.RoomRequest, error) {
	return v.s.FindRequestByID(ctx, id)
}

func (v requestView) ListPending(ctx context.Context, scope repository.RequestScope, now time.Time) ([]model.RoomRequest, error) {
	return v.s.ListPending(ctx, scope, now)
}

func (v requestView) CountPending(ctx context.Context, scope repository.RequestScope, now time.Time) (int64, error) {
	return v.s.CountPending(ctx, scope, now)
}

func (v requestView) Approve(ctx context.Context, id string, resolvedBy uint64, note string, now time.Time,
	room *model.Room, invite *model.RoomInvite, event *model.RoomOutbox) error {
	return v.s.Approve(ctx, id, resolvedBy, note, now, room, invite, event)
}

func (v requestView) Reject(ctx context.Context, id string, resolvedBy uint64, note string, now time.Time) error {
	return v.s.Reject(ctx, id, resolvedBy, note, now)
}

func (v requestView) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	return v.s.ExpireDue(ctx, now)
}

type communityView struct{ s *Store }

func (s *Store) Communities() repository.CommunityRepository { return communityView{s} }

func (v communityView) Create(ctx context.Context, c *model.Community) error {
	return v.s.CreateCommunity(ctx, c)
}

func (v communityView) FindByID(ctx context.Context, id uint64) (*model.Community, error) {
	return v.s.FindCommunityByID(ctx, id)
}

func (v communityView) List(ctx context.Context, offset, limit int) ([]model.Community, error) {
	return v.s.ListCommunities(ctx, offset, limit)
}

type userView struct{ s *Store }

func (s *Store) Users() repository.UserRepository { return userView{s} }

func (v userView) Create(ctx context.Context, user *model.User) error {
	return v.s.CreateUser(ctx, user)
}

func (v userView) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	return v.s.FindUserByID(ctx, id)
}

func (v userView) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return v.s.FindUserByUsername(ctx, username)
}

type outboxView struct{ s *Store }

func (s *Store) OutboxRepo() repository.OutboxRepository { return outboxView{s} }

func (v outboxView) Enqueue(ctx context.Context, ev *model.RoomOutbox) error {
	return v.s.Enqueue(ctx, ev)
}

func (v outboxView) ListPending(ctx context.Context, batchSize int) ([]model.RoomOutbox, error) {
	return v.s.ListPendingOutbox(ctx, batchSize)
}

func (v outboxView) MarkSent(ctx context.Context, id uint64) error { return v.s.MarkSent(ctx, id) }

func (v outboxView) MarkRetry(ctx context.Context, id uint64) error { return v.s.MarkRetry(ctx, id) }
