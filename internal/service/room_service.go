package service

import (
	"context"
	"encoding/json"
	"log"
	"time"
	"unicode/utf8"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	MeetCodeLen            = 8
	MaxMeetNameLen         = 120
	DefaultMaxParticipants = 8

	maxMeetCodeRetry = 5
)

// 房间事件类型
const (
	EventRoomCreated     = "room.created"
	EventRoomStarted     = "room.started"
	EventRoomEnded       = "room.ended"
	EventRoomCanceled    = "room.canceled"
	EventRequestApproved = "request.approved"
	EventRequestRejected = "request.rejected"
)

// RoomEvent 发件箱 payload
func RoomEvent(eventType string, room *model.Room) *model.RoomOutbox {
	payload, _ := json.Marshal(map[string]any{
		"room_id":    room.ID,
		"meet_id":    room.MeetID,
		"meet_name":  room.MeetName,
		"visibility": room.Visibility,
		"state":      room.State,
	})
	return &model.RoomOutbox{
		EventType: eventType,
		RoomID:    room.ID,
		Payload:   string(payload),
	}
}

type RoomService struct {
	rooms        repository.RoomRepository
	members      repository.MemberRepository
	invites      *InviteService
	participants repository.ParticipantStore
	outbox       repository.OutboxRepository
	now          func() time.Time
}

func NewRoomService(rooms repository.RoomRepository, members repository.MemberRepository,
	invites *InviteService, participants repository.ParticipantStore, outbox repository.OutboxRepository) *RoomService {
	return &RoomService{
		rooms:        rooms,
		members:      members,
		invites:      invites,
		participants: participants,
		outbox:       outbox,
		now:          time.Now,
	}
}

type CreateRoomParams struct {
	MeetName        string
	Visibility      model.RoomVisibility
	CommunityID     *uint64
	MaxParticipants int
	ScheduledAt     *time.Time
	Password        string
	AllowMic        bool
	AllowVideo      bool
	AllowScreen     bool
}

func validateRoomParams(p *CreateRoomParams, now time.Time) error {
	n := utf8.RuneCountInString(p.MeetName)
	if n < 1 || n > MaxMeetNameLen {
		return pkg.Ef(pkg.KindInvalidParams, "meet name must be 1-%d chars", MaxMeetNameLen)
	}
	if p.MaxParticipants == 0 {
		p.MaxParticipants = DefaultMaxParticipants
	}
	if p.MaxParticipants < 1 {
		return pkg.E(pkg.KindInvalidParams, "max participants must be >= 1")
	}
	if p.ScheduledAt != nil && p.ScheduledAt.Before(now) {
		return pkg.E(pkg.KindInvalidParams, "scheduled time must be in the future")
	}
	return ValidateVisibility(p.Visibility, p.CommunityID)
}

func (s *RoomService) moderatesAny(ctx context.Context, uid uint64) (bool, error) {
	ids, err := s.members.ModeratedCommunityIDs(ctx, uid)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// Create 直建路径；无直建权的调用方应走申请流程
func (s *RoomService) Create(ctx context.Context, v Viewer, p CreateRoomParams) (*model.Room, *model.RoomInvite, error) {
	now := s.now()
	if err := validateRoomParams(&p, now); err != nil {
		return nil, nil, err
	}

	cap, err := CapabilityOf(ctx, s.members, p.CommunityID, v.UID)
	if err != nil {
		return nil, nil, err
	}
	modAny, err := s.moderatesAny(ctx, v.UID)
	if err != nil {
		return nil, nil, err
	}
	if !CanCreateDirectly(v, p.Visibility, cap, modAny) {
		return nil, nil, pkg.E(pkg.KindUnauthorized, "no direct-create rights, submit a request instead")
	}

	var passwordHash string
	if p.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, err
		}
		passwordHash = string(hash)
	}

	// 短码撞唯一索引就换一个重试
	for i := 0; i < maxMeetCodeRetry; i++ {
		meetID, err := pkg.RandMeetCode(MeetCodeLen)
		if err != nil {
			return nil, nil, err
		}
		room := &model.Room{
			ID:              uuid.NewString(),
			MeetID:          meetID,
			MeetName:        p.MeetName,
			Visibility:      p.Visibility,
			CommunityID:     p.CommunityID,
			State:           model.RoomScheduled,
			CreatorUID:      v.UID,
			MaxParticipants: p.MaxParticipants,
			ScheduledAt:     p.ScheduledAt,
			PasswordHash:    passwordHash,
			AllowMic:        p.AllowMic,
			AllowVideo:      p.AllowVideo,
			AllowScreen:     p.AllowScreen,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		var invite *model.RoomInvite
		if p.Visibility == model.VisibilityPrivate {
			if invite, err = s.invites.Mint(room.ID); err != nil {
				return nil, nil, err
			}
		}

		err = s.rooms.Create(ctx, room, invite, RoomEvent(EventRoomCreated, room))
		if err == repository.ErrMeetIDExists {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return room, invite, nil
	}
	return nil, nil, repository.ErrMeetIDExists
}

func (s *RoomService) Get(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err == repository.ErrRoomNotFound {
		return nil, pkg.E(pkg.KindNotFound, "room not found")
	}
	return room, err
}

// List 列表永远过滤到观察者有权看到的范围
func (s *RoomService) List(ctx context.Context, v Viewer, communityID *uint64,
	states []model.RoomState, mineOnly bool, page, size int) ([]model.Room, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}

	if communityID != nil {
		cap, err := CapabilityOf(ctx, s.members, communityID, v.UID)
		if err != nil {
			return nil, err
		}
		if !cap.IsMember && !v.PlatformAdmin() {
			return nil, pkg.E(pkg.KindNotCommunityMember, "not a member of this community")
		}
	}

	f := repository.RoomFilter{
		CommunityID: communityID,
		States:      states,
		Offset:      (page - 1) * size,
		Limit:       size,
	}
	if mineOnly {
		f.CreatorUID = v.UID
	}
	list, err := s.rooms.List(ctx, f)
	if err != nil {
		return nil, err
	}

	// 平台范围内的 private 房只有创建者和平台管理员能看到
	if communityID == nil && !v.PlatformAdmin() {
		filtered := list[:0]
		for _, room := range list {
			if room.Visibility == model.VisibilityPrivate && room.CreatorUID != v.UID {
				continue
			}
			filtered = append(filtered, room)
		}
		list = filtered
	}
	return list, nil
}

func (s *RoomService) manageGuard(ctx context.Context, v Viewer, room *model.Room) error {
	cap, err := CapabilityOf(ctx, s.members, room.CommunityID, v.UID)
	if err != nil {
		return err
	}
	if !CanManage(v, room, cap) {
		return pkg.E(pkg.KindUnauthorized, "no manage rights on this room")
	}
	return nil
}

// Start scheduled → live。条件更新保证并发双 start 只成一个；
// 同一操作者的重试拿回现房，不报错。
func (s *RoomService) Start(ctx context.Context, v Viewer, roomID string) (*model.Room, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.manageGuard(ctx, v, room); err != nil {
		return nil, err
	}

	ok, err := s.rooms.UpdateState(ctx, roomID, model.RoomScheduled, model.RoomLive, v.UID)
	if err != nil {
		return nil, err
	}
	cur, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if ok {
		s.emit(ctx, EventRoomStarted, cur)
		return cur, nil
	}
	if cur.State == model.RoomLive && cur.StartedBy != nil && *cur.StartedBy == v.UID {
		return cur, nil // 重试幂等
	}
	return nil, pkg.Ef(pkg.KindInvalidTransition, "cannot start: room is %s, want scheduled", cur.State)
}

// End live → ended。已 ended 再 end 是无操作成功。
func (s *RoomService) End(ctx context.Context, v Viewer, roomID string) (*model.Room, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.manageGuard(ctx, v, room); err != nil {
		return nil, err
	}

	ok, err := s.rooms.UpdateState(ctx, roomID, model.RoomLive, model.RoomEnded, v.UID)
	if err != nil {
		return nil, err
	}
	cur, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if ok {
		s.terminate(ctx, cur, EventRoomEnded)
		return cur, nil
	}
	if cur.State == model.RoomEnded {
		return cur, nil // 重试幂等
	}
	return nil, pkg.Ef(pkg.KindInvalidTransition, "cannot end: room is %s, want live", cur.State)
}

// Cancel scheduled → canceled
func (s *RoomService) Cancel(ctx context.Context, v Viewer, roomID string) (*model.Room, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.manageGuard(ctx, v, room); err != nil {
		return nil, err
	}

	ok, err := s.rooms.UpdateState(ctx, roomID, model.RoomScheduled, model.RoomCanceled, v.UID)
	if err != nil {
		return nil, err
	}
	cur, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.Ef(pkg.KindInvalidTransition, "cannot cancel: room is %s, want scheduled", cur.State)
	}
	s.terminate(ctx, cur, EventRoomCanceled)
	return cur, nil
}

// terminate 终态清理：吊销邀请、清场、发事件。失败只记日志，状态已经落库。
func (s *RoomService) terminate(ctx context.Context, room *model.Room, eventType string) {
	if err := s.invites.Revoke(ctx, room.ID); err != nil {
		log.Printf("revoke invite for room %s: %v", room.ID, err)
	}
	if err := s.participants.Clear(ctx, room.ID); err != nil {
		log.Printf("clear participants for room %s: %v", room.ID, err)
	}
	s.emit(ctx, eventType, room)
}

func (s *RoomService) emit(ctx context.Context, eventType string, room *model.Room) {
	if err := s.outbox.Enqueue(ctx, RoomEvent(eventType, room)); err != nil {
		log.Printf("outbox enqueue %s for room %s: %v", eventType, room.ID, err)
	}
}

// RotateInvite 版主换邀请链接（链接泄露不必重建房间）
func (s *RoomService) RotateInvite(ctx context.Context, v Viewer, roomID string) (string, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return "", err
	}
	if err := s.manageGuard(ctx, v, room); err != nil {
		return "", err
	}
	if room.Visibility != model.VisibilityPrivate {
		return "", pkg.E(pkg.KindInvalidParams, "only private rooms have invite tokens")
	}
	if room.State.Terminal() {
		return "", pkg.Ef(pkg.KindRoomClosed, "room is %s", room.State)
	}
	invite, err := s.invites.Rotate(ctx, roomID)
	if err != nil {
		return "", err
	}
	return s.invites.Link(room.MeetID, invite.Token), nil
}

// ParticipantCount 在场人数
func (s *RoomService) ParticipantCount(ctx context.Context, roomID string) (int64, error) {
	return s.participants.Count(ctx, roomID)
}
