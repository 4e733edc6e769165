package service

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"

	"github.com/google/uuid"
)

// Notifier 审批结果通知出口（邮件等），失败不影响主流程
type Notifier interface {
	RequestApproved(ctx context.Context, requesterUID uint64, meetName, inviteLink string)
	RequestRejected(ctx context.Context, requesterUID uint64, meetName, note string)
}

type RequestService struct {
	requests repository.RoomRequestRepository
	members  repository.MemberRepository
	invites  *InviteService
	notifier Notifier // 可为 nil
	window   time.Duration
	now      func() time.Time
}

func NewRequestService(requests repository.RoomRequestRepository, members repository.MemberRepository,
	invites *InviteService, notifier Notifier, window time.Duration) *RequestService {
	if window <= 0 {
		window = 72 * time.Hour
	}
	return &RequestService{
		requests: requests,
		members:  members,
		invites:  invites,
		notifier: notifier,
		window:   window,
		now:      time.Now,
	}
}

// Submit 只收无直建权用户的申请；有直建权的请走直建接口，这里直接拒
func (s *RequestService) Submit(ctx context.Context, v Viewer, meetName string,
	vis model.RoomVisibility, communityID *uint64) (*model.RoomRequest, error) {
	n := utf8.RuneCountInString(meetName)
	if n < 1 || n > MaxMeetNameLen {
		return nil, pkg.Ef(pkg.KindInvalidParams, "meet name must be 1-%d chars", MaxMeetNameLen)
	}
	if err := ValidateVisibility(vis, communityID); err != nil {
		return nil, err
	}

	cap, err := CapabilityOf(ctx, s.members, communityID, v.UID)
	if err != nil {
		return nil, err
	}
	if communityID != nil && !cap.IsMember {
		return nil, pkg.E(pkg.KindNotCommunityMember, "not a member of this community")
	}
	modAny, err := s.moderatesAny(ctx, v.UID)
	if err != nil {
		return nil, err
	}
	if CanCreateDirectly(v, vis, cap, modAny) {
		return nil, pkg.E(pkg.KindInvalidParams, "caller has direct-create rights, use create instead")
	}

	now := s.now()
	req := &model.RoomRequest{
		ID:           uuid.NewString(),
		MeetName:     meetName,
		Visibility:   vis,
		CommunityID:  communityID,
		RequesterUID: v.UID,
		Status:       model.RequestPending,
		ExpiresAt:    now.Add(s.window),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequestService) moderatesAny(ctx context.Context, uid uint64) (bool, error) {
	ids, err := s.members.ModeratedCommunityIDs(ctx, uid)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// scopeFor 平台 admin 全范围；其余只看自己当版主的社区
func (s *RequestService) scopeFor(ctx context.Context, v Viewer) (repository.RequestScope, error) {
	if v.PlatformAdmin() {
		return repository.RequestScope{All: true}, nil
	}
	ids, err := s.members.ModeratedCommunityIDs(ctx, v.UID)
	if err != nil {
		return repository.RequestScope{}, err
	}
	return repository.RequestScope{CommunityIDs: ids}, nil
}

func (s *RequestService) ListPending(ctx context.Context, v Viewer) ([]model.RoomRequest, error) {
	scope, err := s.scopeFor(ctx, v)
	if err != nil {
		return nil, err
	}
	return s.requests.ListPending(ctx, scope, s.now())
}

func (s *RequestService) CountPending(ctx context.Context, v Viewer) (int64, error) {
	scope, err := s.scopeFor(ctx, v)
	if err != nil {
		return 0, err
	}
	return s.requests.CountPending(ctx, scope, s.now())
}

// Get 读侧过期：pending 超了 expires_at 的按 expired 上报，不急着写库
func (s *RequestService) Get(ctx context.Context, id string) (*model.RoomRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err == repository.ErrRequestNotFound {
		return nil, pkg.E(pkg.KindNotFound, "request not found")
	}
	if err != nil {
		return nil, err
	}
	req.Status = req.EffectiveStatus(s.now())
	return req, nil
}

// approverGuard 审批人对申请范围的权限
func (s *RequestService) approverGuard(ctx context.Context, v Viewer, req *model.RoomRequest) error {
	if v.PlatformAdmin() {
		return nil
	}
	if req.CommunityID == nil {
		// 平台范围的申请只有平台管理员能批
		return pkg.E(pkg.KindUnauthorized, "no authority over this request")
	}
	cap, err := CapabilityOf(ctx, s.members, req.CommunityID, v.UID)
	if err != nil {
		return err
	}
	if !cap.IsModerator {
		return pkg.E(pkg.KindUnauthorized, "no authority over this request")
	}
	return nil
}

// ApproveResult 批准产物：房间 + （私密房）可分享的邀请链接。
// 申请人没有管理权，拿不到别的令牌入口，链接只在这里浮出一次。
type ApproveResult struct {
	Room       *model.Room
	InviteLink string
}

// Approve 置 approved 并建房，一个事务，绝不出现批了没房或有房没批
func (s *RequestService) Approve(ctx context.Context, v Viewer, requestID, note string) (*ApproveResult, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.approverGuard(ctx, v, req); err != nil {
		return nil, err
	}

	now := s.now()
	for i := 0; i < maxMeetCodeRetry; i++ {
		meetID, err := pkg.RandMeetCode(MeetCodeLen)
		if err != nil {
			return nil, err
		}
		room := &model.Room{
			ID:              uuid.NewString(),
			MeetID:          meetID,
			MeetName:        req.MeetName,
			Visibility:      req.Visibility,
			CommunityID:     req.CommunityID,
			State:           model.RoomScheduled,
			CreatorUID:      req.RequesterUID,
			MaxParticipants: DefaultMaxParticipants,
			AllowMic:        true,
			AllowVideo:      true,
			AllowScreen:     true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		var invite *model.RoomInvite
		if req.Visibility == model.VisibilityPrivate {
			if invite, err = s.invites.Mint(room.ID); err != nil {
				return nil, err
			}
		}

		err = s.requests.Approve(ctx, requestID, v.UID, note, now, room, invite, RoomEvent(EventRequestApproved, room))
		if err == repository.ErrMeetIDExists {
			continue
		}
		if err != nil {
			return nil, err
		}

		res := &ApproveResult{Room: room}
		if invite != nil {
			res.InviteLink = s.invites.Link(room.MeetID, invite.Token)
		}
		if s.notifier != nil {
			s.notifier.RequestApproved(ctx, req.RequesterUID, req.MeetName, res.InviteLink)
		}
		return res, nil
	}
	return nil, repository.ErrMeetIDExists
}

func (s *RequestService) Reject(ctx context.Context, v Viewer, requestID, note string) (*model.RoomRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.approverGuard(ctx, v, req); err != nil {
		return nil, err
	}
	if err := s.requests.Reject(ctx, requestID, v.UID, note, s.now()); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.RequestRejected(ctx, req.RequesterUID, req.MeetName, note)
	}
	return s.Get(ctx, requestID)
}

// RunExpirer 后台定时把过期 pending 落为 expired
func (s *RequestService) RunExpirer(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.requests.ExpireDue(ctx, s.now())
			if err != nil {
				log.Printf("request expirer: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("request expirer: %d requests expired", n)
			}
		}
	}
}
