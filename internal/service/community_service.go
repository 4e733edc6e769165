package service

import (
	"context"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"
)

// CommunityService 社区与成员能力查询（capability provider）
type CommunityService struct {
	repo       repository.CommunityRepository
	memberRepo repository.MemberRepository
}

func NewCommunityService(repo repository.CommunityRepository, memberRepo repository.MemberRepository) *CommunityService {
	return &CommunityService{repo: repo, memberRepo: memberRepo}
}

func (s *CommunityService) CreateCommunity(ctx context.Context, userID uint64, name, desc string) (*model.Community, error) {
	if name == "" {
		return nil, pkg.E(pkg.KindInvalidParams, "community name required")
	}

	community := &model.Community{
		Name:        name,
		Description: desc,
		CreatorID:   userID,
	}
	if err := s.repo.Create(ctx, community); err != nil {
		return nil, err
	}
	return community, nil
}

func (s *CommunityService) JoinCommunity(ctx context.Context, userID, communityID uint64) error {
	if _, err := s.repo.FindByID(ctx, communityID); err != nil {
		if err == repository.ErrCommunityNotFound {
			return pkg.E(pkg.KindNotFound, "community not found")
		}
		return err
	}
	return s.memberRepo.Join(ctx, &model.CommunityMember{
		CommunityID: communityID,
		UserID:      userID,
		Role:        model.MemberRoleMember,
	})
}

func (s *CommunityService) LeaveCommunity(ctx context.Context, userID, communityID uint64) error {
	return s.memberRepo.Leave(ctx, communityID, userID)
}

func (s *CommunityService) ListCommunities(ctx context.Context, page, size int) ([]model.Community, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	offset := (page - 1) * size
	return s.repo.List(ctx, offset, size)
}

// Membership 某个社区里的身份与能力
type Membership struct {
	CommunityID       uint64 `json:"community_id"`
	Role              int    `json:"role"`
	CanCreateDirectly bool   `json:"can_create_directly"`
}

// MembershipsOf bootstrap 用：观察者的社区清单与逐社区能力
func (s *CommunityService) MembershipsOf(ctx context.Context, v Viewer) ([]Membership, error) {
	list, err := s.memberRepo.ListByUser(ctx, v.UID)
	if err != nil {
		return nil, err
	}
	result := make([]Membership, 0, len(list))
	for _, m := range list {
		result = append(result, Membership{
			CommunityID:       m.CommunityID,
			Role:              m.Role,
			CanCreateDirectly: v.PlatformAdmin() || m.Role >= model.MemberRoleModerator,
		})
	}
	return result, nil
}
