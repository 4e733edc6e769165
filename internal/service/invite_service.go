package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"
)

const credentialMsg = "invalid room credentials" // token/密码错误统一话术，不给枚举口子

// InviteService 私密房邀请令牌的发放/轮换/校验
type InviteService struct {
	invites  repository.RoomInviteRepository
	linkBase string
}

func NewInviteService(invites repository.RoomInviteRepository, linkBase string) *InviteService {
	return &InviteService{invites: invites, linkBase: linkBase}
}

// Mint 只生成不落库，给建房事务用
func (s *InviteService) Mint(roomID string) (*model.RoomInvite, error) {
	token, err := pkg.RandInviteToken()
	if err != nil {
		return nil, err
	}
	return &model.RoomInvite{
		RoomID:   roomID,
		Token:    token,
		IssuedAt: time.Now(),
	}, nil
}

// Rotate 换新令牌，旧链接立刻失效
func (s *InviteService) Rotate(ctx context.Context, roomID string) (*model.RoomInvite, error) {
	invite, err := s.Mint(roomID)
	if err != nil {
		return nil, err
	}
	if err := s.invites.Upsert(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// Validate 常量时间比对；房间无令牌或不匹配都报同一种错
func (s *InviteService) Validate(ctx context.Context, roomID, token string) error {
	invite, err := s.invites.FindByRoom(ctx, roomID)
	if err != nil {
		if err == repository.ErrInviteNotFound {
			return pkg.E(pkg.KindInvalidInviteToken, credentialMsg)
		}
		return err
	}
	if !pkg.TokenEqual(invite.Token, token) {
		return pkg.E(pkg.KindInvalidInviteToken, credentialMsg)
	}
	return nil
}

// Revoke 房间终止时吊销，幂等
func (s *InviteService) Revoke(ctx context.Context, roomID string) error {
	return s.invites.DeleteByRoom(ctx, roomID)
}

// Link 拼可分享的邀请链接
func (s *InviteService) Link(meetID, token string) string {
	return fmt.Sprintf("%s/%s?invite=%s", s.linkBase, url.PathEscape(meetID), token)
}
