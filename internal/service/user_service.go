package service

import (
	"context"
	"errors"

	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"
	"Lee_Meet/internal/repository/redis"

	"Lee_Meet/internal/model"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	repo  repository.UserRepository
	rUser *redis.UserRepository
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{
		repo:  repo,
		rUser: &redis.UserRepository{},
	}
}

func (s *UserService) Register(ctx context.Context, username, password, email string) error {
	if username == "" || password == "" || email == "" {
		return errors.New("username, password and email required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &model.User{
		Username: username,
		Password: string(hash),
		Email:    email,
	}
	return s.repo.Create(ctx, user)
}

func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.New("user not found")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, errors.New("invalid password")
	}
	// 将token写入redis
	token, err := pkg.GeneratePair(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	if err = s.rUser.AddUserToken(user.ID, token.AccessToken); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *UserService) Logout(usrID uint64) error {
	return s.rUser.DeleteUserToken(usrID)
}

func (s *UserService) Refresh(refreshToken string) (*pkg.Pair, error) {
	return pkg.Refresh(refreshToken)
}
