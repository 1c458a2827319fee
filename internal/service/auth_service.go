package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"gather/internal/model"
	"gather/pkg/rbac"
	"gather/pkg/util"
)

const minPasswordLen = 8

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthService(users UserStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger}
}

// Register creates a user and returns a session token for it.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", fmt.Errorf("%w: invalid email", model.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", model.ErrInvalidInput, minPasswordLen)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
		Role:         rbac.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, "", fmt.Errorf("%w: email already registered", model.ErrConflict)
		}
		return nil, "", err
	}
	token, err := util.GenerateJWT(u.ID, u.Role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("User registered", zap.Int64("user_id", u.ID))
	return u, token, nil
}

// Login checks credentials and returns a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !util.CheckPassword(password, u.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := util.GenerateJWT(u.ID, u.Role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
