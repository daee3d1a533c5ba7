package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service logs users in and registers new ones.
type Service struct {
	users             store.UserStore
	tokens            *TokenManager
	allowRegistration bool
	log               *zap.Logger
}

func NewService(users store.UserStore, tokens *TokenManager, allowRegistration bool, log *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, allowRegistration: allowRegistration, log: log}
}

// Session is a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.Generate(user)
	if err != nil {
		return nil, apperrors.Internal("failed to generate token").Wrap(err)
	}
	s.log.Info("user logged in", zap.String("userId", user.ID), zap.String("role", user.Role))
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

type Registration struct {
	Username string
	Email    string
	Password string
}

// Register creates a user. The first user of an empty store becomes admin.
func (s *Service) Register(ctx context.Context, r Registration) (*models.User, error) {
	if !s.allowRegistration {
		return nil, apperrors.Forbidden("registration is disabled")
	}
	if len(r.Password) < 8 {
		return nil, apperrors.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password").Wrap(err)
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	role := models.RoleStaff
	if count == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(r.Username),
		Email:        strings.TrimSpace(r.Email),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("username is already taken")
		}
		return nil, apperrors.Storage(err)
	}
	s.log.Info("user registered", zap.String("userId", user.ID), zap.String("role", role))
	return user, nil
}

// Me returns the stored user behind an identity.
func (s *Service) Me(ctx context.Context, id Identity) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return user, nil
}
