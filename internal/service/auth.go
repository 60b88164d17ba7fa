package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/regaloya/regaloya-api/internal/config"
	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/pkg/jwthelper"
	"github.com/regaloya/regaloya-api/internal/pkg/password"
	"github.com/regaloya/regaloya-api/internal/repository"
)

var (
	ErrUsernameExists = repository.ErrUsernameExists
	ErrWrongPassword  = errors.New("wrong password")
	ErrSessionInvalid = errors.New("session is invalid or expired")
)

type AuthUserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)
	FindByID(ctx context.Context, id string) (domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, userID uint, now time.Time) (int64, error)
}

type AuthService struct {
	repo     AuthUserRepository
	sessions SessionRepository
	conf     *config.SessionConfig
	now      func() time.Time
}

func NewAuthService(repo AuthUserRepository, sessions SessionRepository, conf *config.SessionConfig) *AuthService {
	return &AuthService{
		repo:     repo,
		sessions: sessions,
		conf:     conf,
		now:      time.Now,
	}
}

func (s *AuthService) Signup(ctx context.Context, user domain.User) (domain.User, error) {
	if err := s.checkUsernameExists(ctx, user.Username); err != nil {
		return domain.User{}, err
	}

	hash, err := password.Hash(user.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("password.Hash -> %w", err)
	}
	user.Password = hash

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

func (s *AuthService) Login(ctx context.Context, username, plain string) (domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.User{}, ErrUserNotFound
		}

		return domain.User{}, fmt.Errorf("s.repo.FindByUsername -> %w", err)
	}

	if err = password.Compare(user.Password, plain); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return domain.User{}, ErrWrongPassword
		}

		return domain.User{}, fmt.Errorf("password.Compare -> %w", err)
	}

	return user, nil
}

// OpenSession stores a new session for user and returns the signed cookie
// value with its expiry.
func (s *AuthService) OpenSession(ctx context.Context, user domain.User, userAgent string) (string, time.Time, error) {
	now := s.now()

	if n, err := s.sessions.DeleteExpired(ctx, user.ID, now); err != nil {
		zap.L().Warn("failed to prune expired sessions", zap.Uint("user_id", user.ID), zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("pruned expired sessions", zap.Uint("user_id", user.ID), zap.Int64("count", n))
	}

	session, err := s.sessions.Create(ctx, domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.conf.TTL),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("s.sessions.Create -> %w", err)
	}

	token, err := jwthelper.GenerateToken([]byte(s.conf.Secret), session.ID, user.ID, userAgent, session.ExpiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwthelper.GenerateToken -> %w", err)
	}

	return token, session.ExpiresAt, nil
}

// Authenticate resolves a session cookie value to its live session. Any
// token that fails verification, points to a missing or expired session, or
// names another user yields ErrSessionInvalid.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	claims, err := jwthelper.ParseToken([]byte(s.conf.Secret), token)
	if err != nil {
		return domain.Session{}, ErrSessionInvalid
	}

	userID, err := claims.UserID()
	if err != nil {
		return domain.Session{}, ErrSessionInvalid
	}

	session, err := s.sessions.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return domain.Session{}, ErrSessionInvalid
		}

		return domain.Session{}, fmt.Errorf("s.sessions.FindByID -> %w", err)
	}

	if session.UserID != userID || session.Expired(s.now()) {
		return domain.Session{}, ErrSessionInvalid
	}

	return session, nil
}

// Logout deletes the session behind token. Unverifiable tokens are ignored
// so that logging out twice is harmless.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := jwthelper.ParseToken([]byte(s.conf.Secret), token)
	if err != nil {
		return nil
	}

	if err = s.sessions.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("s.sessions.Delete -> %w", err)
	}

	return nil
}

func (s *AuthService) checkUsernameExists(ctx context.Context, username string) error {
	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return ErrUsernameExists
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("s.repo.FindByUsername -> %w", err)
	}

	return nil
}
