package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/repository/dao"
)

var ErrSessionNotFound = dao.ErrSessionNotFound

type SessionDAO interface {
	Insert(ctx context.Context, session dao.Session) (dao.Session, error)
	FindByID(ctx context.Context, id string) (dao.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, userID uint, now time.Time) (int64, error)
}

type SessionRepository struct {
	dao SessionDAO
}

func NewSessionRepository(dao SessionDAO) *SessionRepository {
	return &SessionRepository{
		dao: dao,
	}
}

func (r *SessionRepository) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	created, err := r.dao.Insert(ctx, dao.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		UserAgent: session.UserAgent,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return sessionDaoToDomain(created), nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (domain.Session, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return sessionDaoToDomain(found), nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, userID uint, now time.Time) (int64, error) {
	n, err := r.dao.DeleteExpired(ctx, userID, now)
	if err != nil {
		return 0, fmt.Errorf("r.dao.DeleteExpired -> %w", err)
	}

	return n, nil
}

func sessionDaoToDomain(s dao.Session) domain.Session {
	return domain.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		UserAgent: s.UserAgent,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}
