package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	UserID    uint   `gorm:"not null;index"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	UserAgent string
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type SessionDAO struct {
	db *gorm.DB
}

func NewSessionDAO(db *gorm.DB) *SessionDAO {
	return &SessionDAO{
		db: db,
	}
}

func (d *SessionDAO) Insert(ctx context.Context, session Session) (Session, error) {
	result := d.db.WithContext(ctx).Omit("User").Create(&session)
	if result.Error != nil {
		return Session{}, result.Error
	}

	return session, nil
}

func (d *SessionDAO) FindByID(ctx context.Context, id string) (Session, error) {
	var session Session

	result := d.db.WithContext(ctx).First(&session, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Session{}, ErrSessionNotFound
		}

		return Session{}, result.Error
	}

	return session, nil
}

func (d *SessionDAO) Delete(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Delete(&Session{}, "id = ?", id).Error
}

// DeleteExpired removes the sessions of userID that expired before now and
// returns how many were removed.
func (d *SessionDAO) DeleteExpired(ctx context.Context, userID uint, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).
		Where("user_id = ? AND expires_at <= ?", userID, now).
		Delete(&Session{})

	return result.RowsAffected, result.Error
}
