package dao

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDAO_Insert(t *testing.T) {
	gdb := freshDB(t)
	d := NewUserDAO(gdb)
	ctx := context.Background()

	created, err := d.Insert(ctx, User{Username: "ana", Password: "hash"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = d.Insert(ctx, User{Username: "ana", Password: "other"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	var count int64
	require.NoError(t, gdb.Model(&User{}).Where("username = ?", "ana").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserDAO_Find(t *testing.T) {
	d := NewUserDAO(freshDB(t))
	ctx := context.Background()

	created, err := d.Insert(ctx, User{Username: "luis", Password: "hash"})
	require.NoError(t, err)

	byID, err := d.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "luis", byID.Username)

	byName, err := d.FindByUsername(ctx, "luis")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = d.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = d.FindByID(ctx, created.ID+100)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSessionDAO(t *testing.T) {
	gdb := freshDB(t)
	ctx := context.Background()

	user, err := NewUserDAO(gdb).Insert(ctx, User{Username: "ana", Password: "hash"})
	require.NoError(t, err)

	d := NewSessionDAO(gdb)
	now := time.Now()

	live, err := d.Insert(ctx, Session{ID: "6f1c1d7e-3c55-4d6a-9c58-0a3bc1a2f001", UserID: user.ID, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = d.Insert(ctx, Session{ID: "6f1c1d7e-3c55-4d6a-9c58-0a3bc1a2f002", UserID: user.ID, ExpiresAt: now.Add(-time.Hour)})
	require.NoError(t, err)

	found, err := d.FindByID(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)

	removed, err := d.DeleteExpired(ctx, user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	require.NoError(t, d.Delete(ctx, live.ID))
	_, err = d.FindByID(ctx, live.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
