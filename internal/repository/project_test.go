package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/repository/dao"
)

type stubProjectDAO struct {
	ProjectDAO

	rows         []dao.ProjectRow
	gotUserID    uint
	gotUsername  string
	contribution dao.Contribution
	err          error
}

func (s *stubProjectDAO) FindAccessible(_ context.Context, userID uint, username string) ([]dao.ProjectRow, error) {
	s.gotUserID, s.gotUsername = userID, username
	return s.rows, s.err
}

func (s *stubProjectDAO) InsertContribution(_ context.Context, c dao.Contribution) (dao.Contribution, dao.Project, error) {
	s.contribution = c
	if s.err != nil {
		return dao.Contribution{}, dao.Project{}, s.err
	}
	c.ID = 9
	return c, dao.Project{ID: c.ProjectID, CurrentAmount: c.Amount}, nil
}

func (s *stubProjectDAO) FindByID(_ context.Context, id uint) (dao.Project, error) {
	if s.err != nil {
		return dao.Project{}, s.err
	}
	return dao.Project{ID: id, CreatorID: 3, Creator: dao.User{ID: 3, Username: "ana"}}, nil
}

func TestProjectRepository_FindAccessible(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubProjectDAO{rows: []dao.ProjectRow{{
		ID:                1,
		Title:             "Gift",
		TargetAmount:      decimal.NewFromInt(1000),
		CurrentAmount:     decimal.NewFromInt(500),
		CreatorID:         3,
		CreatedAt:         created,
		ContributionCount: 2,
		IsOwner:           true,
	}}}
	r := NewProjectRepository(stub)

	got, err := r.FindAccessible(context.Background(), domain.User{ID: 3, Username: "ana"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, uint(3), stub.gotUserID)
	assert.Equal(t, "ana", stub.gotUsername)
	assert.Equal(t, "Gift", got[0].Title)
	assert.Equal(t, int64(2), got[0].ContributionCount)
	assert.True(t, got[0].IsOwner)
	assert.Equal(t, created, got[0].CreatedAt)
}

func TestProjectRepository_AddContribution(t *testing.T) {
	stub := &stubProjectDAO{}
	r := NewProjectRepository(stub)
	uid := uint(4)

	c, p, err := r.AddContribution(context.Background(), domain.Contribution{
		ProjectID:       1,
		Amount:          decimal.NewFromInt(300),
		ContributorName: "Ana",
		ContributorID:   &uid,
		Message:         "hola",
	})
	require.NoError(t, err)

	assert.Equal(t, uint(9), c.ID)
	assert.Equal(t, "Ana", stub.contribution.ContributorName)
	assert.Equal(t, &uid, stub.contribution.ContributorID)
	assert.True(t, p.CurrentAmount.Equal(decimal.NewFromInt(300)))
}

func TestProjectRepository_WrapsSentinelErrors(t *testing.T) {
	stub := &stubProjectDAO{err: dao.ErrProjectNotFound}
	r := NewProjectRepository(stub)

	_, _, err := r.AddContribution(context.Background(), domain.Contribution{ProjectID: 1})
	assert.True(t, errors.Is(err, ErrProjectNotFound))

	_, _, err = r.FindByID(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrProjectNotFound))
}

func TestProjectRepository_FindByIDReturnsCreator(t *testing.T) {
	r := NewProjectRepository(&stubProjectDAO{})

	p, creator, err := r.FindByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, uint(5), p.ID)
	assert.Equal(t, "ana", creator.Username)
}
