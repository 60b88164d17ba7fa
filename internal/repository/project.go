package repository

import (
	"context"
	"fmt"

	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/repository/dao"
)

var ErrProjectNotFound = dao.ErrProjectNotFound

type ProjectDAO interface {
	Insert(ctx context.Context, project dao.Project) (dao.Project, error)
	FindByID(ctx context.Context, id uint) (dao.Project, error)
	Update(ctx context.Context, project dao.Project) (dao.Project, error)
	Delete(ctx context.Context, id uint) error
	FindAccessible(ctx context.Context, userID uint, username string) ([]dao.ProjectRow, error)
	IsContributor(ctx context.Context, projectID, userID uint, username string) (bool, error)
	FindContributions(ctx context.Context, projectID uint) ([]dao.Contribution, error)
	CountContributions(ctx context.Context, projectID uint) (int64, error)
	InsertContribution(ctx context.Context, contribution dao.Contribution) (dao.Contribution, dao.Project, error)
}

type ProjectRepository struct {
	dao ProjectDAO
}

func NewProjectRepository(dao ProjectDAO) *ProjectRepository {
	return &ProjectRepository{
		dao: dao,
	}
}

func (r *ProjectRepository) Create(ctx context.Context, project domain.Project) (domain.Project, error) {
	created, err := r.dao.Insert(ctx, projectDomainToDao(project))
	if err != nil {
		return domain.Project{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return projectDaoToDomain(created), nil
}

// FindByID returns the project and the user who created it.
func (r *ProjectRepository) FindByID(ctx context.Context, id uint) (domain.Project, domain.User, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Project{}, domain.User{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return projectDaoToDomain(found), userDaoToDomain(found.Creator), nil
}

func (r *ProjectRepository) Update(ctx context.Context, project domain.Project) (domain.Project, error) {
	updated, err := r.dao.Update(ctx, projectDomainToDao(project))
	if err != nil {
		return domain.Project{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return projectDaoToDomain(updated), nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *ProjectRepository) FindAccessible(ctx context.Context, user domain.User) ([]domain.ProjectSummary, error) {
	rows, err := r.dao.FindAccessible(ctx, user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAccessible -> %w", err)
	}

	summaries := make([]domain.ProjectSummary, len(rows))
	for i, row := range rows {
		summaries[i] = domain.ProjectSummary{
			Project: domain.Project{
				ID:            row.ID,
				Title:         row.Title,
				Description:   row.Description,
				TargetAmount:  row.TargetAmount,
				CurrentAmount: row.CurrentAmount,
				EventDate:     row.EventDate,
				Location:      row.Location,
				ImageURL:      row.ImageURL,
				CreatorID:     row.CreatorID,
				IsPublic:      row.IsPublic,
				CreatedAt:     row.CreatedAt,
				UpdatedAt:     row.UpdatedAt,
			},
			ContributionCount: row.ContributionCount,
			IsOwner:           row.IsOwner,
		}
	}

	return summaries, nil
}

func (r *ProjectRepository) IsContributor(ctx context.Context, projectID uint, user domain.User) (bool, error) {
	ok, err := r.dao.IsContributor(ctx, projectID, user.ID, user.Username)
	if err != nil {
		return false, fmt.Errorf("r.dao.IsContributor -> %w", err)
	}

	return ok, nil
}

func (r *ProjectRepository) FindContributions(ctx context.Context, projectID uint) ([]domain.Contribution, error) {
	found, err := r.dao.FindContributions(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindContributions -> %w", err)
	}

	contributions := make([]domain.Contribution, len(found))
	for i, c := range found {
		contributions[i] = contributionDaoToDomain(c)
	}

	return contributions, nil
}

func (r *ProjectRepository) CountContributions(ctx context.Context, projectID uint) (int64, error) {
	count, err := r.dao.CountContributions(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountContributions -> %w", err)
	}

	return count, nil
}

func (r *ProjectRepository) AddContribution(ctx context.Context, contribution domain.Contribution) (domain.Contribution, domain.Project, error) {
	created, project, err := r.dao.InsertContribution(ctx, dao.Contribution{
		Amount:          contribution.Amount,
		Message:         contribution.Message,
		ContributorName: contribution.ContributorName,
		ContributorID:   contribution.ContributorID,
		ProjectID:       contribution.ProjectID,
	})
	if err != nil {
		return domain.Contribution{}, domain.Project{}, fmt.Errorf("r.dao.InsertContribution -> %w", err)
	}

	return contributionDaoToDomain(created), projectDaoToDomain(project), nil
}

func projectDomainToDao(p domain.Project) dao.Project {
	return dao.Project{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		TargetAmount:  p.TargetAmount,
		CurrentAmount: p.CurrentAmount,
		EventDate:     p.EventDate,
		Location:      p.Location,
		ImageURL:      p.ImageURL,
		CreatorID:     p.CreatorID,
		IsPublic:      p.IsPublic,
	}
}

func projectDaoToDomain(p dao.Project) domain.Project {
	return domain.Project{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		TargetAmount:  p.TargetAmount,
		CurrentAmount: p.CurrentAmount,
		EventDate:     p.EventDate,
		Location:      p.Location,
		ImageURL:      p.ImageURL,
		CreatorID:     p.CreatorID,
		IsPublic:      p.IsPublic,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func contributionDaoToDomain(c dao.Contribution) domain.Contribution {
	return domain.Contribution{
		ID:              c.ID,
		Amount:          c.Amount,
		Message:         c.Message,
		ContributorName: c.ContributorName,
		ContributorID:   c.ContributorID,
		ProjectID:       c.ProjectID,
		CreatedAt:       c.CreatedAt,
	}
}
