package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/regaloya/regaloya-api/internal/domain"
	"github.com/regaloya/regaloya-api/internal/repository"
)

var (
	ErrProjectNotFound = repository.ErrProjectNotFound
	ErrNotProjectOwner = errors.New("user is not the owner of this project")
	ErrNoProjectAccess = errors.New("user is neither owner nor contributor of this project")
)

type ProjectRepository interface {
	Create(ctx context.Context, project domain.Project) (domain.Project, error)
	FindByID(ctx context.Context, id uint) (domain.Project, domain.User, error)
	Update(ctx context.Context, project domain.Project) (domain.Project, error)
	Delete(ctx context.Context, id uint) error
	FindAccessible(ctx context.Context, user domain.User) ([]domain.ProjectSummary, error)
	IsContributor(ctx context.Context, projectID uint, user domain.User) (bool, error)
	FindContributions(ctx context.Context, projectID uint) ([]domain.Contribution, error)
	CountContributions(ctx context.Context, projectID uint) (int64, error)
	AddContribution(ctx context.Context, contribution domain.Contribution) (domain.Contribution, domain.Project, error)
}

// ContributionPublisher is told about every committed contribution.
type ContributionPublisher interface {
	PublishContribution(project domain.Project, contribution domain.Contribution)
}

type ProjectService struct {
	repo      ProjectRepository
	publisher ContributionPublisher
}

// NewProjectService builds the service. publisher may be nil.
func NewProjectService(repo ProjectRepository, publisher ContributionPublisher) *ProjectService {
	return &ProjectService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *ProjectService) ListProjects(ctx context.Context, user domain.User) ([]domain.ProjectSummary, error) {
	projects, err := s.repo.FindAccessible(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindAccessible -> %w", err)
	}

	return projects, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id uint, user domain.User) (domain.ProjectDetail, error) {
	project, creator, err := s.authorizeRead(ctx, id, user)
	if err != nil {
		return domain.ProjectDetail{}, err
	}

	contributions, err := s.repo.FindContributions(ctx, id)
	if err != nil {
		return domain.ProjectDetail{}, fmt.Errorf("s.repo.FindContributions -> %w", err)
	}

	return domain.ProjectDetail{
		Project:       project,
		CreatorName:   creator.Username,
		Contributions: contributions,
		Stats:         domain.ComputeStats(contributions),
		IsOwner:       project.IsOwnedBy(user.ID),
	}, nil
}

// CanView returns nil when user may read the project.
func (s *ProjectService) CanView(ctx context.Context, id uint, user domain.User) error {
	_, _, err := s.authorizeRead(ctx, id, user)
	return err
}

func (s *ProjectService) CreateProject(ctx context.Context, project domain.Project, user domain.User) (domain.Project, error) {
	project.ID = 0
	project.CreatorID = user.ID
	project.CurrentAmount = decimal.Zero

	created, err := s.repo.Create(ctx, project)
	if err != nil {
		return domain.Project{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, project domain.Project, user domain.User) (domain.Project, error) {
	if _, err := s.authorizeOwner(ctx, project.ID, user); err != nil {
		return domain.Project{}, err
	}

	project.CreatorID = user.ID
	updated, err := s.repo.Update(ctx, project)
	if err != nil {
		return domain.Project{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	return updated, nil
}

func (s *ProjectService) DeleteProject(ctx context.Context, id uint, user domain.User) error {
	if _, err := s.authorizeOwner(ctx, id, user); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("s.repo.Delete -> %w", err)
	}

	return nil
}

// Contribute records a pledge by user and bumps the project's running
// total. The contribution keeps both the free-text display name and the id
// of the account that submitted it.
func (s *ProjectService) Contribute(ctx context.Context, contribution domain.Contribution, user domain.User) (domain.Contribution, domain.Project, error) {
	contribution.ID = 0
	contributorID := user.ID
	contribution.ContributorID = &contributorID

	created, project, err := s.repo.AddContribution(ctx, contribution)
	if err != nil {
		return domain.Contribution{}, domain.Project{}, fmt.Errorf("s.repo.AddContribution -> %w", err)
	}

	if s.publisher != nil {
		s.publisher.PublishContribution(project, created)
	}

	return created, project, nil
}

// GetSharedProject returns the public card of a project. Private projects
// are reported as not found.
func (s *ProjectService) GetSharedProject(ctx context.Context, id uint) (domain.SharedProject, error) {
	project, creator, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.SharedProject{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if !project.IsPublic {
		return domain.SharedProject{}, ErrProjectNotFound
	}

	count, err := s.repo.CountContributions(ctx, id)
	if err != nil {
		return domain.SharedProject{}, fmt.Errorf("s.repo.CountContributions -> %w", err)
	}

	return domain.SharedProject{
		ID:                project.ID,
		Title:             project.Title,
		Description:       project.Description,
		TargetAmount:      project.TargetAmount,
		CurrentAmount:     project.CurrentAmount,
		EventDate:         project.EventDate,
		Location:          project.Location,
		ImageURL:          project.ImageURL,
		CreatorName:       creator.Username,
		ContributionCount: count,
		Progress:          project.Progress(),
	}, nil
}

func (s *ProjectService) authorizeRead(ctx context.Context, id uint, user domain.User) (domain.Project, domain.User, error) {
	project, creator, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Project{}, domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if project.IsOwnedBy(user.ID) {
		return project, creator, nil
	}

	ok, err := s.repo.IsContributor(ctx, id, user)
	if err != nil {
		return domain.Project{}, domain.User{}, fmt.Errorf("s.repo.IsContributor -> %w", err)
	}
	if !ok {
		return domain.Project{}, domain.User{}, ErrNoProjectAccess
	}

	return project, creator, nil
}

func (s *ProjectService) authorizeOwner(ctx context.Context, id uint, user domain.User) (domain.Project, error) {
	project, _, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Project{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if !project.IsOwnedBy(user.ID) {
		return domain.Project{}, ErrNotProjectOwner
	}

	return project, nil
}
