package dao

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrProjectNotFound = errors.New("project not found")

type Project struct {
	ID uint `gorm:"primaryKey"`

	Title         string          `gorm:"not null;size:120"`
	Description   string          `gorm:"type:text"`
	TargetAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CurrentAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	EventDate     *time.Time
	Location      string
	ImageURL      string
	CreatorID     uint `gorm:"not null;index"`
	Creator       User `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE"`
	IsPublic      bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Contribution struct {
	ID uint `gorm:"primaryKey"`

	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Message         string          `gorm:"type:text"`
	ContributorName string          `gorm:"not null;size:100;index"`
	ContributorID   *uint           `gorm:"index"`
	ProjectID       uint            `gorm:"not null;index"`
	Project         Project         `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
}

// ProjectRow is one line of the access-scoped listing.
type ProjectRow struct {
	ID                uint
	Title             string
	Description       string
	TargetAmount      decimal.Decimal
	CurrentAmount     decimal.Decimal
	EventDate         *time.Time
	Location          string
	ImageURL          string
	CreatorID         uint
	IsPublic          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ContributionCount int64
	IsOwner           bool
}

// accessibleProjectsQuery lists the projects a user owns plus the ones
// they contributed to, each with its contribution count. A contribution
// relates a user either by its contributor_id or by a contributor_name equal
// to the username.
const accessibleProjectsQuery = `
SELECT p.id, p.title, p.description, p.target_amount, p.current_amount, p.event_date,
       p.location, p.image_url, p.creator_id, p.is_public, p.created_at, p.updated_at,
       COUNT(c.id) AS contribution_count, TRUE AS is_owner
FROM projects p
LEFT JOIN contributions c ON c.project_id = p.id
WHERE p.creator_id = @user_id
GROUP BY p.id
UNION ALL
SELECT p.id, p.title, p.description, p.target_amount, p.current_amount, p.event_date,
       p.location, p.image_url, p.creator_id, p.is_public, p.created_at, p.updated_at,
       COUNT(c.id) AS contribution_count, FALSE AS is_owner
FROM projects p
LEFT JOIN contributions c ON c.project_id = p.id
WHERE p.creator_id <> @user_id
  AND EXISTS (
    SELECT 1 FROM contributions mine
    WHERE mine.project_id = p.id
      AND (mine.contributor_name = @username OR mine.contributor_id = @user_id)
  )
GROUP BY p.id
ORDER BY created_at DESC, id DESC`

type ProjectDAO struct {
	db *gorm.DB
}

func NewProjectDAO(db *gorm.DB) *ProjectDAO {
	return &ProjectDAO{
		db: db,
	}
}

func (d *ProjectDAO) Insert(ctx context.Context, project Project) (Project, error) {
	result := d.db.WithContext(ctx).Omit(clause.Associations).Create(&project)
	if result.Error != nil {
		return Project{}, result.Error
	}

	return project, nil
}

// FindByID loads a project together with its creator.
func (d *ProjectDAO) FindByID(ctx context.Context, id uint) (Project, error) {
	var project Project

	result := d.db.WithContext(ctx).Preload("Creator").First(&project, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Project{}, ErrProjectNotFound
		}

		return Project{}, result.Error
	}

	return project, nil
}

// Update overwrites the editable columns. The running total is never
// touched here.
func (d *ProjectDAO) Update(ctx context.Context, project Project) (Project, error) {
	var updated Project

	result := d.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ?", project.ID).
		Updates(map[string]interface{}{
			"title":         project.Title,
			"description":   project.Description,
			"target_amount": project.TargetAmount,
			"event_date":    project.EventDate,
			"location":      project.Location,
			"image_url":     project.ImageURL,
			"is_public":     project.IsPublic,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return Project{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Project{}, ErrProjectNotFound
	}

	return updated, nil
}

func (d *ProjectDAO) Delete(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&Project{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}

	return nil
}

func (d *ProjectDAO) FindAccessible(ctx context.Context, userID uint, username string) ([]ProjectRow, error) {
	var rows []ProjectRow

	result := d.db.WithContext(ctx).
		Raw(accessibleProjectsQuery, map[string]interface{}{
			"user_id":  userID,
			"username": username,
		}).
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	return rows, nil
}

// IsContributor reports whether the user has at least one contribution on
// the project, by id or by name.
func (d *ProjectDAO) IsContributor(ctx context.Context, projectID, userID uint, username string) (bool, error) {
	var exists bool

	result := d.db.WithContext(ctx).
		Raw(`SELECT EXISTS (
			SELECT 1 FROM contributions
			WHERE project_id = ? AND (contributor_name = ? OR contributor_id = ?)
		)`, projectID, username, userID).
		Scan(&exists)
	if result.Error != nil {
		return false, result.Error
	}

	return exists, nil
}

func (d *ProjectDAO) FindContributions(ctx context.Context, projectID uint) ([]Contribution, error) {
	var contributions []Contribution

	result := d.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Find(&contributions)
	if result.Error != nil {
		return nil, result.Error
	}

	return contributions, nil
}

func (d *ProjectDAO) CountContributions(ctx context.Context, projectID uint) (int64, error) {
	var count int64

	result := d.db.WithContext(ctx).Model(&Contribution{}).Where("project_id = ?", projectID).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// InsertContribution bumps the project's running total and records the
// contribution in one transaction, returning both rows as committed. A
// missing project rolls back with ErrProjectNotFound before anything is
// written.
func (d *ProjectDAO) InsertContribution(ctx context.Context, contribution Contribution) (Contribution, Project, error) {
	var project Project

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&project).
			Clauses(clause.Returning{}).
			Where("id = ?", contribution.ProjectID).
			Updates(map[string]interface{}{
				"current_amount": gorm.Expr("current_amount + ?", contribution.Amount),
				"updated_at":     time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProjectNotFound
		}

		return tx.Omit(clause.Associations).Create(&contribution).Error
	})
	if err != nil {
		return Contribution{}, Project{}, err
	}

	return contribution, project, nil
}
