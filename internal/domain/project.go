package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Project struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	EventDate     *time.Time      `json:"event_date"`
	Location      string          `json:"location"`
	ImageURL      string          `json:"image_url"`
	CreatorID     uint            `json:"creator_id"`
	IsPublic      bool            `json:"is_public"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProjectSummary is a row of the per-user project listing.
type ProjectSummary struct {
	Project
	ContributionCount int64 `json:"contribution_count"`
	IsOwner           bool  `json:"is_owner"`
}

// ProjectDetail is everything a related user sees about one project.
type ProjectDetail struct {
	Project       Project           `json:"project"`
	CreatorName   string            `json:"creator_name"`
	Contributions []Contribution    `json:"contributions"`
	Stats         ContributionStats `json:"stats"`
	IsOwner       bool              `json:"is_owner"`
}

// SharedProject is the public view behind a share link.
type SharedProject struct {
	ID                uint            `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	TargetAmount      decimal.Decimal `json:"target_amount"`
	CurrentAmount     decimal.Decimal `json:"current_amount"`
	EventDate         *time.Time      `json:"event_date"`
	Location          string          `json:"location"`
	ImageURL          string          `json:"image_url"`
	CreatorName       string          `json:"creator_name"`
	ContributionCount int64           `json:"contribution_count"`
	Progress          decimal.Decimal `json:"progress"`
}

func (p Project) IsOwnedBy(userID uint) bool {
	return p.CreatorID != 0 && p.CreatorID == userID
}

// Progress returns how much of the target has been raised, in percent,
// rounded to two decimals. A zero target reports zero.
func (p Project) Progress() decimal.Decimal {
	if p.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return p.CurrentAmount.Mul(decimal.NewFromInt(100)).Div(p.TargetAmount).Round(2)
}
