package response

import (
	"github.com/shopspring/decimal"

	"github.com/regaloya/regaloya-api/internal/domain"
)

type AuthResponse struct {
	User domain.User `json:"user"`
}

type ContributionResponse struct {
	Contribution domain.Contribution `json:"contribution"`
	Project      domain.Project      `json:"project"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

const (
	LiveEventSubscribed   = "subscribed"
	LiveEventContribution = "contribution"
)

// LiveEvent is pushed to live feed subscribers of a project.
type LiveEvent struct {
	Type          string               `json:"type"`
	ProjectID     uint                 `json:"project_id"`
	CurrentAmount *decimal.Decimal     `json:"current_amount,omitempty" swaggertype:"number"`
	Contribution  *domain.Contribution `json:"contribution,omitempty"`
}
