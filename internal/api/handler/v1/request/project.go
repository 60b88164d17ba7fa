package request

import (
	"errors"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"

	"github.com/regaloya/regaloya-api/internal/domain"
)

var (
	// numeric(12,2)
	maxAmount = decimal.RequireFromString("9999999999.99")

	errAmountNotPositive = errors.New("must be greater than zero")
	errAmountTooLarge    = errors.New("must not exceed 9999999999.99")
	errAmountPrecision   = errors.New("must have at most 2 decimal places")
	errInvalidDate       = errors.New("must be a date like 2006-01-02 or an RFC 3339 timestamp")
	errInvalidImagePath  = errors.New("must be an absolute URL or a path returned by the upload endpoint")

	dateLayouts = []string{"2006-01-02", time.RFC3339}
)

type ProjectRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	TargetAmount *decimal.Decimal `json:"target_amount" swaggertype:"number"`
	EventDate    string           `json:"event_date"`
	Location     string           `json:"location"`
	ImageURL     string           `json:"image_url"`
	IsPublic     bool             `json:"is_public"`

	// UploadPath is where locally stored uploads are served. Image paths
	// below it are accepted in place of absolute URLs.
	UploadPath string `json:"-"`
}

func (req *ProjectRequest) Validate() error {
	req.Title = strings.TrimSpace(req.Title)

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 120)),
		validation.Field(&req.Description, validation.Length(0, 2000)),
		validation.Field(&req.TargetAmount, validation.Required, validation.By(validAmount)),
		validation.Field(&req.EventDate, validation.By(validDate)),
		validation.Field(&req.Location, validation.Length(0, 200)),
		validation.Field(&req.ImageURL, validation.Length(0, 500), validation.By(req.validImageURL)),
	)
}

// ToDomain converts a validated request.
func (req *ProjectRequest) ToDomain() domain.Project {
	project := domain.Project{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		IsPublic:    req.IsPublic,
	}
	if req.TargetAmount != nil {
		project.TargetAmount = *req.TargetAmount
	}
	if date, ok := parseDate(req.EventDate); ok {
		project.EventDate = &date
	}

	return project
}

type ContributeRequest struct {
	Amount          *decimal.Decimal `json:"amount" swaggertype:"number"`
	ContributorName string           `json:"contributor_name"`
	Message         string           `json:"message"`
}

func (req *ContributeRequest) Validate() error {
	req.ContributorName = strings.TrimSpace(req.ContributorName)

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Amount, validation.Required, validation.By(validAmount)),
		validation.Field(&req.ContributorName, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.Message, validation.Length(0, 1000)),
	)
}

func (req *ContributeRequest) ToDomain(projectID uint) domain.Contribution {
	contribution := domain.Contribution{
		ProjectID:       projectID,
		ContributorName: req.ContributorName,
		Message:         req.Message,
	}
	if req.Amount != nil {
		contribution.Amount = *req.Amount
	}

	return contribution
}

func (req *ProjectRequest) validImageURL(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return is.URL.Validate(raw)
	}

	prefix := "/" + strings.Trim(req.UploadPath, "/") + "/"
	if prefix == "//" || strings.HasPrefix(raw, "//") || path.Clean(raw) != raw || !strings.HasPrefix(raw, prefix) {
		return errInvalidImagePath
	}

	return nil
}

func validAmount(value interface{}) error {
	amount, _ := value.(*decimal.Decimal)
	if amount == nil {
		return nil
	}

	switch {
	case !amount.IsPositive():
		return errAmountNotPositive
	case amount.GreaterThan(maxAmount):
		return errAmountTooLarge
	case !amount.Equal(amount.Truncate(2)):
		return errAmountPrecision
	}

	return nil
}

func validDate(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	if _, ok := parseDate(raw); !ok {
		return errInvalidDate
	}

	return nil
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}
