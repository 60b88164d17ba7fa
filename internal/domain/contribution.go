package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Contribution struct {
	ID              uint            `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Message         string          `json:"message"`
	ContributorName string          `json:"contributor_name"`
	ContributorID   *uint           `json:"contributor_id,omitempty"`
	ProjectID       uint            `json:"project_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ContributionStats struct {
	Count   int64           `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
	Min     decimal.Decimal `json:"min"`
	Max     decimal.Decimal `json:"max"`
	Median  decimal.Decimal `json:"median"`
}

// ComputeStats summarizes the amounts of contributions. Every figure is zero
// for an empty ledger. Average and median are rounded to cents.
func ComputeStats(contributions []Contribution) ContributionStats {
	stats := ContributionStats{
		Total:   decimal.Zero,
		Average: decimal.Zero,
		Min:     decimal.Zero,
		Max:     decimal.Zero,
		Median:  decimal.Zero,
	}
	if len(contributions) == 0 {
		return stats
	}

	amounts := make([]decimal.Decimal, len(contributions))
	for i, c := range contributions {
		amounts[i] = c.Amount
		stats.Total = stats.Total.Add(c.Amount)
	}
	sort.Slice(amounts, func(i, j int) bool {
		return amounts[i].LessThan(amounts[j])
	})

	n := len(amounts)
	stats.Count = int64(n)
	stats.Min = amounts[0]
	stats.Max = amounts[n-1]
	stats.Average = stats.Total.Div(decimal.NewFromInt(int64(n))).Round(2)

	if n%2 == 1 {
		stats.Median = amounts[n/2]
	} else {
		stats.Median = amounts[n/2-1].Add(amounts[n/2]).Div(decimal.NewFromInt(2)).Round(2)
	}

	return stats
}
