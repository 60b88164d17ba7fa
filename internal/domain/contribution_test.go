package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func contributions(amounts ...int64) []Contribution {
	out := make([]Contribution, len(amounts))
	for i, a := range amounts {
		out[i] = Contribution{ID: uint(i + 1), Amount: decimal.NewFromInt(a), ContributorName: "c"}
	}
	return out
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name   string
		input  []Contribution
		count  int64
		total  string
		avg    string
		min    string
		max    string
		median string
	}{
		{"empty ledger", nil, 0, "0", "0", "0", "0", "0"},
		{"single contribution", contributions(42), 1, "42", "42", "42", "42", "42"},
		{"two contributions", contributions(300, 200), 2, "500", "250", "200", "300", "250"},
		{"odd count picks middle", contributions(5, 1, 100), 3, "106", "35.33", "1", "100", "5"},
		{"even count averages middle pair", contributions(10, 40, 20, 30), 4, "100", "25", "10", "40", "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStats(tt.input)

			assert.Equal(t, tt.count, got.Count)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", got.Total)
			assert.True(t, got.Average.Equal(decimal.RequireFromString(tt.avg)), "average %s", got.Average)
			assert.True(t, got.Min.Equal(decimal.RequireFromString(tt.min)), "min %s", got.Min)
			assert.True(t, got.Max.Equal(decimal.RequireFromString(tt.max)), "max %s", got.Max)
			assert.True(t, got.Median.Equal(decimal.RequireFromString(tt.median)), "median %s", got.Median)
		})
	}
}

func TestComputeStats_DoesNotReorderInput(t *testing.T) {
	in := contributions(3, 1, 2)

	ComputeStats(in)

	assert.Equal(t, uint(1), in[0].ID)
	assert.True(t, in[0].Amount.Equal(decimal.NewFromInt(3)))
}

func TestProject_Progress(t *testing.T) {
	p := Project{TargetAmount: decimal.NewFromInt(1000), CurrentAmount: decimal.NewFromInt(500)}
	assert.True(t, p.Progress().Equal(decimal.NewFromInt(50)))

	p.TargetAmount = decimal.Zero
	assert.True(t, p.Progress().IsZero())
}

func TestProject_IsOwnedBy(t *testing.T) {
	p := Project{CreatorID: 7}
	assert.True(t, p.IsOwnedBy(7))
	assert.False(t, p.IsOwnedBy(8))
	assert.False(t, Project{}.IsOwnedBy(0))
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
}
