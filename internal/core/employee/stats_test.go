package employee

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBuildStats_Empty(t *testing.T) {
	t.Parallel()

	for _, agg := range []*Aggregates{nil, {}} {
		stats := BuildStats(agg)
		if stats.Total != 0 {
			t.Fatalf("expected zero total, got %d", stats.Total)
		}
		if !stats.AvgSalary.IsZero() || !stats.AvgPerformance.IsZero() || !stats.GrowthRate.IsZero() {
			t.Fatalf("expected neutral averages, got %+v", stats)
		}
		if stats.ByDepartment == nil || stats.ByStatus == nil || stats.AvgSalaryByDepartment == nil {
			t.Fatalf("expected empty maps, got nil")
		}
	}
}

func TestBuildStats_RoundingAndUnassigned(t *testing.T) {
	t.Parallel()

	stats := BuildStats(&Aggregates{
		ByDepartment: []GroupAggregate{
			{Key: "Eng", Count: 3, SalarySum: decimal.RequireFromString("100.00"), RatingSum: decimal.RequireFromString("10")},
			{Key: "", Count: 1, SalarySum: decimal.RequireFromString("0.01"), RatingSum: decimal.RequireFromString("2")},
			{Key: "Empty", Count: 0},
		},
		ByStatus: []GroupAggregate{
			{Key: string(StatusActive), Count: 3},
			{Key: string(StatusInactive), Count: 1},
		},
		RecentCount: 1,
	})

	if stats.Total != 4 {
		t.Fatalf("expected total 4, got %d", stats.Total)
	}
	if _, ok := stats.ByDepartment["Empty"]; ok {
		t.Fatalf("expected departments without employees to be omitted")
	}
	if stats.ByDepartment[UnassignedDepartment] != 1 {
		t.Fatalf("expected blank department to be reported as %s, got %v", UnassignedDepartment, stats.ByDepartment)
	}
	// 100 / 3 = 33.333...
	if got := stats.AvgSalaryByDepartment["Eng"]; !got.Equal(decimal.RequireFromString("33.33")) {
		t.Fatalf("expected 33.33, got %s", got)
	}
	// 100.01 / 4 = 25.0025
	if !stats.AvgSalary.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("expected 25.00, got %s", stats.AvgSalary)
	}
	// 12 / 4 = 3
	if !stats.AvgPerformance.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3.0, got %s", stats.AvgPerformance)
	}
	if !stats.GrowthRate.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected growth 25, got %s", stats.GrowthRate)
	}
	if stats.ByStatus[StatusInactive] != 1 || stats.ByStatus[StatusActive] != 3 {
		t.Fatalf("unexpected by status %v", stats.ByStatus)
	}
}

func TestBuildStats_HalfAwayFromZero(t *testing.T) {
	t.Parallel()

	stats := BuildStats(&Aggregates{
		ByDepartment: []GroupAggregate{
			{Key: "Ops", Count: 2, SalarySum: decimal.RequireFromString("0.05")},
		},
	})
	// 0.025 -> 0.03
	if !stats.AvgSalary.Equal(decimal.RequireFromString("0.03")) {
		t.Fatalf("expected 0.03, got %s", stats.AvgSalary)
	}
}
