package employee

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	salaryPlaces = 2
	ratingPlaces = 1
	growthPlaces = 1
)

// Stats は社員全体のサマリ統計です。
type Stats struct {
	Total                 int64
	ByDepartment          map[string]int64
	ByStatus              map[Status]int64
	AvgSalary             decimal.Decimal
	AvgSalaryByDepartment map[string]decimal.Decimal
	AvgPerformance        decimal.Decimal
	RecentHires           int64
	GrowthRate            decimal.Decimal
}

// BuildStats はリポジトリの生集計から統計値を算出します。
// 平均は SUM / COUNT を decimal で計算し、四捨五入 (0 から遠い方向) で丸めます。件数 0 の平均は 0 です。
func BuildStats(agg *Aggregates) *Stats {
	stats := &Stats{
		ByDepartment:          make(map[string]int64),
		ByStatus:              make(map[Status]int64),
		AvgSalaryByDepartment: make(map[string]decimal.Decimal),
		AvgSalary:             decimal.Zero,
		AvgPerformance:        decimal.Zero,
		GrowthRate:            decimal.Zero,
	}
	if agg == nil {
		return stats
	}

	salarySum := decimal.Zero
	ratingSum := decimal.Zero
	deptSalary := make(map[string]decimal.Decimal)

	for _, g := range agg.ByDepartment {
		if g.Count <= 0 {
			continue
		}
		key := departmentKey(g.Key)
		stats.ByDepartment[key] += g.Count
		deptSalary[key] = deptSalary[key].Add(g.SalarySum)
		stats.Total += g.Count
		salarySum = salarySum.Add(g.SalarySum)
		ratingSum = ratingSum.Add(g.RatingSum)
	}

	for key, sum := range deptSalary {
		stats.AvgSalaryByDepartment[key] = average(sum, stats.ByDepartment[key], salaryPlaces)
	}

	for _, g := range agg.ByStatus {
		if g.Count <= 0 {
			continue
		}
		stats.ByStatus[Status(g.Key)] += g.Count
	}

	stats.AvgSalary = average(salarySum, stats.Total, salaryPlaces)
	stats.AvgPerformance = average(ratingSum, stats.Total, ratingPlaces)
	stats.RecentHires = agg.RecentCount
	if stats.Total > 0 {
		stats.GrowthRate = decimal.NewFromInt(agg.RecentCount).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(stats.Total), growthPlaces)
	}

	return stats
}

func average(sum decimal.Decimal, count int64, places int32) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(count), places)
}

func departmentKey(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return UnassignedDepartment
	}
	return raw
}
