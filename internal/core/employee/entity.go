package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は社員の在籍状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// UnassignedDepartment は部署が未設定の社員を集計する際の部署名です。
const UnassignedDepartment = "Unassigned"

// Employee は社員エンティティです。
type Employee struct {
	ID                int64
	Name              string
	Email             string
	Department        string
	Position          string
	Salary            decimal.Decimal
	Status            Status
	PerformanceRating decimal.Decimal
	Skills            *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
