package employee

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository は社員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	List(ctx context.Context, filter ListFilter, window Window) ([]*Employee, error)
	Each(ctx context.Context, fn func(*Employee) error) error
	Aggregate(ctx context.Context, query AggregateQuery) (*Aggregates, error)
}

// ListFilter は一覧取得時の絞り込み条件です。
// Search は name / email / department / position のいずれかに部分一致 (大文字小文字を区別しない) する行を選び、
// 残りの条件とは AND で結合されます。空の条件は無視されます。
type ListFilter struct {
	Search     string
	Department string
	Position   string
	Status     *Status
}

// Window は id 昇順で並べた結果に適用する取得範囲です。
type Window struct {
	Limit  int
	Offset int
}

// AggregateQuery は集計クエリのパラメータです。
type AggregateQuery struct {
	// RecentSince 以降に作成された社員数を RecentCount に数えます。
	RecentSince time.Time
}

// GroupAggregate は 1 グループ分の件数と合計値です。
type GroupAggregate struct {
	Key       string
	Count     int64
	SalarySum decimal.Decimal
	RatingSum decimal.Decimal
}

// Aggregates はリポジトリが返す生の集計値です。平均や丸めは Service 側で行います。
type Aggregates struct {
	ByDepartment []GroupAggregate
	ByStatus     []GroupAggregate
	RecentCount  int64
}
