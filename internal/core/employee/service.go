package employee

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	maxTextLength            = 100
	defaultRecentHireWindow  = 30 * 24 * time.Hour
	maxPerformanceRatingUnit = 5
	ratingStoredPlaces       = 2
)

var (
	maxPerformanceRating = decimal.NewFromInt(maxPerformanceRatingUnit)
	// salary は NUMERIC(12,2) に収まる範囲に限る。
	salaryUpperBound = decimal.New(1, 10)
)

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo         Repository
	clock        Clock
	tx           TransactionManager
	paginator    Paginator
	recentWindow time.Duration
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	BulkCreateEmployees(ctx context.Context, in []CreateEmployeeInput) (*BulkCreateResult, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
	GetStats(ctx context.Context) (*Stats, error)
	ExportEmployees(ctx context.Context, fn func(*Employee) error) error
}

// Option は Service の生成オプションです。
type Option func(*Service)

// WithPaginator はページサイズの既定値と上限を差し替えます。
func WithPaginator(p Paginator) Option {
	return func(s *Service) {
		s.paginator = p
	}
}

// WithRecentHireWindow は「最近の入社」とみなす期間を設定します。
func WithRecentHireWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.recentWindow = d
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:         repo,
		clock:        clock,
		tx:           tx,
		paginator:    NewPaginator(DefaultPageSize, MaxPageSize),
		recentWindow: defaultRecentHireWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	Name              string
	Email             string
	Department        string
	Position          string
	Salary            decimal.Decimal
	Status            *Status
	PerformanceRating *decimal.Decimal
	Skills            *string
}

// UpdateEmployeeInput は社員更新時の入力です。nil のフィールドは変更しません。
// Skills は SkillsSet が true のときだけ反映し、nil ならクリアします。
type UpdateEmployeeInput struct {
	ID                int64
	Name              *string
	Email             *string
	Department        *string
	Position          *string
	Salary            *decimal.Decimal
	Status            *Status
	PerformanceRating *decimal.Decimal
	Skills            *string
	SkillsSet         bool
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID int64
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID int64
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	Search     string
	Page       int
	PageSize   int
	Department string
	Position   string
	Status     *Status
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees []*Employee
	PageInfo
}

// BulkCreateError は一括作成で失敗した要素です。
type BulkCreateError struct {
	Index int
	Email string
	Err   error
}

// BulkCreateResult は一括作成の結果です。
type BulkCreateResult struct {
	Created []int64
	Errors  []BulkCreateError
}

// CreateEmployee は新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	emp, err := s.newEmployee(in)
	if err != nil {
		return nil, err
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailNotExists(txCtx, emp.Email, 0); err != nil {
			return err
		}

		now := s.clock.Now()
		emp.CreatedAt = now
		emp.UpdatedAt = now

		result, err := s.repo.Create(txCtx, emp)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// BulkCreateEmployees は複数の社員を作成します。要素ごとに独立したトランザクションで処理し、
// 失敗した要素はインデックス付きで結果に含めます。
func (s *Service) BulkCreateEmployees(ctx context.Context, in []CreateEmployeeInput) (*BulkCreateResult, error) {
	result := &BulkCreateResult{Created: make([]int64, 0, len(in))}
	for idx, item := range in {
		created, err := s.CreateEmployee(ctx, item)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			result.Errors = append(result.Errors, BulkCreateError{Index: idx, Email: item.Email, Err: err})
			continue
		}
		result.Created = append(result.Created, created.ID)
	}
	return result, nil
}

// UpdateEmployee は社員情報を部分更新します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if err := applyUpdate(existing, in); err != nil {
			return err
		}

		if in.Email != nil {
			if err := s.ensureEmailNotExists(txCtx, existing.Email, existing.ID); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		if now.Before(existing.CreatedAt) {
			now = existing.CreatedAt
		}
		existing.UpdatedAt = now

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteEmployee は社員を物理削除します。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	if in.ID <= 0 {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, in.ID)
	})
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は検索条件に一致する社員を id 昇順でページングして返します。
// 総件数はページ範囲と無関係に同じ条件で数えます。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	page, err := s.paginator.Normalize(PageRequest{Page: in.Page, PageSize: in.PageSize})
	if err != nil {
		return nil, err
	}

	filter, err := normalizeFilter(in)
	if err != nil {
		return nil, err
	}

	var (
		employees []*Employee
		total     int64
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		count, err := s.repo.Count(txCtx, filter)
		if err != nil {
			return err
		}
		total = count

		if page.pastEnd(total) {
			employees = []*Employee{}
			return nil
		}

		found, err := s.repo.List(txCtx, filter, page.Window())
		if err != nil {
			return err
		}
		employees = found
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{Employees: employees, PageInfo: page.Info(total)}, nil
}

// GetStats は現在のデータから統計を毎回算出します。
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	since := s.clock.Now().Add(-s.recentWindow)

	var agg *Aggregates
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Aggregate(txCtx, AggregateQuery{RecentSince: since})
		if err != nil {
			return err
		}
		agg = result
		return nil
	}); err != nil {
		return nil, err
	}

	return BuildStats(agg), nil
}

// ExportEmployees は全社員を id 昇順で fn に渡します。
func (s *Service) ExportEmployees(ctx context.Context, fn func(*Employee) error) error {
	if fn == nil {
		return nil
	}
	return s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		return s.repo.Each(txCtx, fn)
	})
}

func (s *Service) newEmployee(in CreateEmployeeInput) (*Employee, error) {
	name, err := normalizeRequiredText(in.Name, ErrInvalidName)
	if err != nil {
		return nil, err
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	department, err := normalizeOptionalText(in.Department, ErrInvalidDepartment)
	if err != nil {
		return nil, err
	}

	position, err := normalizeRequiredText(in.Position, ErrInvalidPosition)
	if err != nil {
		return nil, err
	}

	if err := validateSalary(in.Salary); err != nil {
		return nil, err
	}

	status := StatusActive
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	rating := decimal.Zero
	if in.PerformanceRating != nil {
		if err := validateRating(*in.PerformanceRating); err != nil {
			return nil, err
		}
		rating = *in.PerformanceRating
	}

	return &Employee{
		Name:              name,
		Email:             email,
		Department:        department,
		Position:          position,
		Salary:            in.Salary.Round(salaryPlaces),
		Status:            status,
		PerformanceRating: rating.Round(ratingStoredPlaces),
		Skills:            normalizeSkills(in.Skills),
	}, nil
}

func applyUpdate(existing *Employee, in UpdateEmployeeInput) error {
	if in.Name != nil {
		name, err := normalizeRequiredText(*in.Name, ErrInvalidName)
		if err != nil {
			return err
		}
		existing.Name = name
	}

	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return err
		}
		existing.Email = email
	}

	if in.Department != nil {
		department, err := normalizeOptionalText(*in.Department, ErrInvalidDepartment)
		if err != nil {
			return err
		}
		existing.Department = department
	}

	if in.Position != nil {
		position, err := normalizeRequiredText(*in.Position, ErrInvalidPosition)
		if err != nil {
			return err
		}
		existing.Position = position
	}

	if in.Salary != nil {
		if err := validateSalary(*in.Salary); err != nil {
			return err
		}
		existing.Salary = in.Salary.Round(salaryPlaces)
	}

	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return ErrInvalidStatus
		}
		existing.Status = *in.Status
	}

	if in.PerformanceRating != nil {
		if err := validateRating(*in.PerformanceRating); err != nil {
			return err
		}
		existing.PerformanceRating = in.PerformanceRating.Round(ratingStoredPlaces)
	}

	if in.SkillsSet {
		existing.Skills = normalizeSkills(in.Skills)
	}

	return nil
}

// ensureEmailNotExists は email が excludeID 以外の社員で使われていないことを確認します。
func (s *Service) ensureEmailNotExists(ctx context.Context, email string, excludeID int64) error {
	emp, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if emp != nil && emp.ID != excludeID {
		return ErrEmailAlreadyExists
	}
	return nil
}

func normalizeFilter(in ListEmployeesInput) (ListFilter, error) {
	filter := ListFilter{
		Search:     strings.TrimSpace(in.Search),
		Department: strings.TrimSpace(in.Department),
		Position:   strings.TrimSpace(in.Position),
	}
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return ListFilter{}, ErrInvalidStatus
		}
		status := *in.Status
		filter.Status = &status
	}
	return filter, nil
}

func normalizeRequiredText(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxTextLength {
		return "", invalid
	}
	return trimmed, nil
}

func normalizeOptionalText(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if utf8.RuneCountInString(trimmed) > maxTextLength {
		return "", invalid
	}
	return trimmed, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Name != "" || addr.Address != trimmed {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(addr.Address), nil
}

func normalizeSkills(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateSalary(salary decimal.Decimal) error {
	if salary.IsNegative() || salary.Round(salaryPlaces).GreaterThanOrEqual(salaryUpperBound) {
		return ErrInvalidSalary
	}
	return nil
}

func validateRating(rating decimal.Decimal) error {
	if rating.IsNegative() || rating.GreaterThan(maxPerformanceRating) {
		return ErrInvalidRating
	}
	return nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}
