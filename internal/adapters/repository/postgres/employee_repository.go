package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/employee-records/internal/core/employee"
	pgdb "github.com/ogurasousui/employee-records/internal/platform/db/postgres"
)

const (
	employeeUniqueViolationCode = "23505"
	employeeCheckViolationCode  = "23514"
	employeeNumericOverflowCode = "22003"
	employeeSalaryCheck         = "employees_salary_check"
	employeeRatingCheck         = "employees_performance_rating_check"
	employeeStatusCheck         = "employees_status_check"
	employeeSelectColumns       = "id, name, email, department, position, salary, status, performance_rating, skills, created_at, updated_at"
)

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。id はデータベースが採番します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (name, email, department, position, salary, status, performance_rating, skills, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+employeeSelectColumns,
		e.Name,
		e.Email,
		e.Department,
		e.Position,
		e.Salary,
		string(e.Status),
		e.PerformanceRating,
		nullableText(e.Skills),
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は社員情報を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET name = $1,
               email = $2,
               department = $3,
               position = $4,
               salary = $5,
               status = $6,
               performance_rating = $7,
               skills = $8,
               updated_at = $9
         WHERE id = $10
        RETURNING `+employeeSelectColumns,
		e.Name,
		e.Email,
		e.Department,
		e.Position,
		e.Salary,
		string(e.Status),
		e.PerformanceRating,
		nullableText(e.Skills),
		e.UpdatedAt,
		e.ID,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+employeeSelectColumns+` FROM employees WHERE id = $1`, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByEmail はメールアドレスで社員を取得します。大文字小文字は区別しません。
func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+employeeSelectColumns+` FROM employees WHERE lower(email) = lower($1) LIMIT 1`, email)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// Count は条件に一致する社員数を返します。
func (r *EmployeeRepository) Count(ctx context.Context, filter employee.ListFilter) (int64, error) {
	pred := buildEmployeePredicate(filter)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var total int64
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM employees`+pred.where, pred.args...).Scan(&total); err != nil {
		return 0, translateEmployeePgError(err)
	}
	return total, nil
}

// List は条件に一致する社員を id 昇順で window の範囲だけ返します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListFilter, window employee.Window) ([]*employee.Employee, error) {
	if window.Limit <= 0 {
		return nil, employee.ErrInvalidPageSize
	}
	if window.Offset < 0 {
		return nil, employee.ErrInvalidPage
	}

	pred := buildEmployeePredicate(filter)
	args := append(pred.args, window.Limit, window.Offset)
	limitPlaceholder := "$" + strconv.Itoa(len(pred.args)+1)
	offsetPlaceholder := "$" + strconv.Itoa(len(pred.args)+2)

	query := `SELECT ` + employeeSelectColumns + ` FROM employees` + pred.where +
		` ORDER BY id ASC LIMIT ` + limitPlaceholder + ` OFFSET ` + offsetPlaceholder

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0, window.Limit)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}

	return employees, nil
}

// Each は全社員を id 昇順で fn に渡します。fn がエラーを返すと中断します。
func (r *EmployeeRepository) Each(ctx context.Context, fn func(*employee.Employee) error) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `SELECT `+employeeSelectColumns+` FROM employees ORDER BY id ASC`)
	if err != nil {
		return translateEmployeePgError(err)
	}
	defer rows.Close()

	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return translateEmployeePgError(err)
		}
		if err := fn(emp); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return translateEmployeePgError(err)
	}
	return nil
}

// Aggregate は部署別・状態別の件数と合計値、および最近作成された社員数を返します。
// 部署は絞り込みと同じく大文字小文字を区別せずにまとめ、表示名はバイト順で最小の表記を使います。
func (r *EmployeeRepository) Aggregate(ctx context.Context, query employee.AggregateQuery) (*employee.Aggregates, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	byDepartment, err := queryGroups(ctx, exec, `
        SELECT MIN(department COLLATE "C"), COUNT(*), COALESCE(SUM(salary), 0), COALESCE(SUM(performance_rating), 0)
          FROM employees
         GROUP BY lower(department)
         ORDER BY lower(department)
    `)
	if err != nil {
		return nil, err
	}

	byStatus, err := queryGroups(ctx, exec, `
        SELECT status, COUNT(*), COALESCE(SUM(salary), 0), COALESCE(SUM(performance_rating), 0)
          FROM employees
         GROUP BY status
         ORDER BY status
    `)
	if err != nil {
		return nil, err
	}

	var recent int64
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM employees WHERE created_at >= $1`, query.RecentSince).Scan(&recent); err != nil {
		return nil, translateEmployeePgError(err)
	}

	return &employee.Aggregates{
		ByDepartment: byDepartment,
		ByStatus:     byStatus,
		RecentCount:  recent,
	}, nil
}

func queryGroups(ctx context.Context, exec pgdb.Queryer, query string) ([]employee.GroupAggregate, error) {
	rows, err := exec.Query(ctx, query)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	var groups []employee.GroupAggregate
	for rows.Next() {
		var g employee.GroupAggregate
		if err := rows.Scan(&g.Key, &g.Count, &g.SalarySum, &g.RatingSum); err != nil {
			return nil, translateEmployeePgError(err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return groups, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		id         int64
		name       string
		email      string
		department string
		position   string
		salary     decimal.Decimal
		status     string
		rating     decimal.Decimal
		skills     sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
	)

	if err := row.Scan(
		&id,
		&name,
		&email,
		&department,
		&position,
		&salary,
		&status,
		&rating,
		&skills,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	var skillsPtr *string
	if skills.Valid {
		s := skills.String
		skillsPtr = &s
	}

	return &employee.Employee{
		ID:                id,
		Name:              name,
		Email:             email,
		Department:        department,
		Position:          position,
		Salary:            salary,
		Status:            employee.Status(status),
		PerformanceRating: rating,
		Skills:            skillsPtr,
		CreatedAt:         createdAt.UTC(),
		UpdatedAt:         updatedAt.UTC(),
	}, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}
	if errors.Is(err, employee.ErrStoreUnavailable) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case employeeUniqueViolationCode:
			return employee.ErrEmailAlreadyExists
		case employeeNumericOverflowCode:
			return employee.ErrInvalidSalary
		case employeeCheckViolationCode:
			switch pgErr.ConstraintName {
			case employeeSalaryCheck:
				return employee.ErrInvalidSalary
			case employeeRatingCheck:
				return employee.ErrInvalidRating
			case employeeStatusCheck:
				return employee.ErrInvalidStatus
			}
		}
	}

	if pgdb.IsUnavailable(err) {
		return fmt.Errorf("%w: %w", employee.ErrStoreUnavailable, err)
	}

	return err
}

func nullableText(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
