package postgres

import (
	"strconv"
	"strings"

	"github.com/ogurasousui/employee-records/internal/core/employee"
)

// employeeSearchColumns は検索語を部分一致させる列です。
var employeeSearchColumns = []string{"name", "email", "department", "position"}

// employeePredicate は WHERE 句とそのプレースホルダー引数です。
type employeePredicate struct {
	where string
	args  []any
}

// placeholder は次に追加する引数の $n を返します。
func (p *employeePredicate) placeholder() string {
	return "$" + strconv.Itoa(len(p.args)+1)
}

// buildEmployeePredicate は ListFilter を WHERE 句に変換します。
// 利用者の入力はすべて引数として渡し、SQL 文字列には埋め込みません。
func buildEmployeePredicate(filter employee.ListFilter) employeePredicate {
	var (
		p          employeePredicate
		conditions []string
	)

	if search := strings.TrimSpace(filter.Search); search != "" {
		ph := p.placeholder()
		p.args = append(p.args, likePattern(search))

		matches := make([]string, 0, len(employeeSearchColumns))
		for _, col := range employeeSearchColumns {
			matches = append(matches, col+" ILIKE "+ph+` ESCAPE '\'`)
		}
		conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
	}

	if department := strings.TrimSpace(filter.Department); department != "" {
		conditions = append(conditions, "lower(department) = lower("+p.placeholder()+")")
		p.args = append(p.args, department)
	}

	if position := strings.TrimSpace(filter.Position); position != "" {
		conditions = append(conditions, "lower(position) = lower("+p.placeholder()+")")
		p.args = append(p.args, position)
	}

	if filter.Status != nil {
		conditions = append(conditions, "status = "+p.placeholder())
		p.args = append(p.args, string(*filter.Status))
	}

	if len(conditions) > 0 {
		p.where = " WHERE " + strings.Join(conditions, " AND ")
	}
	return p
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern は term をリテラルとして含む ILIKE パターンを返します。
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
