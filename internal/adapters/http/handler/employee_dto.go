package handler

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/employee-records/internal/core/employee"
)

const maxSkillsLength = 1000

type createEmployeeRequest struct {
	Name              string           `json:"name" validate:"required,max=100"`
	Email             string           `json:"email" validate:"required,email"`
	Department        string           `json:"department" validate:"max=100"`
	Position          string           `json:"position" validate:"required,max=100"`
	Salary            *decimal.Decimal `json:"salary" validate:"required"`
	Status            *string          `json:"status" validate:"omitempty,oneof=active inactive"`
	PerformanceRating *decimal.Decimal `json:"performance_rating"`
	Skills            *string          `json:"skills" validate:"omitempty,max=1000"`
}

func (req createEmployeeRequest) toInput() employee.CreateEmployeeInput {
	in := employee.CreateEmployeeInput{
		Name:              req.Name,
		Email:             req.Email,
		Department:        req.Department,
		Position:          req.Position,
		PerformanceRating: req.PerformanceRating,
		Skills:            req.Skills,
	}
	if req.Salary != nil {
		in.Salary = *req.Salary
	}
	if req.Status != nil {
		status := employee.Status(*req.Status)
		in.Status = &status
	}
	return in
}

// optionalString は「キーなし」「null」「値あり」を区別する文字列です。
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// updateEmployeeRequest は部分更新用です。省略したフィールドは変更しません。
type updateEmployeeRequest struct {
	Name              *string          `json:"name" validate:"omitempty,max=100"`
	Email             *string          `json:"email" validate:"omitempty,email"`
	Department        *string          `json:"department" validate:"omitempty,max=100"`
	Position          *string          `json:"position" validate:"omitempty,max=100"`
	Salary            *decimal.Decimal `json:"salary"`
	Status            *string          `json:"status" validate:"omitempty,oneof=active inactive"`
	PerformanceRating *decimal.Decimal `json:"performance_rating"`
	Skills            optionalString   `json:"skills"`
}

func (req updateEmployeeRequest) toInput(id int64) (employee.UpdateEmployeeInput, error) {
	if req.Skills.Value != nil && len([]rune(*req.Skills.Value)) > maxSkillsLength {
		return employee.UpdateEmployeeInput{}, badRequest("skills must be at most 1000 characters")
	}

	in := employee.UpdateEmployeeInput{
		ID:                id,
		Name:              req.Name,
		Email:             req.Email,
		Department:        req.Department,
		Position:          req.Position,
		Salary:            req.Salary,
		PerformanceRating: req.PerformanceRating,
		Skills:            req.Skills.Value,
		SkillsSet:         req.Skills.Set,
	}
	if req.Status != nil {
		status := employee.Status(*req.Status)
		in.Status = &status
	}
	return in, nil
}

type employeeResponse struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Department        string      `json:"department"`
	Position          string      `json:"position"`
	Salary            json.Number `json:"salary"`
	Status            string      `json:"status"`
	PerformanceRating json.Number `json:"performance_rating"`
	Skills            *string     `json:"skills"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	return employeeResponse{
		ID:                e.ID,
		Name:              e.Name,
		Email:             e.Email,
		Department:        e.Department,
		Position:          e.Position,
		Salary:            decimalNumber(e.Salary, 2),
		Status:            string(e.Status),
		PerformanceRating: decimalNumber(e.PerformanceRating, 2),
		Skills:            e.Skills,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

type listEmployeesResponse struct {
	Items       []employeeResponse `json:"items"`
	Total       int64              `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	TotalPages  int                `json:"total_pages"`
	HasNext     bool               `json:"has_next"`
	HasPrevious bool               `json:"has_previous"`
}

func toListEmployeesResponse(result *employee.ListEmployeesResult) listEmployeesResponse {
	items := make([]employeeResponse, 0, len(result.Employees))
	for _, e := range result.Employees {
		items = append(items, toEmployeeResponse(e))
	}
	return listEmployeesResponse{
		Items:       items,
		Total:       result.Total,
		Page:        result.Page,
		PageSize:    result.PageSize,
		TotalPages:  result.TotalPages,
		HasNext:     result.HasNext,
		HasPrevious: result.HasPrevious,
	}
}

type statsResponse struct {
	Total                 int64                  `json:"total"`
	ByDepartment          map[string]int64       `json:"by_department"`
	ByStatus              map[string]int64       `json:"by_status"`
	AvgSalary             json.Number            `json:"avg_salary"`
	AvgSalaryByDepartment map[string]json.Number `json:"avg_salary_by_department"`
	AvgPerformance        json.Number            `json:"avg_performance"`
	RecentHires           int64                  `json:"recent_hires"`
	GrowthRate            json.Number            `json:"growth_rate"`
}

func toStatsResponse(s *employee.Stats) statsResponse {
	byStatus := make(map[string]int64, len(s.ByStatus))
	for status, count := range s.ByStatus {
		byStatus[string(status)] = count
	}
	avgByDept := make(map[string]json.Number, len(s.AvgSalaryByDepartment))
	for dept, avg := range s.AvgSalaryByDepartment {
		avgByDept[dept] = decimalNumber(avg, 2)
	}
	byDept := s.ByDepartment
	if byDept == nil {
		byDept = map[string]int64{}
	}
	return statsResponse{
		Total:                 s.Total,
		ByDepartment:          byDept,
		ByStatus:              byStatus,
		AvgSalary:             decimalNumber(s.AvgSalary, 2),
		AvgSalaryByDepartment: avgByDept,
		AvgPerformance:        decimalNumber(s.AvgPerformance, 1),
		RecentHires:           s.RecentHires,
		GrowthRate:            decimalNumber(s.GrowthRate, 1),
	}
}

type bulkCreateErrorResponse struct {
	Index   int    `json:"index"`
	Email   string `json:"email,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type bulkCreateResponse struct {
	Created []int64                   `json:"created"`
	Errors  []bulkCreateErrorResponse `json:"errors"`
}

// decimalNumber は小数点以下 places 桁に固定した JSON 数値を返します。
func decimalNumber(d decimal.Decimal, places int32) json.Number {
	return json.Number(d.StringFixed(places))
}
