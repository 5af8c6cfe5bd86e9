package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ogurasousui/employee-records/internal/core/employee"
	"github.com/ogurasousui/employee-records/internal/platform/metrics"
)

const maxBulkItems = 1000

var csvHeader = []string{"id", "name", "email", "department", "position", "salary", "status", "performance_rating", "skills", "created_at", "updated_at"}

// EmployeeHTTPHandler は社員 API の HTTP ハンドラーです。
type EmployeeHTTPHandler struct {
	svc       employee.UseCase
	validator *requestValidator
	metrics   *metrics.Metrics
}

// NewEmployeeHTTPHandler は EmployeeHTTPHandler を生成します。m は nil でも構いません。
func NewEmployeeHTTPHandler(svc employee.UseCase, m *metrics.Metrics) *EmployeeHTTPHandler {
	return &EmployeeHTTPHandler{svc: svc, validator: newRequestValidator(), metrics: m}
}

// Routes は /api/employees 配下のルートを登録します。
func (h *EmployeeHTTPHandler) Routes(r chi.Router) {
	r.Get("/", h.ListEmployees)
	r.Post("/", h.CreateEmployee)
	r.Get("/stats/summary", h.GetStats)
	r.Get("/export/csv", h.ExportCSV)
	r.Post("/bulk", h.BulkCreateEmployees)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetEmployee)
		r.Put("/", h.UpdateEmployee)
		r.Patch("/", h.UpdateEmployee)
		r.Delete("/", h.DeleteEmployee)
	})
}

// ListEmployees は検索・絞り込み・ページングした社員一覧を返します。
func (h *EmployeeHTTPHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	in, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.ListEmployees(r.Context(), in)
	h.metrics.ObserveOperation("list", err, operationResult)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toListEmployeesResponse(result))
}

// GetEmployee は社員を 1 件返します。
func (h *EmployeeHTTPHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	found, err := h.svc.GetEmployee(r.Context(), employee.GetEmployeeInput{ID: id})
	h.metrics.ObserveOperation("get", err, operationResult)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(found))
}

// CreateEmployee は社員を作成します。
func (h *EmployeeHTTPHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.svc.CreateEmployee(r.Context(), req.toInput())
	h.metrics.ObserveOperation("create", err, operationResult)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/employees/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, toEmployeeResponse(created))
}

// UpdateEmployee は送られたフィールドだけを更新します。PUT と PATCH の両方で使います。
func (h *EmployeeHTTPHandler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateEmployeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	in, err := req.toInput(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.svc.UpdateEmployee(r.Context(), in)
	h.metrics.ObserveOperation("update", err, operationResult)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(updated))
}

// DeleteEmployee は社員を削除します。
func (h *EmployeeHTTPHandler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.svc.DeleteEmployee(r.Context(), employee.DeleteEmployeeInput{ID: id})
	h.metrics.ObserveOperation("delete", err, operationResult)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetStats は統計サマリーを返します。
func (h *EmployeeHTTPHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	h.metrics.ObserveOperation("stats", err, operationResult)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

// BulkCreateEmployees は JSON 配列で受け取った社員をまとめて作成します。
// 形式不正の要素はサービスに渡さず、他の要素の処理は続けます。
func (h *EmployeeHTTPHandler) BulkCreateEmployees(w http.ResponseWriter, r *http.Request) {
	var reqs []createEmployeeRequest
	if err := decodeJSON(w, r, &reqs); err != nil {
		writeError(w, r, err)
		return
	}
	if len(reqs) == 0 {
		writeError(w, r, badRequest("at least one employee is required"))
		return
	}
	if len(reqs) > maxBulkItems {
		writeError(w, r, badRequest("at most "+strconv.Itoa(maxBulkItems)+" employees can be created at once"))
		return
	}

	resp := bulkCreateResponse{Created: []int64{}, Errors: []bulkCreateErrorResponse{}}

	inputs := make([]employee.CreateEmployeeInput, 0, len(reqs))
	indexes := make([]int, 0, len(reqs))
	for idx, req := range reqs {
		if err := h.validator.Validate(req); err != nil {
			resp.Errors = append(resp.Errors, toBulkError(idx, req.Email, err))
			continue
		}
		inputs = append(inputs, req.toInput())
		indexes = append(indexes, idx)
	}

	if len(inputs) > 0 {
		result, err := h.svc.BulkCreateEmployees(r.Context(), inputs)
		h.metrics.ObserveOperation("bulk_create", err, operationResult)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.Created = append(resp.Created, result.Created...)
		for _, itemErr := range result.Errors {
			resp.Errors = append(resp.Errors, toBulkError(indexes[itemErr.Index], itemErr.Email, itemErr.Err))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ExportCSV は全社員を id 昇順の CSV として返します。
func (h *EmployeeHTTPHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var (
		cw      *csv.Writer
		started bool
	)

	begin := func() error {
		started = true
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="employees.csv"`)
		w.WriteHeader(http.StatusOK)
		cw = csv.NewWriter(w)
		return cw.Write(csvHeader)
	}

	err := h.svc.ExportEmployees(r.Context(), func(e *employee.Employee) error {
		if !started {
			if err := begin(); err != nil {
				return err
			}
		}
		return cw.Write(toCSVRecord(e))
	})
	h.metrics.ObserveOperation("export", err, operationResult)

	if err != nil {
		if !started {
			writeError(w, r, err)
			return
		}
		// ヘッダー送信後はステータスを変更できない。
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("csv export aborted")
		cw.Flush()
		return
	}

	if !started {
		if err := begin(); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("csv export failed")
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("csv export failed")
	}
}

func toCSVRecord(e *employee.Employee) []string {
	skills := ""
	if e.Skills != nil {
		skills = *e.Skills
	}
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Name,
		e.Email,
		e.Department,
		e.Position,
		e.Salary.StringFixed(2),
		string(e.Status),
		e.PerformanceRating.StringFixed(2),
		skills,
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toBulkError(index int, email string, err error) bulkCreateErrorResponse {
	_, code := classifyError(err)
	msg := err.Error()
	if code == codeInternal {
		msg = "internal server error"
	}
	return bulkCreateErrorResponse{Index: index, Email: email, Code: code, Message: msg}
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, employee.ErrInvalidID
	}
	return id, nil
}

// parseListQuery はクエリ文字列を ListEmployeesInput に変換します。
// page と page_size は指定された場合 1 以上の整数でなければなりません。
func parseListQuery(r *http.Request) (employee.ListEmployeesInput, error) {
	q := r.URL.Query()

	in := employee.ListEmployeesInput{
		Search:     q.Get("search"),
		Department: q.Get("department"),
		Position:   q.Get("position"),
	}

	if raw, ok := lookupQuery(q, "page"); ok {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return employee.ListEmployeesInput{}, employee.ErrInvalidPage
		}
		in.Page = page
	}

	if raw, ok := lookupQuery(q, "page_size"); ok {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return employee.ListEmployeesInput{}, employee.ErrInvalidPageSize
		}
		in.PageSize = size
	}

	if raw, ok := lookupQuery(q, "status"); ok {
		status := employee.Status(strings.ToLower(raw))
		in.Status = &status
	}

	return in, nil
}

func lookupQuery(q map[string][]string, key string) (string, bool) {
	values, ok := q[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}
