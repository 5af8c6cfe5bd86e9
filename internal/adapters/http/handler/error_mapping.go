package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/employee-records/internal/core/employee"
	pgdb "github.com/ogurasousui/employee-records/internal/platform/db/postgres"
)

const (
	codeValidation       = "validation_error"
	codeInvalidRequest   = "invalid_request"
	codeNotFound         = "not_found"
	codeConflict         = "conflict"
	codeStoreUnavailable = "store_unavailable"
	codeInternal         = "internal_error"
)

// errBadRequest はリクエストの形式不正 (JSON 構文、型、必須項目) を表します。
var errBadRequest = errors.New("invalid request")

// requestError は errBadRequest に利用者向けのメッセージを添えたエラーです。
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func (e *requestError) Unwrap() error { return errBadRequest }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

// classifyError はエラーを HTTP ステータスとエラーコードに変換します。
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, codeInvalidRequest
	case employee.IsValidationError(err):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, employee.ErrEmailAlreadyExists):
		return http.StatusConflict, codeConflict
	case errors.Is(err, employee.ErrStoreUnavailable), pgdb.IsUnavailable(err):
		return http.StatusServiceUnavailable, codeStoreUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, codeStoreUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// operationResult はメトリクス用にエラーを分類します。
func operationResult(err error) string {
	_, code := classifyError(err)
	return code
}

// writeError はエラーを JSON で返却します。想定外のエラーはログに記録し、内容は返しません。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)

	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unexpected error")
		msg = "internal server error"
	case http.StatusServiceUnavailable:
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("store unavailable")
		msg = "service temporarily unavailable"
	}

	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: msg}})
}
