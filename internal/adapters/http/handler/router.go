package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ogurasousui/employee-records/internal/core/employee"
	"github.com/ogurasousui/employee-records/internal/platform/metrics"
)

// RouterConfig は HTTP ルーターの依存関係です。
type RouterConfig struct {
	Employees      employee.UseCase
	DB             Pinger
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// NewRouter は API 全体のルーターを構築します。
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID(cfg.Logger))
	r.Use(accessLog(cfg.Metrics))
	r.Use(recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{Code: codeNotFound, Message: "route not found"}})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: errorBody{Code: codeInvalidRequest, Message: "method not allowed"}})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", NewHealthHandler(cfg.DB))
		r.Route("/employees", NewEmployeeHTTPHandler(cfg.Employees, cfg.Metrics).Routes)
	})

	return r
}
