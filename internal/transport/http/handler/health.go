package handler

import (
	"net/http"

	"github.com/go-bff-auth/internal/application/health"
	"github.com/go-bff-auth/internal/transport/http/middleware"
	"github.com/go-bff-auth/internal/transport/http/response"
)

// HealthHandler serves GET /health. The report is written bare, without the
// response envelope, so probes can read the status directly.
type HealthHandler struct {
	svc health.Service
}

func NewHealthHandler(svc health.Service) *HealthHandler { return &HealthHandler{svc: svc} }

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	q, _ := middleware.Valid[HealthQuery](r.Context())
	report := h.svc.Check(r.Context(), q.Detailed)
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, report)
}
