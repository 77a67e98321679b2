package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"homefolio/internal/ratelimit"
	"homefolio/internal/report/model"
	"homefolio/internal/report/service"
	"homefolio/middleware"
	"homefolio/pkg/logger"
)

const maxBodyBytes = 64 << 10

type ReportHandler struct {
	Service *service.ReportService
	Proxies ratelimit.Proxies
}

func NewReportHandler(service *service.ReportService, proxies ratelimit.Proxies) *ReportHandler {
	return &ReportHandler{Service: service, Proxies: proxies}
}

func (h *ReportHandler) PropertyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.PropertyReportRequest
	if !decode(w, r, &req) {
		return
	}

	identity := ratelimit.Identity(r, middleware.CallerID(r.Context()), h.Proxies)
	rep, rl, err := h.Service.PropertyReport(r.Context(), identity, req)
	respond(w, r, rep, rl, err)
}

func (h *ReportHandler) SessionReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.SessionReportRequest
	if !decode(w, r, &req) {
		return
	}

	identity := ratelimit.Identity(r, middleware.CallerID(r.Context()), h.Proxies)
	rep, rl, err := h.Service.SessionReport(r.Context(), identity, req)
	respond(w, r, rep, rl, err)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

func respond(w http.ResponseWriter, r *http.Request, rep *model.GeneratedReport, rl *model.RateLimitInfo, err error) {
	setRateHeaders(w, rl)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rep.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(rep.Data)

	logger.FromContext(r.Context()).Infow("Report generated", "filename", rep.Filename, "pages", rep.PageCount, "bytes", len(rep.Data))
}

func setRateHeaders(w http.ResponseWriter, rl *model.RateLimitInfo) {
	if rl == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	w.Header().Set("X-RateLimit-Reset", rl.ResetAt.UTC().Format(time.RFC3339))
}

var statusByKind = map[service.Kind]int{
	service.InvalidInput:       http.StatusBadRequest,
	service.Unauthorized:       http.StatusUnauthorized,
	service.Forbidden:          http.StatusForbidden,
	service.RateLimited:        http.StatusTooManyRequests,
	service.NotFound:           http.StatusNotFound,
	service.CompositionFailure: http.StatusInternalServerError,
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var re *service.ReportError
	if !errors.As(err, &re) {
		re = &service.ReportError{Kind: service.CompositionFailure, Message: "failed to generate report", Err: err}
	}
	status := statusByKind[re.Kind]

	body := model.ErrorResponse{Error: re.Message}
	if re.Kind == service.RateLimited {
		retry := re.RetryAfter
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		body.RetryAfter = &retry
	}

	if status >= http.StatusInternalServerError {
		log.Errorw("Report request failed", "status", status, "error", err)
	} else {
		log.Infow("Report request rejected", "status", status, "reason", re.Message)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
