package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"enrollment/internal/enrollment/models"
	platformmetrics "enrollment/internal/platform/metrics"
	"enrollment/pkg/platform/httputil"
	"enrollment/pkg/platform/middleware/admin"
	"enrollment/pkg/platform/middleware/auth"
	request "enrollment/pkg/platform/middleware/request"
	"enrollment/pkg/platform/middleware/requesttime"
	"enrollment/pkg/requestcontext"
)

const requestTimeout = 30 * time.Second

// Placeholder values the course search form submits for "any".
const (
	anyCredits    = "Select Credits"
	anyDepartment = "Select Department"
)

// Service defines the admission and catalog operations the transport exposes.
type Service interface {
	Apply(ctx context.Context, studentID, courseKey string) (*models.Decision, error)
	Cancel(ctx context.Context, studentID, courseKey string) (*models.Decision, error)
	ApplyFirstAvailable(ctx context.Context, studentID string, candidates []string) (*models.FallbackResult, error)
	DropdownOptions(ctx context.Context) (*models.DropdownOptions, error)
	SearchCourses(ctx context.Context, filter models.CourseFilter) ([]*models.Course, error)
	AppliedCourses(ctx context.Context, studentID string) ([]*models.Course, error)
	AuditAll(ctx context.Context) (*models.InvariantReport, error)
	Health(ctx context.Context) error
}

// Handler serves the enrollment HTTP API.
type Handler struct {
	logger     *slog.Logger
	service    Service
	validator  auth.JWTValidator
	metrics    *platformmetrics.HTTP
	adminToken string
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithMetrics(m *platformmetrics.HTTP) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithAdminToken protects /admin routes with an X-Admin-Token header.
func WithAdminToken(token string) Option {
	return func(h *Handler) {
		h.adminToken = token
	}
}

// New creates a new enrollment Handler.
func New(service Service, validator auth.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		service:   service,
		validator: validator,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the enrollment routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(request.Recovery(h.logger))
		r.Use(request.RequestID)
		r.Use(requesttime.Middleware)
		r.Use(request.Logger(h.logger))
		r.Use(chimw.Timeout(requestTimeout))
		if h.metrics != nil {
			r.Use(h.metrics.Middleware)
		}

		r.Get("/health", h.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
			r.Get("/admin/invariants", h.handleInvariants)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireStudent(h.validator, h.logger))
			r.Post("/api/apply_course", h.handleApply)
			r.Post("/api/cancel_course", h.handleCancel)
			r.Post("/api/apply_first_available", h.handleApplyFirstAvailable)
			r.Get("/api/dropdown_options", h.handleDropdownOptions)
			r.Get("/api/search_courses", h.handleSearchCourses)
			r.Get("/api/get_applied_courses", h.handleAppliedCourses)
			r.Get("/api/get_courses", h.handleGetCourses)
		})
	})
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	h.handleIntent(w, r, h.service.Apply)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleIntent(w, r, h.service.Cancel)
}

type intentFunc func(ctx context.Context, studentID, courseKey string) (*models.Decision, error)

func (h *Handler) handleIntent(w http.ResponseWriter, r *http.Request, fn intentFunc) {
	ctx := r.Context()
	studentID := requestcontext.StudentID(ctx)

	var req models.CourseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid admission request",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusBadRequest, models.AdmissionResponse{Message: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, models.AdmissionResponse{Message: err.Error()})
		return
	}

	decision, err := fn(ctx, studentID, req.CourseKey)
	if err != nil {
		status, _ := httputil.Classify(err)
		h.logger.ErrorContext(ctx, "admission request failed",
			"request_id", request.GetRequestID(ctx),
			"course_key", req.CourseKey,
			"error", err,
		)
		httputil.WriteJSON(w, status, models.AdmissionResponse{Message: "admission could not be decided"})
		return
	}

	httputil.WriteJSON(w, decisionStatus(decision), models.AdmissionResponse{
		Success: decision.IsAccepted(),
		Message: decision.Message(),
		Reason:  decision.Reason,
	})
}

// decisionStatus keeps the status codes clients of the course API already rely on.
func decisionStatus(d *models.Decision) int {
	switch {
	case d.IsAccepted():
		return http.StatusOK
	case d.Reason == models.ReasonCourseNotFound, d.Reason == models.ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

type applyFirstAvailableRequest struct {
	CourseKeys []string `json:"course_keys"`
}

type applyFirstAvailableResponse struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message"`
	Accepted string             `json:"accepted_course_key,omitempty"`
	Attempts []*models.Decision `json:"attempts"`
}

func (h *Handler) handleApplyFirstAvailable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req applyFirstAvailableRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ApplyFirstAvailable(ctx, requestcontext.StudentID(ctx), req.CourseKeys)
	if err != nil {
		h.logger.ErrorContext(ctx, "fallback apply failed",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := applyFirstAvailableResponse{Attempts: result.Attempts}
	if result.Exhausted() {
		resp.Message = "no candidate course accepted the application"
		httputil.WriteJSON(w, http.StatusBadRequest, resp)
		return
	}
	resp.Success = true
	resp.Message = result.Accepted.Message()
	resp.Accepted = result.Accepted.Intent.CourseKey
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDropdownOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts, err := h.service.DropdownOptions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to fetch dropdown options", "request_id", request.GetRequestID(ctx), "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, models.DropdownResponse{Message: "An error occurred while fetching dropdown options"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.DropdownResponse{
		Success:     true,
		Credits:     opts.Credits,
		Departments: opts.Departments,
	})
}

func (h *Handler) handleSearchCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var filter models.CourseFilter
	if credits := strings.TrimSpace(q.Get("credits")); credits != "" && credits != anyCredits {
		n, err := strconv.Atoi(credits)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, models.SearchResponse{Message: "credits must be a number"})
			return
		}
		filter.Credits = n
	}
	if dept := strings.TrimSpace(q.Get("department")); dept != anyDepartment {
		filter.Department = dept
	}
	filter.Name = strings.TrimSpace(q.Get("course_name"))

	courses, err := h.service.SearchCourses(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to search courses", "request_id", request.GetRequestID(ctx), "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, models.SearchResponse{Message: "An error occurred while searching courses"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SearchResponse{Success: true, Courses: courses})
}

func (h *Handler) handleAppliedCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courses, err := h.service.AppliedCourses(ctx, requestcontext.StudentID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to fetch applied courses", "request_id", request.GetRequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	httputil.WriteJSON(w, http.StatusOK, models.AppliedCoursesResponse{Success: true, Courses: courses})
}

type getCoursesResponse struct {
	Success        bool             `json:"success"`
	Courses        []*models.Course `json:"courses"`
	AppliedCourses []*models.Course `json:"appliedCourses"`
}

// handleGetCourses serves the registration page's initial load: the applied
// list only, the catalog is fetched through search.
func (h *Handler) handleGetCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applied, err := h.service.AppliedCourses(ctx, requestcontext.StudentID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to fetch courses", "request_id", request.GetRequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	if applied == nil {
		applied = []*models.Course{}
	}
	httputil.WriteJSON(w, http.StatusOK, getCoursesResponse{
		Success:        true,
		Courses:        []*models.Course{},
		AppliedCourses: applied,
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Health(ctx); err != nil {
		h.logger.WarnContext(ctx, "health check failed", "error", err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type invariantsResponse struct {
	Holds  bool                    `json:"holds"`
	Report *models.InvariantReport `json:"report"`
}

func (h *Handler) handleInvariants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.service.AuditAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "invariant audit failed", "request_id", request.GetRequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	if report.Violated() {
		h.logger.WarnContext(ctx, "invariant violation reported", "detail", report.String())
	}
	httputil.WriteJSON(w, http.StatusOK, invariantsResponse{Holds: !report.Violated(), Report: report})
}
