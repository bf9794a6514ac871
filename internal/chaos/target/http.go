package target

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/middleware/admin"
	"enrollment/pkg/platform/middleware/auth"
)

// TokenSource mints the access token a student's calls carry.
type TokenSource interface {
	Token(studentID string) (string, error)
}

// HTTP drives a running enrollment server.
type HTTP struct {
	baseURL    *url.URL
	client     *http.Client
	tokens     TokenSource
	adminToken string
}

type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default client. Per-call deadlines come from
// the caller's context, not the client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTP) {
		t.client = client
	}
}

// WithAdminToken authenticates invariant reads.
func WithAdminToken(token string) HTTPOption {
	return func(t *HTTP) {
		t.adminToken = token
	}
}

func NewHTTP(baseURL string, tokens TokenSource, opts ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	t := &HTTP{baseURL: u, client: &http.Client{}, tokens: tokens}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *HTTP) Apply(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	return t.intent(ctx, models.Apply(studentID, courseKey), "/api/apply_course")
}

func (t *HTTP) Cancel(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	return t.intent(ctx, models.Cancel(studentID, courseKey), "/api/cancel_course")
}

func (t *HTTP) intent(ctx context.Context, intent models.Intent, path string) (*models.Decision, error) {
	var body models.AdmissionResponse
	status, err := t.do(ctx, http.MethodPost, path, intent.StudentID, models.CourseRequest{CourseKey: intent.CourseKey}, &body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", intent, err)
	}
	switch {
	case status == http.StatusOK && body.Success:
		return models.Accepted(intent), nil
	case isRejection(status) && !body.Success && body.Reason != models.ReasonNone:
		return models.Rejected(intent, body.Reason), nil
	default:
		return nil, fmt.Errorf("%s: %w: status %d: %s", intent, ErrUnexpectedResponse, status, body.Message)
	}
}

type fallbackResponse struct {
	Success  bool               `json:"success"`
	Attempts []*models.Decision `json:"attempts"`
	Error    string             `json:"error"`
}

func (t *HTTP) ApplyFirstAvailable(ctx context.Context, studentID string, candidates []string) (*models.FallbackResult, error) {
	var body fallbackResponse
	req := map[string][]string{"course_keys": candidates}
	status, err := t.do(ctx, http.MethodPost, "/api/apply_first_available", studentID, req, &body)
	if err != nil {
		return nil, fmt.Errorf("apply first available: %w", err)
	}
	if (status != http.StatusOK && !isRejection(status)) || body.Error != "" {
		return nil, fmt.Errorf("apply first available: %w: status %d", ErrUnexpectedResponse, status)
	}
	result := &models.FallbackResult{Attempts: body.Attempts}
	for _, d := range body.Attempts {
		if d.IsAccepted() {
			result.Accepted = d
		}
	}
	return result, nil
}

func (t *HTTP) FetchOptions(ctx context.Context, studentID string) (*models.DropdownOptions, error) {
	var body models.DropdownResponse
	status, err := t.do(ctx, http.MethodGet, "/api/dropdown_options", studentID, nil, &body)
	if err != nil {
		return nil, fmt.Errorf("fetch options: %w", err)
	}
	if status != http.StatusOK || !body.Success {
		return nil, fmt.Errorf("fetch options: %w: status %d", ErrUnexpectedResponse, status)
	}
	return &models.DropdownOptions{Credits: body.Credits, Departments: body.Departments}, nil
}

func (t *HTTP) SearchCourses(ctx context.Context, studentID string, filter models.CourseFilter) ([]*models.Course, error) {
	q := url.Values{}
	if filter.Credits != 0 {
		q.Set("credits", strconv.Itoa(filter.Credits))
	}
	if filter.Department != "" {
		q.Set("department", filter.Department)
	}
	if filter.Name != "" {
		q.Set("course_name", filter.Name)
	}
	path := "/api/search_courses"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var body models.SearchResponse
	status, err := t.do(ctx, http.MethodGet, path, studentID, nil, &body)
	if err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	if status != http.StatusOK || !body.Success {
		return nil, fmt.Errorf("search courses: %w: status %d", ErrUnexpectedResponse, status)
	}
	return body.Courses, nil
}

func (t *HTTP) Health(ctx context.Context) error {
	status, err := t.do(ctx, http.MethodGet, "/health", "", nil, nil)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health: %w: status %d", ErrUnexpectedResponse, status)
	}
	return nil
}

type invariantsResponse struct {
	Report *models.InvariantReport `json:"report"`
}

func (t *HTTP) AuditAll(ctx context.Context) (*models.InvariantReport, error) {
	var body invariantsResponse
	status, err := t.do(ctx, http.MethodGet, "/admin/invariants", "", nil, &body)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	if status != http.StatusOK || body.Report == nil {
		return nil, fmt.Errorf("audit: %w: status %d", ErrUnexpectedResponse, status)
	}
	return body.Report, nil
}

// do sends one request and decodes a JSON body into out when out is non-nil
// and the reply carries one. A body that fails to decode is an error.
func (t *HTTP) do(ctx context.Context, method, path, studentID string, in, out any) (int, error) {
	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL.String()+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if studentID != "" {
		token, err := t.tokens.Token(studentID)
		if err != nil {
			return 0, fmt.Errorf("mint token: %w", err)
		}
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	if t.adminToken != "" {
		req.Header.Set(admin.HeaderAdminToken, t.adminToken)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if out == nil {
		return resp.StatusCode, nil
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func isRejection(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusNotFound
}
