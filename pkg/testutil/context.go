package testutil

import (
	"net/http"
	"time"

	"enrollment/pkg/requestcontext"
)

// WithStudentID adds a student ID to the request context.
// This simulates what the auth middleware does for authenticated requests.
// An empty ID leaves the request unauthenticated.
func WithStudentID(req *http.Request, studentID string) *http.Request {
	if studentID == "" {
		return req
	}
	return req.WithContext(requestcontext.WithStudentID(req.Context(), studentID))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

