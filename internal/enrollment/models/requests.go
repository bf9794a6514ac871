package models

import (
	"errors"
	"strings"
)

// CourseRequest is the body of apply and cancel calls.
type CourseRequest struct {
	CourseKey string `json:"course_key"`
}

// Validate checks the request body.
func (r *CourseRequest) Validate() error {
	r.CourseKey = strings.TrimSpace(r.CourseKey)
	if r.CourseKey == "" {
		return errors.New("course_key is required")
	}
	return nil
}

// AdmissionResponse mirrors the {success, message} envelope clients expect.
type AdmissionResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Reason  RejectReason `json:"reason,omitempty"`
}

// DropdownResponse is returned by the dropdown options endpoint.
type DropdownResponse struct {
	Success     bool     `json:"success"`
	Credits     []int    `json:"credits"`
	Departments []string `json:"departments"`
	Message     string   `json:"message,omitempty"`
}

// SearchResponse is returned by the course search endpoint.
type SearchResponse struct {
	Success bool      `json:"success"`
	Courses []*Course `json:"courses"`
	Message string    `json:"message,omitempty"`
}

// AppliedCoursesResponse lists the courses a student currently holds.
type AppliedCoursesResponse struct {
	Success bool      `json:"success"`
	Courses []*Course `json:"courses"`
}
