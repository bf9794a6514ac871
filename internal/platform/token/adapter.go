package token

import (
	authmw "enrollment/pkg/platform/middleware/auth"
)

// MiddlewareAdapter exposes Service as the auth middleware's validator.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{StudentID: claims.UserID, JTI: claims.ID}, nil
}
