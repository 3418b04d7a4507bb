package jwttoken

import (
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/middleware"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
)

// MiddlewareAdapter adapts JWTService to the middleware.JWTValidator interface,
// converting the raw claim into a typed user ID.
type MiddlewareAdapter struct {
	service *JWTService
}

func NewMiddlewareAdapter(service *JWTService) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return &middleware.JWTClaims{UserID: userID}, nil
}
