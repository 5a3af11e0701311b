package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims carries the authenticated identity on each request.
type JWTClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
