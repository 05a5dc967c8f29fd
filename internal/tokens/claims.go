package tokens

import "github.com/golang-jwt/jwt/v5"

// AccessClaims travel inside the signed access token and are never persisted.
type AccessClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the subject and jti. Role and email are re-derived
// at refresh time so stale claims cannot outlive a role change.
type RefreshClaims struct {
	jwt.RegisteredClaims
}
