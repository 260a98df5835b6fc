package types

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT payload asserted on every authenticated request.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// LoginRequest represents the authenticate request body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
