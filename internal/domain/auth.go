package domain

import "time"

// RegisterRequest creates an account from an email or phone plus password.
// Exactly one of Email/Phone is enough; both may be given.
type RegisterRequest struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// RegisterResponse confirms account creation.
type RegisterResponse struct {
	AccountID string `json:"accountId"`
	Message   string `json:"message"`
}

// LoginRequest authenticates by identifier (email or phone) and password.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse carries the token pair issued on login or refresh.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	AccountID    string `json:"accountId"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshRecord is the stored, hashed form of the single active refresh
// token per account. Issuing a new token overwrites the old record.
type RefreshRecord struct {
	TokenHash string    `json:"tokenHash"`
	ExpiresAt time.Time `json:"expiresAt"`
}
