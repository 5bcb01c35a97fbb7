package dto

import (
	"time"

	"github.com/jtec/maintenance-service/internal/domain"
)

// RegisterRequest payload for new profiles.
type RegisterRequest struct {
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	Nom          string      `json:"nom"`
	Role         domain.Role `json:"role"`
	RegieID      *string     `json:"regie_id,omitempty"`
	EntrepriseID *string     `json:"entreprise_id,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileResponse is the public view of a profile.
type ProfileResponse struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Nom          string      `json:"nom"`
	Role         domain.Role `json:"role"`
	RegieID      *string     `json:"regie_id,omitempty"`
	EntrepriseID *string     `json:"entreprise_id,omitempty"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   ProfileResponse `json:"profile"`
}
