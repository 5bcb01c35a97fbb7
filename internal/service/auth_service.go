package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jtec/maintenance-service/internal/auth"
	"github.com/jtec/maintenance-service/internal/config"
	"github.com/jtec/maintenance-service/internal/domain"
	"github.com/jtec/maintenance-service/internal/repository"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows at the identity
// edge. Core operations never consult it; they receive the resolved
// ActorContext instead.
type AuthService struct {
	profiles   repository.ProfileRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, profiles repository.ProfileRepository) *AuthService {
	return &AuthService{
		profiles:   profiles,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterInput describes a new profile.
type RegisterInput struct {
	Email        string
	Password     string
	Nom          string
	Role         domain.Role
	RegieID      *string
	EntrepriseID *string
}

var validRoles = map[domain.Role]struct{}{
	domain.RoleLocataire:  {},
	domain.RoleRegie:      {},
	domain.RoleEntreprise: {},
	domain.RoleTechnicien: {},
	domain.RoleAdminJTEC:  {},
}

// Register creates a profile. Agency and company roles must name their
// membership; a technician must name the company employing them.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Profile, string, time.Time, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email and password required", nil)
	}
	if _, ok := validRoles[input.Role]; !ok {
		return nil, "", time.Time{}, apperrors.NewValidationError("unknown role", map[string]any{"role": string(input.Role)})
	}
	switch input.Role {
	case domain.RoleRegie:
		if input.RegieID == nil {
			return nil, "", time.Time{}, apperrors.NewValidationError("regie_id required for role regie", nil)
		}
	case domain.RoleEntreprise, domain.RoleTechnicien:
		if input.EntrepriseID == nil {
			return nil, "", time.Time{}, apperrors.NewValidationError("entreprise_id required for this role", nil)
		}
	}

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	profile := &domain.Profile{
		Email:        email,
		PasswordHash: hash,
		Nom:          strings.TrimSpace(input.Nom),
		Role:         input.Role,
		RegieID:      input.RegieID,
		EntrepriseID: input.EntrepriseID,
		Active:       true,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(profile)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return profile, token, exp, nil
}

// Login authenticates a profile and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Profile, string, time.Time, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !profile.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("profile deactivated")
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(profile)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return profile, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
