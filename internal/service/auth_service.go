package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/genlink/genlink-api/internal/models"
	"github.com/genlink/genlink-api/pkg/config"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
)

type authVolunteerRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Volunteer, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, volunteer *models.Volunteer) error
	UpdatePassword(ctx context.Context, email, passwordHash string, updatedAt time.Time) error
}

type tokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string, revokedAt time.Time) error
	RevokeAllFor(ctx context.Context, email string) error
}

// RegisterRequest holds the signup payload.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName string  `json:"full_name" validate:"required,min=3,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,len=9,numeric"`
	City     *string `json:"city" validate:"omitempty,min=2,max=100"`
}

// AuthService handles registration, login, token refresh and password
// changes.
type AuthService struct {
	volunteers authVolunteerRepository
	tokens     tokenRepository
	jwtConfig  config.JWTConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(volunteers authVolunteerRepository, tokens tokenRepository, jwtConfig config.JWTConfig, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{volunteers: volunteers, tokens: tokens, jwtConfig: jwtConfig, validator: validate, logger: logger}
}

// Register creates a volunteer account with an empty schedule.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.Volunteer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if err := validatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.volunteers.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	volunteer := &models.Volunteer{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        normalizeOptional(req.Phone),
		PasswordHash: string(hash),
		City:         normalizeOptional(req.City),
	}
	if err := s.volunteers.Create(ctx, volunteer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create volunteer")
	}

	s.logger.Info("volunteer registered", zap.String("volunteer", email))
	return volunteer, nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	volunteer, err := s.volunteers.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}

	if bcrypt.CompareHashAndPassword([]byte(volunteer.PasswordHash), []byte(req.Password)) != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	accessToken, err := s.signAccessToken(volunteer, now)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.issueRefreshToken(ctx, volunteer.Email, now, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("volunteer logged in", zap.String("volunteer", volunteer.Email))
	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtConfig.Expiration.Seconds()),
		Volunteer:    models.VolunteerInfo{Email: volunteer.Email, FullName: volunteer.FullName},
		IssuedAt:     now,
	}, nil
}

// RefreshToken rotates a refresh token and issues a fresh access token. The
// presented token is revoked whether or not rotation succeeds afterwards.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	stored, err := s.tokens.Find(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid refresh token")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load refresh token")
	}

	now := time.Now().UTC()
	if stored.Revoked || now.After(stored.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token expired or revoked")
	}

	volunteer, err := s.volunteers.FindByEmail(ctx, stored.VolunteerEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}

	if err := s.tokens.Revoke(ctx, stored.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate refresh token")
	}

	accessToken, err := s.signAccessToken(volunteer, now)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.issueRefreshToken(ctx, volunteer.Email, now, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return &models.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtConfig.Expiration.Seconds()),
		IssuedAt:     now,
	}, nil
}

// Logout revokes the presented refresh token. Unknown tokens are ignored so
// logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	stored, err := s.tokens.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load refresh token")
	}
	if stored.Revoked {
		return nil
	}
	if err := s.tokens.Revoke(ctx, stored.ID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}
	return nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every outstanding refresh token.
func (s *AuthService) ChangePassword(ctx context.Context, email string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	if err := validatePasswordStrength(req.NewPassword); err != nil {
		return err
	}

	volunteer, err := s.volunteers.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer")
	}

	if bcrypt.CompareHashAndPassword([]byte(volunteer.PasswordHash), []byte(req.OldPassword)) != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	if err := s.volunteers.UpdatePassword(ctx, volunteer.Email, string(hash), now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	if err := s.tokens.RevokeAllFor(ctx, volunteer.Email); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke sessions")
	}

	s.logger.Info("password changed", zap.String("volunteer", volunteer.Email))
	return nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(volunteer *models.Volunteer, now time.Time) (string, error) {
	claims := models.JWTClaims{
		Email:    volunteer.Email,
		FullName: volunteer.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   volunteer.Email,
			Issuer:    s.jwtConfig.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.Expiration)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, nil
}

func (s *AuthService) issueRefreshToken(ctx context.Context, email string, now time.Time, ip, userAgent string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate refresh token")
	}

	token := &models.RefreshToken{
		ID:             uuid.NewString(),
		VolunteerEmail: email,
		Token:          hex.EncodeToString(raw),
		ExpiresAt:      now.Add(s.jwtConfig.RefreshExpiration),
		CreatedAt:      now,
		IPAddress:      ip,
		UserAgent:      userAgent,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store refresh token")
	}
	return token.Token, nil
}

// validatePasswordStrength requires at least one letter and one digit on top
// of the length rule enforced by the struct tags.
func validatePasswordStrength(password string) error {
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return appErrors.Clone(appErrors.ErrValidation, "password must contain at least one letter and one digit")
	}
	return nil
}
