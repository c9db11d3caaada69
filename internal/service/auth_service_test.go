package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/genlink/genlink-api/internal/models"
	"github.com/genlink/genlink-api/pkg/config"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
)

type authRepoMock struct {
	byEmail     map[string]*models.Volunteer
	passwordSet string
	passwordFor string
}

func (m *authRepoMock) FindByEmail(ctx context.Context, email string) (*models.Volunteer, error) {
	v, ok := m.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return v, nil
}

func (m *authRepoMock) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *authRepoMock) Create(ctx context.Context, volunteer *models.Volunteer) error {
	m.byEmail[volunteer.Email] = volunteer
	return nil
}

func (m *authRepoMock) UpdatePassword(ctx context.Context, email, passwordHash string, updatedAt time.Time) error {
	m.passwordFor = email
	m.passwordSet = passwordHash
	return nil
}

type tokenRepoMock struct {
	byToken    map[string]*models.RefreshToken
	revokedAll string
}

func (m *tokenRepoMock) Create(ctx context.Context, token *models.RefreshToken) error {
	if m.byToken == nil {
		m.byToken = map[string]*models.RefreshToken{}
	}
	m.byToken[token.Token] = token
	return nil
}

func (m *tokenRepoMock) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := m.byToken[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (m *tokenRepoMock) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	for _, stored := range m.byToken {
		if stored.ID == id {
			stored.Revoked = true
			stored.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *tokenRepoMock) RevokeAllFor(ctx context.Context, email string) error {
	m.revokedAll = email
	for _, stored := range m.byToken {
		if stored.VolunteerEmail == email {
			stored.Revoked = true
		}
	}
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
		Issuer:            "genlink-test",
	}
}

func newAuthServiceForTest() (*AuthService, *authRepoMock, *tokenRepoMock) {
	repo := &authRepoMock{byEmail: map[string]*models.Volunteer{}}
	tokens := &tokenRepoMock{byToken: map[string]*models.RefreshToken{}}
	return NewAuthService(repo, tokens, testJWTConfig(), nil, nil), repo, tokens
}

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Email:    "Vol@Example.com",
		Password: "sturdy-pass1",
		FullName: "Vol One",
	}
}

func TestAuthServiceRegister(t *testing.T) {
	svc, repo, _ := newAuthServiceForTest()

	volunteer, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, "vol@example.com", volunteer.Email, "email is stored lowercased")
	assert.NotEqual(t, "sturdy-pass1", volunteer.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(volunteer.PasswordHash), []byte("sturdy-pass1")))
	assert.Contains(t, repo.byEmail, "vol@example.com")
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validRegisterRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestAuthServiceRegisterPasswordRules(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()

	cases := []string{
		"short1",      // under 8 characters
		"lettersonly", // no digit
		"12345678",    // no letter
	}
	for _, password := range cases {
		req := validRegisterRequest()
		req.Password = password
		_, err := svc.Register(context.Background(), req)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation), password)
	}
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()
	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "vol@example.com", Password: "sturdy-pass1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "vol@example.com", claims.Email)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()
	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "vol@example.com", Password: "wrong-pass1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials), "unknown account looks like bad credentials")
}

func TestAuthServiceRefreshRotates(t *testing.T) {
	svc, _, tokens := newAuthServiceForTest()
	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "vol@example.com", Password: "sturdy-pass1"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, tokens.byToken[login.RefreshToken].Revoked, "presented token is revoked on rotation")

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized), "a rotated token cannot be replayed")
}

func TestAuthServiceLogoutIdempotent(t *testing.T) {
	svc, _, tokens := newAuthServiceForTest()
	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "vol@example.com", Password: "sturdy-pass1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	assert.True(t, tokens.byToken[login.RefreshToken].Revoked)
	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), "never-issued"))
}

func TestAuthServiceChangePassword(t *testing.T) {
	svc, repo, tokens := newAuthServiceForTest()
	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), "vol@example.com", models.ChangePasswordRequest{
		OldPassword: "sturdy-pass1",
		NewPassword: "even-sturdier2",
	})
	require.NoError(t, err)
	assert.Equal(t, "vol@example.com", repo.passwordFor)
	assert.Equal(t, "vol@example.com", tokens.revokedAll, "all sessions are revoked")

	err = svc.ChangePassword(context.Background(), "vol@example.com", models.ChangePasswordRequest{
		OldPassword: "not-the-one1",
		NewPassword: "another-pass3",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()

	_, err := svc.ValidateToken("not-a-jwt")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
