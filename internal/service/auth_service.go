package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"aizeeno/internal/auth"
	apperrors "aizeeno/internal/errors"
	"aizeeno/internal/identity"
	"aizeeno/internal/model"
	"aizeeno/internal/notify"
	"aizeeno/internal/repository"
	"aizeeno/internal/vault"
)

// AuthService handles signup, authentication, and credential maintenance.
type AuthService interface {
	Signup(ctx context.Context, username, password, name, email string) error
	// Login verifies credentials and issues tokens. Failures are reported as
	// ErrInvalidCredentials without distinguishing unknown users from wrong
	// passwords.
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, user model.UserView, err error)
	// GoogleLogin verifies a federated identity token and logs the matching
	// user in, creating one on first sight.
	GoogleLogin(ctx context.Context, token string) (model.UserView, error)
	ChangePassword(ctx context.Context, username, current, newPassword string) error
	UpdateProfile(ctx context.Context, username string, updates model.FieldUpdates) error
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	repo       repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	verifier   identity.Verifier
	notifier   notify.Notifier
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	repo repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	verifier identity.Verifier,
	notifier notify.Notifier,
) AuthService {
	return &authService{
		repo:       repo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		verifier:   verifier,
		notifier:   notifier,
	}
}

// Signup creates a new user with a salted password digest and subscription
// defaults. The welcome notification is dispatched fire-and-forget and never
// affects the result.
func (s *authService) Signup(ctx context.Context, username, password, name, email string) error {
	if name == "" {
		name = username
	}

	// Derivation is deliberately slow; it runs before any store mutation.
	digest, salt, err := vault.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:         username,
		PasswordHash:     digest,
		Salt:             &salt,
		Name:             name,
		Email:            email,
		SubscriptionPlan: model.PlanFree,
		PaymentActive:    false,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}

	notify.Dispatch(s.notifier, user.View())
	return nil
}

// Login authenticates a user and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, username, password string) (string, string, model.UserView, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", "", model.UserView{}, apperrors.ErrInvalidCredentials
	}

	if user.Legacy() {
		// One-time migration path: a single unsalted SHA-1 digest. On match
		// the record is immediately upgraded to salted form.
		if !vault.Equal(user.PasswordHash, vault.LegacyHash(password)) {
			return "", "", model.UserView{}, apperrors.ErrInvalidCredentials
		}
		if err := s.upgradeLegacyRecord(ctx, username, password); err != nil {
			log.Printf("auth: legacy record upgrade for %s failed: %v", username, err)
		}
	} else {
		if !vault.Equal(user.PasswordHash, vault.Hash(password, *user.Salt)) {
			return "", "", model.UserView{}, apperrors.ErrInvalidCredentials
		}
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, user.Username, user.Email)
	if err != nil {
		return "", "", model.UserView{}, err
	}
	return accessToken, refreshToken, user.View(), nil
}

func (s *authService) upgradeLegacyRecord(ctx context.Context, username, password string) error {
	digest, salt, err := vault.HashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.UpdateCredentials(ctx, username, digest, salt)
}

func (s *authService) issueTokens(ctx context.Context, username, email string) (string, string, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(username, email)
	if err != nil {
		return "", "", fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(username, email)
	if err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, username, email, auth.RefreshTokenExpiry); err != nil {
		return "", "", fmt.Errorf("store refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

// GoogleLogin verifies the identity token, then logs in the user owning the
// verified email. Unknown emails get a fresh account with a derived username
// and a random throwaway password.
func (s *authService) GoogleLogin(ctx context.Context, token string) (model.UserView, error) {
	ident, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return model.UserView{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidCredentials, err)
	}

	if existing, err := s.repo.FindByEmail(ctx, ident.Email); err == nil {
		return existing.View(), nil
	}

	local, _, _ := strings.Cut(ident.Email, "@")
	username := local + "_" + randomHex(4)
	if err := s.Signup(ctx, username, randomHex(32), ident.Name, ident.Email); err != nil {
		return model.UserView{}, err
	}
	return model.UserView{Username: username, Name: ident.Name, Email: ident.Email}, nil
}

// ChangePassword replaces the stored digest and salt after verifying the
// current password. Legacy records are rejected here; only salted
// verification is accepted.
func (s *authService) ChangePassword(ctx context.Context, username, current, newPassword string) error {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user.Legacy() {
		return apperrors.ErrInvalidRecord
	}
	if !vault.Equal(user.PasswordHash, vault.Hash(current, *user.Salt)) {
		return apperrors.ErrInvalidCredentials
	}

	digest, salt, err := vault.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdateCredentials(ctx, username, digest, salt)
}

// UpdateProfile merges whitelisted fields into the record. A plan outside the
// known configuration is rejected before any mutation.
func (s *authService) UpdateProfile(ctx context.Context, username string, updates model.FieldUpdates) error {
	if updates.SubscriptionPlan != nil && !updates.SubscriptionPlan.Valid() {
		return apperrors.ErrPlanUnknown
	}
	if err := s.repo.ApplyFieldUpdates(ctx, username, updates); err != nil {
		return err
	}

	if user, err := s.repo.FindByUsername(ctx, username); err == nil {
		if user.PaymentActive && !user.SubscriptionPlan.Paid() {
			log.Printf("auth: inconsistent record for %s: payment active on plan %q", username, user.SubscriptionPlan)
		}
	}
	return nil
}

// Refresh validates a refresh token and returns a new access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidCredentials
	}
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	username, email, err := s.tokenStore.GetRefreshToken(ctx, tokenID)
	if err != nil || username != claims.Username || email != claims.Email {
		return "", apperrors.ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(claims.Username, claims.Email)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates a refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return apperrors.ErrInvalidCredentials
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for credential material
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(buf)
}
