// Package service — AuthService handles registration, login, JWT token
// management and the destructive logout that wipes all account data.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/domain"
	"github.com/mahin/bachelor-expenses-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const (
	minPasswordLen = 6
	bcryptCost     = 12
)

func loginKey(identifier string) string  { return "login:" + identifier }
func refreshKey(accountID string) string { return "refresh:" + accountID }

// AuthService orchestrates authentication flows over the document store.
// One account holds at most one active refresh token; issuing a new one
// rotates the old out.
type AuthService struct {
	store      port.DocumentStore
	ledger     *LedgerService
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger

	// Serializes the check-then-create in Register.
	mu sync.Mutex
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.DocumentStore, ledger *LedgerService, jwtSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:      store,
		ledger:     ledger,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// ============================================================
// Register — POST /v1/auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.RegisterResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := normalizeIdentifier(req.Email)
	phone := normalizeIdentifier(req.Phone)
	if email == "" && phone == "" {
		return nil, &domain.ErrValidation{Field: "identifier", Message: "email or phone required"}
	}
	if len(req.Password) < minPasswordLen {
		return nil, &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []string{email, phone} {
		if id == "" {
			continue
		}
		var existing string
		found, err := s.store.Load(ctx, loginKey(id), &existing)
		if err != nil {
			return nil, fmt.Errorf("check existing account: %w", err)
		}
		if found {
			return nil, &domain.ErrConflict{Message: "account already exists"}
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Save(ctx, accountKey(account.ID), &account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}
	for _, id := range []string{email, phone} {
		if id == "" {
			continue
		}
		if err := s.store.Save(ctx, loginKey(id), account.ID); err != nil {
			return nil, fmt.Errorf("save login index: %w", err)
		}
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID))

	return &domain.RegisterResponse{
		AccountID: account.ID,
		Message:   "account created",
	}, nil
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	identifier := normalizeIdentifier(req.Identifier)

	var accountID string
	found, err := s.store.Load(ctx, loginKey(identifier), &accountID)
	if err != nil {
		return nil, fmt.Errorf("resolve identifier: %w", err)
	}
	if !found {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	var account domain.Account
	found, err = s.store.Load(ctx, accountKey(accountID), &account)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !found {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: failed password attempt", zap.String("account_id", account.ID))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	now := time.Now().UTC()
	account.LastLoginAt = &now
	if err := s.store.Save(ctx, accountKey(account.ID), &account); err != nil {
		s.logger.Warn("failed to record last login", zap.String("account_id", account.ID), zap.Error(err))
	}

	pair, err := s.issueTokens(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account logged in", zap.String("account_id", account.ID))
	return pair, nil
}

// ============================================================
// Refresh — POST /v1/auth/refresh
// ============================================================

func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	// Token format is "{accountID}.{random}" so the stored hash can be
	// looked up without a scan.
	accountID, _, ok := strings.Cut(req.RefreshToken, ".")
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "invalid refresh token"}
	}

	var stored domain.RefreshRecord
	found, err := s.store.Load(ctx, refreshKey(accountID), &stored)
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if !found || stored.TokenHash != hashToken(req.RefreshToken) {
		return nil, &domain.ErrUnauthorized{Message: "invalid refresh token"}
	}

	if stored.ExpiresAt.Before(time.Now()) {
		s.logger.Warn("refresh: expired token used", zap.String("account_id", accountID))
		_ = s.store.Delete(ctx, refreshKey(accountID))
		return nil, &domain.ErrUnauthorized{Message: "refresh token expired"}
	}

	// Rotation: issuing the new pair overwrites the stored hash, so the
	// presented token is single-use.
	return s.issueTokens(ctx, accountID)
}

// ============================================================
// Logout — POST /v1/auth/logout
// ============================================================

// Logout revokes the refresh token and erases every record the account
// owns, login indexes included. Logout is account teardown, not just
// session end.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	var account domain.Account
	found, err := s.store.Load(ctx, accountKey(accountID), &account)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	if err := s.store.Delete(ctx, refreshKey(accountID)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if found {
		for _, id := range []string{account.Email, account.Phone} {
			if id == "" {
				continue
			}
			if err := s.store.Delete(ctx, loginKey(id)); err != nil {
				return fmt.Errorf("delete login index: %w", err)
			}
		}
	}
	if err := s.ledger.ClearAll(ctx, accountID); err != nil {
		return err
	}

	s.logger.Info("account logged out and erased", zap.String("account_id", accountID))
	return nil
}

// ============================================================
// ValidateToken — used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}

	return claims, nil
}

// ============================================================
// Internal helpers
// ============================================================

func (s *AuthService) issueTokens(ctx context.Context, accountID string) (*domain.LoginResponse, error) {
	accessToken, err := s.signAccessToken(accountID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, refreshHash, err := generateRefreshToken(accountID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	record := domain.RefreshRecord{
		TokenHash: refreshHash,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.store.Save(ctx, refreshKey(accountID), &record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		AccountID:    accountID,
	}, nil
}

func (s *AuthService) signAccessToken(accountID string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  accountID,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "bachelor-expenses-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func generateRefreshToken(accountID string) (raw string, hashed string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = accountID + "." + hex.EncodeToString(b)
	hashed = hashToken(raw)
	return raw, hashed, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func normalizeIdentifier(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
