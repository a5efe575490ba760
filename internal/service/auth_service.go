package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"eventory/api/internal/model"
	"eventory/api/internal/repository"
	"eventory/api/pkg/crypto"
	jwtpkg "eventory/api/pkg/jwt"
)

// TokenSet represents a set of tokens returned after authentication.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*TokenSet, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
	// DeleteAccount soft-deletes the user. Memberships stay in place but the
	// user disappears from every roster and capacity count.
	DeleteAccount(ctx context.Context, userID int64) error
}

type authService struct {
	store      repository.Store
	stateStore repository.StateStore
	jwtManager *jwtpkg.Manager
	hasher     *crypto.Hasher
	logger     *zap.Logger
}

func NewAuthService(
	store repository.Store,
	stateStore repository.StateStore,
	jwtManager *jwtpkg.Manager,
	hasher *crypto.Hasher,
	logger *zap.Logger,
) AuthService {
	return &authService{
		store:      store,
		stateStore: stateStore,
		jwtManager: jwtManager,
		hasher:     hasher,
		logger:     logger,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, invalid("email is invalid")
	}
	if len(in.Password) < crypto.MinPasswordLength {
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", crypto.MinPasswordLength))
	}
	email := strings.ToLower(addr.Address)

	// 1. Check email not already taken
	_, err = s.store.Users().GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	// 2. Hash password
	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 3. Create user; the partial unique index catches a concurrent duplicate
	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*TokenSet, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !s.hasher.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(ctx, user.ID)
}

// RefreshToken rotates: the presented refresh token is consumed and a new pair issued.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return nil, ErrRefreshTokenInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	owner, live, err := s.stateStore.Take(ctx, repository.RefreshTokenKey(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	if !live || owner != strconv.FormatInt(userID, 10) {
		return nil, ErrRefreshTokenInvalid
	}

	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return s.issueTokens(ctx, userID)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return ErrRefreshTokenInvalid
	}
	if err := s.stateStore.Delete(ctx, repository.RefreshTokenKey(claims.ID)); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *authService) DeleteAccount(ctx context.Context, userID int64) error {
	return s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			return notFoundOr(err, ErrUserNotFound, "get user")
		}
		hosted, err := tx.Clubs().CountHostedBy(ctx, userID)
		if err != nil {
			return fmt.Errorf("count hosted clubs: %w", err)
		}
		if hosted > 0 {
			return ErrUserHostsClubs
		}
		if err := tx.Users().Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		s.logger.Info("account deleted", zap.Int64("user_id", userID))
		return nil
	})
}

func (s *authService) issueTokens(ctx context.Context, userID int64) (*TokenSet, error) {
	access, err := s.jwtManager.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, claims, err := s.jwtManager.GenerateRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	err = s.stateStore.Put(ctx,
		repository.RefreshTokenKey(claims.ID),
		strconv.FormatInt(userID, 10),
		s.jwtManager.RefreshTokenTTL(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}

// ensure authService implements AuthService
var _ AuthService = (*authService)(nil)
