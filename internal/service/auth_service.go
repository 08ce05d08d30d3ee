package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"spendwise/internal/auth"
	"spendwise/internal/errors"
	"spendwise/internal/model"
	"spendwise/internal/notify"
	"spendwise/internal/repository"
)

const bcryptCost = 10

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Client-facing messages shared by several operations.
const (
	msgInvalidCredentials  = "Invalid credentials"
	msgInvalidRefreshToken = "Invalid refresh token"
	msgUserNotFound        = "User not found"
)

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

// AuthService handles authentication operations.
type AuthService interface {
	SignUp(ctx context.Context, username, email, password string) (*AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	// Logout revokes every refresh token of the user and denies the access token until expiresAt.
	Logout(ctx context.Context, userID uuid.UUID, accessTokenID string, expiresAt time.Time) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	notifier   NotificationService
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, notifier NotificationService) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		notifier:   notifier,
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports whether email looks like local@domain.tld without whitespace.
func ValidateEmail(email string) bool {
	if !emailPattern.MatchString(email) {
		return false
	}
	return checkmail.ValidateFormat(email) == nil
}

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// SignUp creates a user with a hashed password and issues a token pair.
func (s *authService) SignUp(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, errors.Validation("All fields are required")
	}
	if !ValidateEmail(email) {
		return nil, errors.Validation("Invalid email format")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, errors.Duplicate("User already exists")
	}
	// If error is not "record not found", return it (could be a database error)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:                 uuid.New(),
		Username:           username,
		Email:              email,
		PasswordHash:       hashedPassword,
		EmailNotifications: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// lost a race with a concurrent sign-up
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Duplicate("User already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAsync(user, notify.Message{Kind: notify.KindWelcome})
	return result, nil
}

// SignIn authenticates a user. Unknown email and wrong password are indistinguishable.
func (s *authService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.Validation("Email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Auth(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.Auth(msgInvalidCredentials)
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*AuthResult, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, s.jwtService.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResult{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", errors.Auth("Refresh token is required")
	}

	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", errors.Auth(msgInvalidRefreshToken)
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", errors.Auth(msgInvalidRefreshToken)
	}

	// Verify token exists in Redis and belongs to the same user
	storedUserID, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil || storedUserID != userID {
		return "", errors.Auth(msgInvalidRefreshToken)
	}

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.NotFound(msgUserNotFound)
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	accessToken, err := s.jwtService.GenerateAccessToken(userID)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

func (s *authService) Logout(ctx context.Context, userID uuid.UUID, accessTokenID string, expiresAt time.Time) error {
	if err := s.tokenStore.DeleteUserRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	if accessTokenID == "" {
		return nil
	}
	if err := s.tokenStore.BlacklistAccessToken(ctx, accessTokenID, time.Until(expiresAt)); err != nil {
		return fmt.Errorf("deny access token: %w", err)
	}
	return nil
}
