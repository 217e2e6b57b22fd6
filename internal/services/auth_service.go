package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/parks-gardens/fieldops-api/internal/auth"
	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = errors.New("email already exists")
	ErrInvalidEmail         = errors.New("a valid email is required")
	ErrNameRequired         = errors.New("name is required")
	ErrInvalidRole          = errors.New("invalid role")
	ErrRoleNotAllowed       = errors.New("self-registration is limited to field staff")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	repos  *repository.Repositories
	tokens *auth.TokenManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(repos *repository.Repositories, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		repos:  repos,
		tokens: tokens,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     models.UserRole
	CrewID   *string
	Phone    *string
}

// Register creates a new user and issues a token for them.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, "", err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, "", ErrNameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, "", ErrPasswordTooShort
	}
	role := input.Role
	if role == "" {
		role = models.RoleFieldStaff
	}
	if !role.Valid() {
		return nil, "", ErrInvalidRole
	}
	// Elevated roles are granted by an admin through the staff endpoints.
	if role != models.RoleFieldStaff {
		return nil, "", ErrRoleNotAllowed
	}

	users := s.repos.WithContext(ctx).Users
	if _, err := users.FindByEmail(email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CrewID:       trimmedOrNil(input.CrewID),
		Phone:        trimmedOrNil(input.Phone),
	}
	if err := users.Create(user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the user with a fresh token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, string, error) {
	user, err := s.repos.WithContext(ctx).Users.FindByEmail(strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.repos.WithContext(ctx).Users.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", ErrFailedToHashPassword
	}
	return string(hash), nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
