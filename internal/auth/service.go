package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
	"task-tracker/internal/service"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 150
	minPasswordLength = 8
	// bcrypt rejects longer input.
	maxPasswordBytes = 72
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// RegisterInput carries the fields of a sign-up request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Service registers and authenticates users and issues their tokens.
type Service struct {
	users             *repository.UserRepository
	tokens            *TokenIssuer
	defaultCategories []string
}

// NewService wires the identity provider. defaultCategories are created for
// every registered user.
func NewService(users *repository.UserRepository, tokens *TokenIssuer, defaultCategories []string) *Service {
	return &Service{users: users, tokens: tokens, defaultCategories: defaultCategories}
}

// Register creates the user together with the default categories.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	verr := &service.ValidationError{}
	switch n := utf8.RuneCountInString(username); {
	case n < minUsernameLength || n > maxUsernameLength:
		verr.Add("username", "must be between 3 and 150 characters")
	case strings.HasPrefix(username, repository.TelegramUsernamePrefix):
		verr.Add("username", "is reserved")
	}
	if email != "" && !strings.Contains(email, "@") {
		verr.Add("email", "is not a valid address")
	}
	switch {
	case utf8.RuneCountInString(input.Password) < minPasswordLength:
		verr.Add("password", "must be at least 8 characters")
	case len(input.Password) > maxPasswordBytes:
		verr.Add("password", "must be at most 72 bytes")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.CreateWithCategories(ctx, user, s.defaultCategories); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("username %q: %w", username, service.ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user whose credentials match.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" || !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken returns an access token for the user.
func (s *Service) IssueToken(userID uint) (string, error) {
	return s.tokens.Issue(userID)
}

// UserFromToken verifies the token and loads the user it belongs to.
func (s *Service) UserFromToken(ctx context.Context, token string) (*model.User, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
