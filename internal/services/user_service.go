package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/arvandy/moodmate/internal/models"
	apperrors "github.com/arvandy/moodmate/pkg/errors"
)

// UserService persists account identity and credentials. Password hashing is
// the caller's responsibility; this service only ever sees the hash.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs the credential store around an injected database handle.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// CreateUserInput carries the fields required to persist a new account.
type CreateUserInput struct {
	Email        string
	Name         string
	PasswordHash string
}

// UpdateUserInput applies partial updates; nil fields are left untouched.
type UpdateUserInput struct {
	Name          *string
	PasswordHash  *string
	EmailVerified *time.Time
}

// NormalizeEmail lower-cases and trims an email address so lookups are
// case-insensitive without relying on collation.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByEmail returns the user registered under the normalized email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.ErrUserNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find by email: %w", err)
	}
	return &user, nil
}

// FindByID returns the user with the given id.
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ErrUserNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find by id: %w", err)
	}
	return &user, nil
}

// Create persists a new, unverified account. Email uniqueness is enforced by
// the database constraint rather than a racy pre-check.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if input.PasswordHash == "" {
		return nil, errors.New("user service: password hash is required")
	}

	user := &models.User{
		Email:    email,
		Name:     strings.TrimSpace(input.Name),
		Password: input.PasswordHash,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// Update applies a partial update and returns the fresh row.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ErrUserNotFound
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.PasswordHash != nil {
		updates["password"] = *input.PasswordHash
	}
	if input.EmailVerified != nil {
		updates["email_verified"] = *input.EmailVerified
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ?", id).
			Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("user service: update user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.ErrUserNotFound
		}
	}

	return s.FindByID(ctx, id)
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
