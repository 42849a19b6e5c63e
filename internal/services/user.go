package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vlearn/apiserver/internal/store"
	"github.com/vlearn/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// Default administrator account, seeded once at startup.
const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
	defaultAdminEmail    = "admin@vlearn.com"
	defaultAdminFullName = "Administrator"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
	UpdateProfile(ctx context.Context, id int, email, fullName string) (types.User, error)
	UpdatePasswordHash(ctx context.Context, id int, passwordHash string) error
}

// UserService encapsulates account use-cases: registration, authentication,
// profile maintenance, and default-admin seeding.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Register creates a new account. It returns store.ErrDuplicate when the
// username or email is already taken (exact, case-sensitive match).
func (s *UserService) Register(ctx context.Context, username, email, password, fullName string) (types.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	if username == "" || email == "" || password == "" {
		return types.User{}, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.User{}, store.ErrDuplicate
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, store.ErrDuplicate
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hashed),
	})
}

// Authenticate verifies credentials and records the login time. Unknown
// username and wrong password both return ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return types.User{}, err
	}
	user.LastLogin = &now
	return user, nil
}

// UpdateProfile changes email and/or full name; empty values keep the
// current ones.
func (s *UserService) UpdateProfile(ctx context.Context, id int, email, fullName string) (types.User, error) {
	return s.repo.UpdateProfile(ctx, id, strings.TrimSpace(email), strings.TrimSpace(fullName))
}

// ChangePassword replaces the password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, id int, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, user.ID, string(hashed))
}

// EnsureDefaultAdmin seeds the default administrator account once. Calling
// it again, or racing another instance, is a no-op.
func (s *UserService) EnsureDefaultAdmin(ctx context.Context) error {
	if _, err := s.repo.GetByUsername(ctx, defaultAdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.repo.Create(ctx, types.User{
		Username:     defaultAdminUsername,
		Email:        defaultAdminEmail,
		FullName:     defaultAdminFullName,
		IsAdmin:      true,
		PasswordHash: string(hashed),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	return err
}
