package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"libris/internal/cache"
	apperr "libris/internal/errors"
	"libris/internal/model"
	"libris/internal/repository"
)

const (
	userCacheTTL = 5 * time.Minute
	bcryptCost   = 10
)

// UserInput carries every writable user field. Role and Status default to
// borrower and active when empty.
type UserInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
	Role        string
	Status      string
}

// UserPatch carries the user fields to change; nil fields are left as they are.
type UserPatch struct {
	FirstName   *string
	LastName    *string
	Email       *string
	Password    *string
	PhoneNumber *string
	Role        *string
	Status      *string
}

// IsEmpty reports whether the patch names no field.
func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Password == nil &&
		p.PhoneNumber == nil && p.Role == nil && p.Status == nil
}

// UserService exposes directory operations.
type UserService interface {
	CreateUser(ctx context.Context, in UserInput) (*model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id uint, in UserInput) (*model.User, error)
	PatchUser(ctx context.Context, id uint, patch UserPatch) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type userService struct {
	store repository.Store
	cache *cache.Client
}

// NewUserService builds a UserService with store and cache.
func NewUserService(store repository.Store, cache *cache.Client) UserService {
	return &userService{store: store, cache: cache}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userService) CreateUser(ctx context.Context, in UserInput) (user *model.User, err error) {
	ctx, span := startSpan(ctx, "directory.create_user")
	defer func() { endSpan(span, err) }()

	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validationf("missing required fields: first_name, last_name, email, password")
	}

	user = &model.User{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       normalizeEmail(in.Email),
		PhoneNumber: in.PhoneNumber,
		Role:        model.RoleBorrower,
		Status:      model.UserStatusActive,
	}
	if err := applyRoleStatus(user, in.Role, in.Status); err != nil {
		return nil, err
	}
	if user.PasswordHash, err = hashPassword(in.Password); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, s.store, user.Email, 0); err != nil {
		return nil, err
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperr.ErrUserNotFound)
	}

	s.cache.SetJSON(ctx, s.cacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.store.Users().List(ctx)
}

func (s *userService) UpdateUser(ctx context.Context, id uint, in UserInput) (user *model.User, err error) {
	ctx, span := startSpan(ctx, "directory.update_user", trace.WithAttributes(attribute.Int("user.id", int(id))))
	defer func() { endSpan(span, err) }()

	if in.FirstName == "" || in.LastName == "" || in.Email == "" {
		return nil, apperr.Validationf("missing required fields: first_name, last_name, email")
	}

	patch := UserPatch{
		FirstName:   &in.FirstName,
		LastName:    &in.LastName,
		Email:       &in.Email,
		PhoneNumber: &in.PhoneNumber,
	}
	if in.Password != "" {
		patch.Password = &in.Password
	}
	if in.Role != "" {
		patch.Role = &in.Role
	}
	if in.Status != "" {
		patch.Status = &in.Status
	}
	return s.apply(ctx, id, patch)
}

func (s *userService) PatchUser(ctx context.Context, id uint, patch UserPatch) (user *model.User, err error) {
	ctx, span := startSpan(ctx, "directory.patch_user", trace.WithAttributes(attribute.Int("user.id", int(id))))
	defer func() { endSpan(span, err) }()

	if patch.IsEmpty() {
		return nil, apperr.Validationf("no valid fields to update")
	}
	return s.apply(ctx, id, patch)
}

func (s *userService) apply(ctx context.Context, id uint, p UserPatch) (*model.User, error) {
	var user *model.User
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		existing, err := tx.Users().FindByID(ctx, id)
		if err != nil {
			return notFound(err, apperr.ErrUserNotFound)
		}

		if p.FirstName != nil {
			if *p.FirstName == "" {
				return apperr.Validationf("first_name must not be empty")
			}
			existing.FirstName = *p.FirstName
		}
		if p.LastName != nil {
			if *p.LastName == "" {
				return apperr.Validationf("last_name must not be empty")
			}
			existing.LastName = *p.LastName
		}
		if p.PhoneNumber != nil {
			existing.PhoneNumber = *p.PhoneNumber
		}
		if p.Email != nil {
			email := normalizeEmail(*p.Email)
			if email == "" {
				return apperr.Validationf("email must not be empty")
			}
			if email != existing.Email {
				if err := s.ensureEmailFree(ctx, tx, email, existing.ID); err != nil {
					return err
				}
			}
			existing.Email = email
		}

		var role, status string
		if p.Role != nil {
			role = *p.Role
			if role == "" {
				return apperr.Validationf("invalid role %q", role)
			}
		}
		if p.Status != nil {
			status = *p.Status
			if status == "" {
				return apperr.Validationf("invalid status %q", status)
			}
		}
		if err := applyRoleStatus(existing, role, status); err != nil {
			return err
		}

		if p.Password != nil {
			if *p.Password == "" {
				return apperr.Validationf("password must not be empty")
			}
			hash, err := hashPassword(*p.Password)
			if err != nil {
				return err
			}
			existing.PasswordHash = hash
		}

		if err := tx.Users().Update(ctx, existing); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		user = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uint) (err error) {
	ctx, span := startSpan(ctx, "directory.delete_user", trace.WithAttributes(attribute.Int("user.id", int(id))))
	defer func() { endSpan(span, err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().FindByID(ctx, id); err != nil {
			return notFound(err, apperr.ErrUserNotFound)
		}
		open, err := tx.Borrows().CountOpenByUser(ctx, id)
		if err != nil {
			return fmt.Errorf("count open borrows: %w", err)
		}
		if open > 0 {
			return apperr.ErrUserHasLoans
		}
		return tx.Users().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

// ensureEmailFree fails with ErrEmailTaken when another user owns email.
func (s *userService) ensureEmailFree(ctx context.Context, store repository.Store, email string, self uint) error {
	existing, err := store.Users().FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if existing.ID != self {
		return apperr.ErrEmailTaken
	}
	return nil
}

// applyRoleStatus sets role and status from their wire names; empty names leave
// the current value.
func applyRoleStatus(user *model.User, role, status string) error {
	if role != "" {
		r, ok := model.ParseRole(role)
		if !ok {
			return apperr.Validationf("invalid role %q", role)
		}
		user.Role = r
	}
	if status != "" {
		st, ok := model.ParseUserStatus(status)
		if !ok {
			return apperr.Validationf("invalid status %q", status)
		}
		user.Status = st
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
