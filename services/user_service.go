package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/repositories"
	"github.com/Dosada05/roster-system/utils"
)

type UserService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, id string, fields map[string]json.RawMessage) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type CreateUserInput struct {
	Username      string   `json:"username"`
	Password      string   `json:"password"`
	Role          string   `json:"role"`
	AssignedTeams []string `json:"assignedTeams"`
}

type userService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{
		userRepo: userRepo,
	}
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		return []models.User{}, nil
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" || strings.TrimSpace(input.Role) == "" {
		return nil, ErrUserFieldsRequired
	}

	role, err := models.ParseUserRole(strings.TrimSpace(input.Role))
	if err != nil {
		return nil, ErrInvalidUserRole
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.User{
		ID:            utils.NewID(utils.PrefixUser),
		Username:      username,
		PasswordHash:  hashedPassword,
		Role:          role,
		AssignedTeams: uniqueIDs(input.AssignedTeams),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserUsernameConflict):
			return nil, ErrUsernameConflict
		case errors.Is(err, repositories.ErrUserInvalidValue):
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		default:
			return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
		}
	}

	user.PasswordHash = ""
	return user, nil
}

// UpdateUser applies a partial update. A supplied password is stored hashed.
func (s *userService) UpdateUser(ctx context.Context, id string, fields map[string]json.RawMessage) (*models.User, error) {
	values, err := decodePatch(userFields, fields)
	if err != nil {
		return nil, err
	}

	assignments, err := toAssignments(values, nil)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, id, assignments); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrUserUsernameConflict):
			return nil, ErrUsernameConflict
		case errors.Is(err, repositories.ErrUserInvalidValue):
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		default:
			return nil, fmt.Errorf("failed to update user %s: %w", id, err)
		}
	}

	return s.GetUser(ctx, id)
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}
