package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/repositories"
	"github.com/Dosada05/roster-system/utils"
)

type AuthService interface {
	Login(ctx context.Context, input models.Credentials) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Login checks the credentials and returns the user without its password.
// A legacy plaintext password that matches is replaced by its bcrypt hash.
func (s *authService) Login(ctx context.Context, input models.Credentials) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrCredentialsRequired
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	ok, needsRehash, err := utils.CheckPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if needsRehash {
		s.upgradePassword(ctx, user.ID, input.Password)
	}

	user.PasswordHash = ""
	return user, nil
}

// Ошибка обновления хеша не мешает входу.
func (s *authService) upgradePassword(ctx context.Context, userID, password string) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash legacy password", slog.String("user_id", userID), slog.Any("error", err))
		return
	}

	err = s.userRepo.Update(ctx, userID, []repositories.Assignment{{Column: "password", Value: hashed}})
	if err != nil {
		s.logger.Error("failed to upgrade legacy password", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	s.logger.Info("legacy password upgraded to bcrypt", slog.String("user_id", userID))
}
