package services

import (
	"errors"

	"github.com/Dosada05/roster-system/db"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации
	ErrValidationFailed     = errors.New("validation failed")
	ErrNoFieldsToUpdate     = errors.New("no fields to update")
	ErrNameRequired         = errors.New("name is required")
	ErrInvalidPlayerStatus  = errors.New("valid status is required: PENDING, APPROVED, or REJECTED")
	ErrInvalidUserRole      = errors.New("role must be either ORGANIZER or DELEGATE")
	ErrCategoryRefInvalid   = errors.New("referenced category does not exist")
	ErrTeamRefInvalid       = errors.New("referenced team does not exist")
	ErrCredentialsRequired  = errors.New("username and password are required")
	ErrUserFieldsRequired   = errors.New("username, password, and role are required")
	ErrPlayerFieldsRequired = errors.New("categoryId, firstName, and lastName are required")

	// Ошибки конфликтов
	ErrCategoryNameConflict = errors.New("category name already exists")
	ErrTeamNameConflict     = errors.New("team name already exists")
	ErrUsernameConflict     = errors.New("username already exists")
	ErrCategoryInUse        = errors.New("category cannot be deleted as it is currently in use")

	// Ошибки аутентификации и авторизации
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrUserNotDelegate    = errors.New("user is not a delegate")

	// Ошибки, специфичные для сущностей
	ErrCategoryNotFound = errors.New("category not found")
	ErrTeamNotFound     = errors.New("team not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrFileNotFound     = errors.New("file not found")

	// Хранилище недоступно; отображается в 503.
	ErrUnavailable = db.ErrUnavailable
)
