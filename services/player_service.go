package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/roster-system/live"
	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/repositories"
	"github.com/Dosada05/roster-system/utils"
)

type PlayerService interface {
	ListPlayersByCategory(ctx context.Context, categoryID string) ([]models.Player, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error)
	UpdatePlayer(ctx context.Context, id string, fields map[string]json.RawMessage) (*models.Player, error)
	UpdatePlayerStatus(ctx context.Context, id string, status string) (*PlayerStatusResult, error)
}

type CreatePlayerInput struct {
	CategoryID       string  `json:"categoryId"`
	TeamID           *string `json:"teamId"`
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	BirthDate        *string `json:"birthDate"`
	PhotoURL         *string `json:"photoUrl"`
	DocumentPhotoURL *string `json:"documentPhotoUrl"`
}

type PlayerStatusResult struct {
	ID     string              `json:"id"`
	Status models.PlayerStatus `json:"status"`
}

type playerService struct {
	playerRepo   repositories.PlayerRepository
	categoryRepo repositories.CategoryRepository
	teamRepo     repositories.TeamRepository
	notifier     Notifier
	logger       *slog.Logger
}

func NewPlayerService(
	playerRepo repositories.PlayerRepository,
	categoryRepo repositories.CategoryRepository,
	teamRepo repositories.TeamRepository,
	notifier Notifier,
	logger *slog.Logger,
) PlayerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &playerService{
		playerRepo:   playerRepo,
		categoryRepo: categoryRepo,
		teamRepo:     teamRepo,
		notifier:     notifierOrNop(notifier),
		logger:       logger,
	}
}

func (s *playerService) ListPlayersByCategory(ctx context.Context, categoryID string) ([]models.Player, error) {
	players, err := s.playerRepo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players of category %s: %w", categoryID, err)
	}
	if players == nil {
		return []models.Player{}, nil
	}
	return players, nil
}

func (s *playerService) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %s: %w", id, err)
	}
	return player, nil
}

// CreatePlayer registers a new player as PENDING.
func (s *playerService) CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	categoryID := strings.TrimSpace(input.CategoryID)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if categoryID == "" || firstName == "" || lastName == "" {
		return nil, ErrPlayerFieldsRequired
	}

	birthDate := trimmedOrNil(input.BirthDate)
	if birthDate != nil {
		if err := validateBirthDate(*birthDate); err != nil {
			return nil, err
		}
	}

	teamID := trimmedOrNil(input.TeamID)
	if teamID != nil {
		if err := s.checkTeamRef(ctx, *teamID); err != nil {
			return nil, err
		}
	}

	player := &models.Player{
		ID:               utils.NewID(utils.PrefixPlayer),
		CategoryID:       categoryID,
		TeamID:           teamID,
		FirstName:        firstName,
		LastName:         lastName,
		BirthDate:        birthDate,
		PhotoURL:         trimmedOrNil(input.PhotoURL),
		DocumentPhotoURL: trimmedOrNil(input.DocumentPhotoURL),
		Status:           models.StatusPending,
	}

	if err := s.playerRepo.Create(ctx, player); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPlayerCategoryInvalid):
			return nil, ErrCategoryRefInvalid
		case errors.Is(err, repositories.ErrPlayerInvalidValue):
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		default:
			return nil, fmt.Errorf("failed to create player: %w", err)
		}
	}

	created, err := s.playerRepo.GetByID(ctx, player.ID)
	if err != nil {
		s.logger.Warn("created player could not be re-read", slog.String("player_id", player.ID), slog.Any("error", err))
		created = player
	}

	publish(s.notifier, live.CategoryRoom(created.CategoryID), live.PlayerCreated, created)
	return created, nil
}

// UpdatePlayer applies a partial update and returns the full player.
// A malformed body is rejected first, then a missing player, then
// references to unknown categories or teams.
func (s *playerService) UpdatePlayer(ctx context.Context, id string, fields map[string]json.RawMessage) (*models.Player, error) {
	values, err := decodePatch(playerFields, fields)
	if err != nil {
		return nil, err
	}

	if _, err := s.GetPlayer(ctx, id); err != nil {
		return nil, err
	}

	assignments, err := toAssignments(values, func(v fieldValue) error {
		switch {
		case v.Spec.Kind == kindCategoryRef:
			return s.checkCategoryRef(ctx, v.Text)
		case v.Spec.Kind == kindTeamRef && !v.Null:
			return s.checkTeamRef(ctx, v.Text)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.playerRepo.Update(ctx, id, assignments); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPlayerNotFound):
			return nil, ErrPlayerNotFound
		case errors.Is(err, repositories.ErrPlayerCategoryInvalid):
			return nil, ErrCategoryRefInvalid
		case errors.Is(err, repositories.ErrPlayerInvalidValue):
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		default:
			return nil, fmt.Errorf("failed to update player %s: %w", id, err)
		}
	}

	player, err := s.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}

	publish(s.notifier, live.CategoryRoom(player.CategoryID), live.PlayerUpdated, player)
	return player, nil
}

func (s *playerService) UpdatePlayerStatus(ctx context.Context, id string, status string) (*PlayerStatusResult, error) {
	parsed, err := models.ParsePlayerStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, ErrInvalidPlayerStatus
	}

	if err := s.playerRepo.UpdateStatus(ctx, id, parsed); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to update status of player %s: %w", id, err)
	}

	result := &PlayerStatusResult{ID: id, Status: parsed}

	if player, err := s.playerRepo.GetByID(ctx, id); err == nil {
		publish(s.notifier, live.CategoryRoom(player.CategoryID), live.PlayerStatusChanged, result)
	} else {
		s.logger.Warn("status change not published", slog.String("player_id", id), slog.Any("error", err))
	}
	return result, nil
}

func (s *playerService) checkCategoryRef(ctx context.Context, categoryID string) error {
	exists, err := s.categoryRepo.Exists(ctx, nil, categoryID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCategoryRefInvalid, categoryID)
	}
	return nil
}

func (s *playerService) checkTeamRef(ctx context.Context, teamID string) error {
	exists, err := s.teamRepo.Exists(ctx, nil, teamID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrTeamRefInvalid, teamID)
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
