package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/roster-system/live"
	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/repositories"
	"github.com/Dosada05/roster-system/utils"
)

type TeamService interface {
	CreateTeam(ctx context.Context, input TeamInput) (*models.TeamDetails, error)
	UpdateTeam(ctx context.Context, id string, input TeamInput) (*models.TeamDetails, error)
	DeleteTeam(ctx context.Context, id string) error
	ListTeams(ctx context.Context) ([]models.Team, error)
	ListTeamsByCategory(ctx context.Context, categoryID string) ([]models.TeamSummary, error)
}

type TeamInput struct {
	Name        string   `json:"name"`
	CategoryIDs []string `json:"categoryIds"`
}

type teamService struct {
	db           repositories.DBProvider
	teamRepo     repositories.TeamRepository
	categoryRepo repositories.CategoryRepository
	notifier     Notifier
	logger       *slog.Logger
}

func NewTeamService(
	db repositories.DBProvider,
	teamRepo repositories.TeamRepository,
	categoryRepo repositories.CategoryRepository,
	notifier Notifier,
	logger *slog.Logger,
) TeamService {
	if logger == nil {
		logger = slog.Default()
	}
	return &teamService{
		db:           db,
		teamRepo:     teamRepo,
		categoryRepo: categoryRepo,
		notifier:     notifierOrNop(notifier),
		logger:       logger,
	}
}

// CreateTeam inserts the team and its category links in one transaction.
// Category ids that do not exist are skipped; duplicates produce one link.
func (s *teamService) CreateTeam(ctx context.Context, input TeamInput) (*models.TeamDetails, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	team := &models.Team{
		ID:   utils.NewID(utils.PrefixTeam),
		Name: name,
	}
	categoryIDs := uniqueIDs(input.CategoryIDs)

	var categories []models.Category
	err := withTransaction(ctx, s.db, s.logger, "team_create", func(tx *sql.Tx) error {
		if err := s.teamRepo.Create(ctx, tx, team); err != nil {
			return err
		}
		if err := s.linkCategories(ctx, tx, team.ID, categoryIDs); err != nil {
			return err
		}

		var err error
		categories, err = s.teamRepo.ListCategories(ctx, tx, team.ID)
		return err
	})
	if err != nil {
		return nil, s.mapWriteError(err, "create", team.ID)
	}

	details := &models.TeamDetails{ID: team.ID, Name: team.Name, Categories: categories}
	publish(s.notifier, live.TeamsRoom, live.TeamUpdated, details)
	return details, nil
}

// UpdateTeam replaces the team's name and its whole category link set.
func (s *teamService) UpdateTeam(ctx context.Context, id string, input TeamInput) (*models.TeamDetails, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	categoryIDs := uniqueIDs(input.CategoryIDs)

	var categories []models.Category
	err := withTransaction(ctx, s.db, s.logger, "team_update", func(tx *sql.Tx) error {
		if err := s.teamRepo.LockByID(ctx, tx, id); err != nil {
			return err
		}
		if err := s.teamRepo.UpdateName(ctx, tx, id, name); err != nil {
			return err
		}

		removed, err := s.teamRepo.ClearCategories(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to clear categories: %w", err)
		}
		s.logger.Debug("team category links cleared", slog.String("team_id", id), slog.Int64("removed", removed))

		if err := s.linkCategories(ctx, tx, id, categoryIDs); err != nil {
			return err
		}

		categories, err = s.teamRepo.ListCategories(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, s.mapWriteError(err, "update", id)
	}

	details := &models.TeamDetails{ID: id, Name: name, Categories: categories}
	publish(s.notifier, live.TeamsRoom, live.TeamUpdated, details)
	return details, nil
}

func (s *teamService) linkCategories(ctx context.Context, tx *sql.Tx, teamID string, categoryIDs []string) error {
	for _, categoryID := range categoryIDs {
		exists, err := s.categoryRepo.Exists(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		if !exists {
			s.logger.Warn("skipping unknown category for team",
				slog.String("team_id", teamID),
				slog.String("category_id", categoryID))
			continue
		}

		inserted, err := s.teamRepo.AddCategory(ctx, tx, teamID, categoryID)
		if err != nil {
			return err
		}
		if !inserted {
			s.logger.Debug("team category link already present",
				slog.String("team_id", teamID),
				slog.String("category_id", categoryID))
		}
	}
	return nil
}

func (s *teamService) mapWriteError(err error, op, id string) error {
	switch {
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamNameConflict):
		return ErrTeamNameConflict
	case errors.Is(err, repositories.ErrTeamCategoryInvalid):
		return ErrCategoryRefInvalid
	case errors.Is(err, ErrUnavailable):
		return err
	default:
		return fmt.Errorf("failed to %s team %s: %w", op, id, err)
	}
}

func (s *teamService) DeleteTeam(ctx context.Context, id string) error {
	if err := s.teamRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}

	publish(s.notifier, live.TeamsRoom, live.TeamDeleted, map[string]string{"id": id})
	return nil
}

// ListTeams returns every team with its player count and categories.
func (s *teamService) ListTeams(ctx context.Context) ([]models.Team, error) {
	var (
		teams []models.Team
		links map[string][]models.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.GetAllWithPlayerCount(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		links, err = s.teamRepo.ListAllCategoryLinks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	if teams == nil {
		return []models.Team{}, nil
	}
	for i := range teams {
		if categories, ok := links[teams[i].ID]; ok {
			teams[i].Categories = categories
		} else {
			teams[i].Categories = []models.Category{}
		}
	}
	return teams, nil
}

func (s *teamService) ListTeamsByCategory(ctx context.Context, categoryID string) ([]models.TeamSummary, error) {
	exists, err := s.categoryRepo.Exists(ctx, nil, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to check category %s: %w", categoryID, err)
	}
	if !exists {
		return nil, ErrCategoryNotFound
	}

	teams, err := s.teamRepo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams of category %s: %w", categoryID, err)
	}
	return teams, nil
}
