package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/roster-system/metrics"
	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/repositories"
	"github.com/Dosada05/roster-system/utils"
)

type MaintenanceService interface {
	Seed(ctx context.Context) (*SeedReport, error)
	MigrateLegacy(ctx context.Context) (*MigrationReport, error)
	ReportDangling(ctx context.Context) ([]models.DanglingTeamRef, error)
	RepairTeamRefs(ctx context.Context) (int64, error)
}

type SeedReport struct {
	Categories int `json:"categories"`
	Teams      int `json:"teams"`
	Links      int `json:"links"`
	Users      int `json:"users"`
	Players    int `json:"players"`
}

type MigrationReport struct {
	LegacyTableMissing bool `json:"legacyTableMissing"`
	Rows               int  `json:"rows"`
	TeamsCreated       int  `json:"teamsCreated"`
	LinksCreated       int  `json:"linksCreated"`
	SkippedCategories  int  `json:"skippedCategories"`
}

type maintenanceService struct {
	db              repositories.DBProvider
	maintenanceRepo repositories.MaintenanceRepository
	teamRepo        repositories.TeamRepository
	categoryRepo    repositories.CategoryRepository
	playerRepo      repositories.PlayerRepository
	logger          *slog.Logger
}

func NewMaintenanceService(
	db repositories.DBProvider,
	maintenanceRepo repositories.MaintenanceRepository,
	teamRepo repositories.TeamRepository,
	categoryRepo repositories.CategoryRepository,
	playerRepo repositories.PlayerRepository,
	logger *slog.Logger,
) MaintenanceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &maintenanceService{
		db:              db,
		maintenanceRepo: maintenanceRepo,
		teamRepo:        teamRepo,
		categoryRepo:    categoryRepo,
		playerRepo:      playerRepo,
		logger:          logger,
	}
}

// Демо-данные: категории, делегат с командой, организатор и три игрока.
var (
	seedCategories = []models.Category{
		{ID: "cat_1_1", Name: "Sub-10"},
		{ID: "cat_1_2", Name: "Sub-12"},
		{ID: "cat_1_3", Name: "Sub-14"},
		{ID: "cat_1_4", Name: "Sub-16"},
	}

	seedTeam = models.Team{ID: "team_los_halcones", Name: "Los Halcones"}

	seedTeamCategories = []string{"cat_1_1", "cat_1_2"}

	seedUsers = []struct {
		user     models.User
		password string
	}{
		{
			user:     models.User{ID: "user_abc_456", Username: "delegate@example.com", Role: models.RoleDelegate, AssignedTeams: []string{"team_los_halcones"}},
			password: "password123",
		},
		{
			user:     models.User{ID: "user_xyz_789", Username: "organizer@example.com", Role: models.RoleOrganizer, AssignedTeams: []string{}},
			password: "admin123",
		},
	}

	seedPlayers = []models.Player{
		{ID: "player_xyz_123", CategoryID: "cat_1_1", FirstName: "Leo", LastName: "Messi", BirthDate: strPtr("24/06/1987"), PhotoURL: strPtr("https://example.com/photo.jpg"), Status: models.StatusApproved},
		{ID: "player_abc_456", CategoryID: "cat_1_1", FirstName: "Cristiano", LastName: "Ronaldo", BirthDate: strPtr("05/02/1985"), Status: models.StatusPending},
		{ID: "player_def_789", CategoryID: "cat_1_2", FirstName: "Neymar", LastName: "Jr", BirthDate: strPtr("05/02/1992"), Status: models.StatusApproved},
	}
)

// Seed inserts the demo rows that are missing. Existing rows are left as they are.
func (s *maintenanceService) Seed(ctx context.Context) (*SeedReport, error) {
	report := &SeedReport{}

	err := withTransaction(ctx, s.db, s.logger, "seed", func(tx *sql.Tx) error {
		for i := range seedCategories {
			inserted, err := s.maintenanceRepo.EnsureCategory(ctx, tx, &seedCategories[i])
			if err != nil {
				return fmt.Errorf("category %s: %w", seedCategories[i].ID, err)
			}
			report.Categories += countIf(inserted)
		}

		team := seedTeam
		inserted, err := s.maintenanceRepo.EnsureTeam(ctx, tx, &team)
		if err != nil {
			return fmt.Errorf("team %s: %w", team.ID, err)
		}
		report.Teams += countIf(inserted)

		for _, categoryID := range seedTeamCategories {
			added, err := s.teamRepo.AddCategory(ctx, tx, team.ID, categoryID)
			if err != nil {
				return fmt.Errorf("team link %s/%s: %w", team.ID, categoryID, err)
			}
			report.Links += countIf(added)
		}

		for _, seed := range seedUsers {
			user := seed.user
			hashed, err := utils.HashPassword(seed.password)
			if err != nil {
				return fmt.Errorf("ошибка хеширования пароля: %w", err)
			}
			user.PasswordHash = hashed

			inserted, err := s.maintenanceRepo.EnsureUser(ctx, tx, &user)
			if err != nil {
				return fmt.Errorf("user %s: %w", user.ID, err)
			}
			report.Users += countIf(inserted)
		}

		for i := range seedPlayers {
			inserted, err := s.maintenanceRepo.EnsurePlayer(ctx, tx, &seedPlayers[i])
			if err != nil {
				return fmt.Errorf("player %s: %w", seedPlayers[i].ID, err)
			}
			report.Players += countIf(inserted)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	s.logger.Info("seed completed",
		slog.Int("categories", report.Categories),
		slog.Int("teams", report.Teams),
		slog.Int("links", report.Links),
		slog.Int("users", report.Users),
		slog.Int("players", report.Players))
	return report, nil
}

// MigrateLegacy copies user_categories (team_name, category_id) pairs into
// teams and team_categories. Running it twice creates nothing new.
func (s *maintenanceService) MigrateLegacy(ctx context.Context) (*MigrationReport, error) {
	report := &MigrationReport{}

	err := withTransaction(ctx, s.db, s.logger, "migrate_legacy", func(tx *sql.Tx) error {
		rows, err := s.maintenanceRepo.LegacyAssignments(ctx, tx)
		if err != nil {
			return err
		}
		report.Rows = len(rows)

		teamIDs := make(map[string]string)
		for _, row := range rows {
			teamID, ok := teamIDs[row.TeamName]
			if !ok {
				teamID, err = s.resolveLegacyTeam(ctx, tx, row.TeamName, report)
				if err != nil {
					return err
				}
				teamIDs[row.TeamName] = teamID
			}
			if teamID == "" {
				continue
			}

			exists, err := s.categoryRepo.Exists(ctx, tx, row.CategoryID)
			if err != nil {
				return err
			}
			if !exists {
				s.logger.Warn("legacy assignment references unknown category",
					slog.String("team_name", row.TeamName),
					slog.String("category_id", row.CategoryID))
				report.SkippedCategories++
				continue
			}

			added, err := s.teamRepo.AddCategory(ctx, tx, teamID, row.CategoryID)
			if err != nil {
				return fmt.Errorf("link %s/%s: %w", teamID, row.CategoryID, err)
			}
			report.LinksCreated += countIf(added)
		}
		return nil
	})
	if errors.Is(err, repositories.ErrLegacyTableMissing) {
		s.logger.Info("legacy user_categories table not found, nothing to migrate")
		return &MigrationReport{LegacyTableMissing: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to migrate legacy assignments: %w", err)
	}

	s.logger.Info("legacy migration completed",
		slog.Int("rows", report.Rows),
		slog.Int("teams_created", report.TeamsCreated),
		slog.Int("links_created", report.LinksCreated),
		slog.Int("skipped_categories", report.SkippedCategories))
	return report, nil
}

// resolveLegacyTeam returns the id of the team called name, creating it with
// its legacy id when absent. An empty id means the name cannot be migrated.
func (s *maintenanceService) resolveLegacyTeam(ctx context.Context, tx *sql.Tx, name string, report *MigrationReport) (string, error) {
	existing, err := s.teamRepo.GetByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, repositories.ErrTeamNotFound) {
		return "", fmt.Errorf("team %q: %w", name, err)
	}

	teamID := utils.LegacyTeamID(name)
	if teamID == "" {
		s.logger.Warn("legacy team name has no usable id", slog.String("team_name", name))
		return "", nil
	}

	inserted, err := s.maintenanceRepo.EnsureTeam(ctx, tx, &models.Team{ID: teamID, Name: name})
	if err != nil {
		return "", fmt.Errorf("team %q: %w", name, err)
	}
	report.TeamsCreated += countIf(inserted)
	return teamID, nil
}

func (s *maintenanceService) ReportDangling(ctx context.Context) ([]models.DanglingTeamRef, error) {
	refs, err := s.playerRepo.ListDanglingTeamRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dangling team references: %w", err)
	}
	metrics.SetDanglingTeamRefs(len(refs))
	return refs, nil
}

func (s *maintenanceService) RepairTeamRefs(ctx context.Context) (int64, error) {
	n, err := s.playerRepo.RepairTeamRefsByName(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to repair team references: %w", err)
	}
	s.logger.Info("player team references repaired", slog.Int64("players", n))
	return n, nil
}

func countIf(ok bool) int {
	if ok {
		return 1
	}
	return 0
}

func strPtr(s string) *string {
	return &s
}
