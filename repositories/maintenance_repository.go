package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/roster-system/models"
)

var ErrLegacyTableMissing = errors.New("legacy user_categories table does not exist")

// LegacyAssignment is a distinct (team_name, category_id) row of user_categories.
type LegacyAssignment struct {
	TeamName   string
	CategoryID string
}

// MaintenanceRepository holds the one-shot data operations used by rosterctl:
// idempotent seeding and the user_categories migration.
type MaintenanceRepository interface {
	LegacyAssignments(ctx context.Context, exec SQLExecutor) ([]LegacyAssignment, error)
	EnsureCategory(ctx context.Context, exec SQLExecutor, category *models.Category) (bool, error)
	EnsureTeam(ctx context.Context, exec SQLExecutor, team *models.Team) (bool, error)
	EnsureUser(ctx context.Context, exec SQLExecutor, user *models.User) (bool, error)
	EnsurePlayer(ctx context.Context, exec SQLExecutor, player *models.Player) (bool, error)
}

type postgresMaintenanceRepository struct {
	db DBProvider
}

func NewPostgresMaintenanceRepository(db DBProvider) MaintenanceRepository {
	return &postgresMaintenanceRepository{db: db}
}

func (r *postgresMaintenanceRepository) LegacyAssignments(ctx context.Context, exec SQLExecutor) ([]LegacyAssignment, error) {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT DISTINCT team_name, category_id
		FROM user_categories
		WHERE team_name IS NOT NULL AND team_name <> '' AND category_id IS NOT NULL
		ORDER BY team_name, category_id`

	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, ErrLegacyTableMissing
		}
		return nil, err
	}
	defer rows.Close()

	var out []LegacyAssignment
	for rows.Next() {
		var a LegacyAssignment
		if err := rows.Scan(&a.TeamName, &a.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresMaintenanceRepository) EnsureCategory(ctx context.Context, exec SQLExecutor, category *models.Category) (bool, error) {
	return r.insertIfAbsent(ctx, exec,
		`INSERT INTO categories (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		category.ID, category.Name)
}

func (r *postgresMaintenanceRepository) EnsureTeam(ctx context.Context, exec SQLExecutor, team *models.Team) (bool, error) {
	return r.insertIfAbsent(ctx, exec,
		`INSERT INTO teams (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		team.ID, team.Name)
}

func (r *postgresMaintenanceRepository) EnsureUser(ctx context.Context, exec SQLExecutor, user *models.User) (bool, error) {
	assigned, err := EncodeAssignedTeams(user.AssignedTeams)
	if err != nil {
		return false, err
	}
	return r.insertIfAbsent(ctx, exec,
		`INSERT INTO users (id, username, password, role, assigned_teams) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
		user.ID, user.Username, user.PasswordHash, user.Role, assigned)
}

func (r *postgresMaintenanceRepository) EnsurePlayer(ctx context.Context, exec SQLExecutor, player *models.Player) (bool, error) {
	return r.insertIfAbsent(ctx, exec, `
		INSERT INTO players (id, category_id, team_id, first_name, last_name, birth_date, photo_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING`,
		player.ID, player.CategoryID, nullString(player.TeamID), player.FirstName, player.LastName,
		nullString(player.BirthDate), nullString(player.PhotoURL), player.Status)
}

func (r *postgresMaintenanceRepository) insertIfAbsent(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (bool, error) {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return false, err
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n > 0, nil
}
