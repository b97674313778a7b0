package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/roster-system/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound        = errors.New("team not found")
	ErrTeamNameConflict    = errors.New("team name conflict")
	ErrTeamCategoryInvalid = errors.New("team category reference invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Team, error)
	GetByName(ctx context.Context, name string) (*models.Team, error)
	LockByID(ctx context.Context, exec SQLExecutor, id string) error
	UpdateName(ctx context.Context, exec SQLExecutor, id string, name string) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, exec SQLExecutor, id string) (bool, error)

	GetAllWithPlayerCount(ctx context.Context) ([]models.Team, error)
	ListByCategory(ctx context.Context, categoryID string) ([]models.TeamSummary, error)

	AddCategory(ctx context.Context, exec SQLExecutor, teamID, categoryID string) (bool, error)
	ClearCategories(ctx context.Context, exec SQLExecutor, teamID string) (int64, error)
	ListCategories(ctx context.Context, exec SQLExecutor, teamID string) ([]models.Category, error)
	ListAllCategoryLinks(ctx context.Context) (map[string][]models.Category, error)
	ListAssignments(ctx context.Context, teamIDs []string) ([]models.DelegateAssignment, error)
}

type postgresTeamRepository struct {
	db DBProvider
}

func NewPostgresTeamRepository(db DBProvider) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return err
	}

	query := `INSERT INTO teams (id, name) VALUES ($1, $2)`
	if _, err := executor.ExecContext(ctx, query, team.ID, team.Name); err != nil {
		if isUniqueViolation(err, "teams_name_key") {
			return ErrTeamNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Team, error) {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return nil, err
	}

	var team models.Team
	err = executor.QueryRowContext(ctx, `SELECT id, name FROM teams WHERE id = $1`, id).Scan(&team.ID, &team.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *postgresTeamRepository) GetByName(ctx context.Context, name string) (*models.Team, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	var team models.Team
	err = conn.QueryRowContext(ctx, `SELECT id, name FROM teams WHERE name = $1`, name).Scan(&team.ID, &team.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

// LockByID verifies the team exists and holds its row lock until the
// surrounding transaction ends.
func (r *postgresTeamRepository) LockByID(ctx context.Context, exec SQLExecutor, id string) error {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return err
	}

	var lockedID string
	err = executor.QueryRowContext(ctx, `SELECT id FROM teams WHERE id = $1 FOR UPDATE`, id).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		return err
	}
	return nil
}

func (r *postgresTeamRepository) UpdateName(ctx context.Context, exec SQLExecutor, id string, name string) error {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return err
	}

	result, err := executor.ExecContext(ctx, `UPDATE teams SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		if isUniqueViolation(err, "teams_name_key") {
			return ErrTeamNameConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

// Delete removes the team; its team_categories rows go with it (ON DELETE CASCADE).
// Players keep their team_id.
func (r *postgresTeamRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	result, err := conn.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Exists(ctx context.Context, exec SQLExecutor, id string) (bool, error) {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := executor.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check team %s: %w", id, err)
	}
	return exists, nil
}

func (r *postgresTeamRepository) GetAllWithPlayerCount(ctx context.Context) ([]models.Team, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT t.id, t.name, COUNT(p.id) AS player_count
		FROM teams t
		LEFT JOIN players p ON p.team_id = t.id
		GROUP BY t.id, t.name
		ORDER BY t.name ASC`

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.PlayerCount); err != nil {
			return nil, err
		}
		t.Categories = []models.Category{}
		teams = append(teams, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) ListByCategory(ctx context.Context, categoryID string) ([]models.TeamSummary, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT t.id, t.name, COUNT(p.id) AS player_count
		FROM teams t
		INNER JOIN team_categories tc ON tc.team_id = t.id AND tc.category_id = $1
		LEFT JOIN players p ON p.team_id = t.id AND p.category_id = $1
		GROUP BY t.id, t.name
		ORDER BY t.name ASC`

	rows, err := conn.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.TeamSummary, 0)
	for rows.Next() {
		var t models.TeamSummary
		if err := rows.Scan(&t.ID, &t.Name, &t.PlayerCount); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

// AddCategory links the team to the category. It reports false when the pair
// already existed. ON CONFLICT keeps the surrounding transaction usable.
func (r *postgresTeamRepository) AddCategory(ctx context.Context, exec SQLExecutor, teamID, categoryID string) (bool, error) {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO team_categories (team_id, category_id)
		VALUES ($1, $2)
		ON CONFLICT (team_id, category_id) DO NOTHING`

	result, err := executor.ExecContext(ctx, query, teamID, categoryID)
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return false, ErrTeamCategoryInvalid
		}
		return false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *postgresTeamRepository) ClearCategories(ctx context.Context, exec SQLExecutor, teamID string) (int64, error) {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return 0, err
	}

	result, err := executor.ExecContext(ctx, `DELETE FROM team_categories WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresTeamRepository) ListCategories(ctx context.Context, exec SQLExecutor, teamID string) ([]models.Category, error) {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT c.id, c.name
		FROM team_categories tc
		INNER JOIN categories c ON c.id = tc.category_id
		WHERE tc.team_id = $1
		ORDER BY c.name ASC`

	rows, err := executor.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *postgresTeamRepository) ListAllCategoryLinks(ctx context.Context) (map[string][]models.Category, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT tc.team_id, c.id, c.name
		FROM team_categories tc
		INNER JOIN categories c ON c.id = tc.category_id
		ORDER BY tc.team_id, c.name ASC`

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[string][]models.Category)
	for rows.Next() {
		var teamID string
		var c models.Category
		if err := rows.Scan(&teamID, &c.ID, &c.Name); err != nil {
			return nil, err
		}
		links[teamID] = append(links[teamID], c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

// ListAssignments expands team ids into team/category pairs.
func (r *postgresTeamRepository) ListAssignments(ctx context.Context, teamIDs []string) ([]models.DelegateAssignment, error) {
	assignments := make([]models.DelegateAssignment, 0)
	if len(teamIDs) == 0 {
		return assignments, nil
	}

	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT t.id, t.name, c.id, c.name
		FROM teams t
		INNER JOIN team_categories tc ON tc.team_id = t.id
		INNER JOIN categories c ON c.id = tc.category_id
		WHERE t.id = ANY($1)
		ORDER BY t.name ASC, c.name ASC`

	rows, err := conn.QueryContext(ctx, query, pq.Array(teamIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a models.DelegateAssignment
		if err := rows.Scan(&a.TeamID, &a.TeamName, &a.Category.ID, &a.Category.Name); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}
