package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/roster-system/models"
)

var (
	ErrPlayerNotFound        = errors.New("player not found")
	ErrPlayerCategoryInvalid = errors.New("player category conflict or invalid")
	ErrPlayerInvalidValue    = errors.New("player value rejected by constraint")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id string) (*models.Player, error)
	ListByCategory(ctx context.Context, categoryID string) ([]models.Player, error)
	Update(ctx context.Context, id string, assignments []Assignment) error
	UpdateStatus(ctx context.Context, id string, status models.PlayerStatus) error

	ListDanglingTeamRefs(ctx context.Context) ([]models.DanglingTeamRef, error)
	RepairTeamRefsByName(ctx context.Context) (int64, error)
}

type postgresPlayerRepository struct {
	db DBProvider
}

func NewPostgresPlayerRepository(db DBProvider) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `p.id, p.category_id, p.team_id, p.first_name, p.last_name, p.birth_date,
	p.photo_url, p.document_photo_url, p.status, p.created_at`

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO players
			(id, category_id, team_id, first_name, last_name, birth_date, photo_url, document_photo_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err = conn.QueryRowContext(ctx, query,
		player.ID,
		player.CategoryID,
		nullString(player.TeamID),
		player.FirstName,
		player.LastName,
		nullString(player.BirthDate),
		nullString(player.PhotoURL),
		nullString(player.DocumentPhotoURL),
		player.Status,
	).Scan(&player.CreatedAt)

	if err != nil {
		switch {
		case isForeignKeyViolation(err, "players_category_id_fkey"):
			return ErrPlayerCategoryInvalid
		case isCheckViolation(err):
			return ErrPlayerInvalidValue
		}
		return err
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + playerColumns + `, t.name, c.name
		FROM players p
		LEFT JOIN teams t ON p.team_id = t.id
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = $1`

	var (
		player       models.Player
		teamName     sql.NullString
		categoryName sql.NullString
	)
	err = scanPlayer(conn.QueryRowContext(ctx, query, id), &player, &teamName, &categoryName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	player.TeamName = models.ResolveTeamName(stringPtr(teamName), player.TeamID)
	player.CategoryName = categoryName.String
	return &player, nil
}

// ListByCategory orders players by resolved team name, then last and first name.
func (r *postgresPlayerRepository) ListByCategory(ctx context.Context, categoryID string) ([]models.Player, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + playerColumns + `, t.name, c.name
		FROM players p
		LEFT JOIN teams t ON p.team_id = t.id
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.category_id = $1
		ORDER BY COALESCE(t.name, NULLIF(p.team_id, ''), $2), p.last_name, p.first_name`

	rows, err := conn.QueryContext(ctx, query, categoryID, models.NoTeamLabel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		var (
			player       models.Player
			teamName     sql.NullString
			categoryName sql.NullString
		)
		if err := scanPlayer(rows, &player, &teamName, &categoryName); err != nil {
			return nil, err
		}
		player.TeamName = models.ResolveTeamName(stringPtr(teamName), player.TeamID)
		player.CategoryName = categoryName.String
		players = append(players, player)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresPlayerRepository) Update(ctx context.Context, id string, assignments []Assignment) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	query, args := buildUpdate("players", "id", id, assignments)
	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case isForeignKeyViolation(err, "players_category_id_fkey"):
			return ErrPlayerCategoryInvalid
		case isCheckViolation(err):
			return ErrPlayerInvalidValue
		}
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdateStatus(ctx context.Context, id string, status models.PlayerStatus) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	result, err := conn.ExecContext(ctx, `UPDATE players SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		if isCheckViolation(err) {
			return ErrPlayerInvalidValue
		}
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ListDanglingTeamRefs(ctx context.Context) ([]models.DanglingTeamRef, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT p.id, p.first_name, p.last_name, p.category_id, p.team_id
		FROM players p
		WHERE p.team_id IS NOT NULL
		  AND p.team_id <> ''
		  AND NOT EXISTS (SELECT 1 FROM teams t WHERE t.id = p.team_id)
		ORDER BY p.team_id, p.last_name, p.first_name`

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]models.DanglingTeamRef, 0)
	for rows.Next() {
		var ref models.DanglingTeamRef
		if err := rows.Scan(&ref.PlayerID, &ref.FirstName, &ref.LastName, &ref.CategoryID, &ref.TeamID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

// RepairTeamRefsByName rewrites team_id values that hold a team name to that
// team's id. It returns the number of players changed.
func (r *postgresPlayerRepository) RepairTeamRefsByName(ctx context.Context) (int64, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE players p
		SET team_id = t.id
		FROM teams t
		WHERE p.team_id = t.name
		  AND NOT EXISTS (SELECT 1 FROM teams t2 WHERE t2.id = p.team_id)`

	result, err := conn.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlayer(row rowScanner, player *models.Player, teamName, categoryName *sql.NullString) error {
	var teamID, birthDate, photoURL, documentPhotoURL sql.NullString

	err := row.Scan(
		&player.ID,
		&player.CategoryID,
		&teamID,
		&player.FirstName,
		&player.LastName,
		&birthDate,
		&photoURL,
		&documentPhotoURL,
		&player.Status,
		&player.CreatedAt,
		teamName,
		categoryName,
	)
	if err != nil {
		return err
	}

	player.TeamID = stringPtr(teamID)
	player.BirthDate = stringPtr(birthDate)
	player.PhotoURL = stringPtr(photoURL)
	player.DocumentPhotoURL = stringPtr(documentPhotoURL)
	return nil
}
