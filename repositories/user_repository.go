package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/roster-system/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserUsernameConflict = errors.New("user username conflict")
	ErrUserInvalidValue     = errors.New("user value rejected by constraint")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, assignments []Assignment) error
	Delete(ctx context.Context, id string) error
}

type postgresUserRepository struct {
	db DBProvider
}

func NewPostgresUserRepository(db DBProvider) UserRepository {
	return &postgresUserRepository{db: db}
}

// EncodeAssignedTeams serializes the ordered team id list into the
// assigned_teams text column.
func EncodeAssignedTeams(teams []string) (string, error) {
	if teams == nil {
		teams = []string{}
	}
	b, err := json.Marshal(teams)
	if err != nil {
		return "", fmt.Errorf("failed to encode assigned teams: %w", err)
	}
	return string(b), nil
}

func decodeAssignedTeams(raw sql.NullString) ([]string, error) {
	teams := []string{}
	if !raw.Valid || raw.String == "" {
		return teams, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &teams); err != nil {
		return nil, fmt.Errorf("failed to decode assigned teams %q: %w", raw.String, err)
	}
	return teams, nil
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	assigned, err := EncodeAssignedTeams(user.AssignedTeams)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, username, password, role, assigned_teams)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = conn.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, user.Role, assigned)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_username_key"):
			return ErrUserUsernameConflict
		case isCheckViolation(err):
			return ErrUserInvalidValue
		}
		return err
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, username, password, role, assigned_teams FROM users WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

func (r *postgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, password, role, assigned_teams FROM users WHERE username = $1`
	return r.scanUser(ctx, query, username)
}

func (r *postgresUserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `SELECT id, username, role, assigned_teams FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		var assigned sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &assigned); err != nil {
			return nil, err
		}
		if u.AssignedTeams, err = decodeAssignedTeams(assigned); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *postgresUserRepository) Update(ctx context.Context, id string, assignments []Assignment) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	query, args := buildUpdate("users", "id", id, assignments)
	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_username_key"):
			return ErrUserUsernameConflict
		case isCheckViolation(err):
			return ErrUserInvalidValue
		}
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	result, err := conn.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) scanUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	var user models.User
	var assigned sql.NullString
	err = conn.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &assigned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if user.AssignedTeams, err = decodeAssignedTeams(assigned); err != nil {
		return nil, err
	}
	return &user, nil
}
