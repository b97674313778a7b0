package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/roster-system/db"
	"github.com/Dosada05/roster-system/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	conn *sql.DB
}

func (p staticProvider) Get(ctx context.Context) (*sql.DB, error) {
	return p.conn, nil
}

type downProvider struct{}

func (downProvider) Get(ctx context.Context) (*sql.DB, error) {
	return nil, db.ErrUnavailable
}

// prefixMatcher compares the whitespace-normalized prefix of a query.
func prefixMatcher() sqlmock.QueryMatcher {
	return sqlmock.QueryMatcherFunc(func(expected, actual string) error {
		normalize := func(s string) string { return strings.Join(strings.Fields(s), " ") }
		if strings.HasPrefix(normalize(actual), normalize(expected)) {
			return nil
		}
		return errors.New("query mismatch: " + normalize(actual))
	})
}

func newMock(t *testing.T) (DBProvider, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(prefixMatcher()))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return staticProvider{conn: conn}, mock
}

func TestCategoryRepository_Create(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{name: "success"},
		{
			name:    "duplicate name",
			dbErr:   &pq.Error{Code: "23505", Constraint: "categories_name_key"},
			wantErr: ErrCategoryNameConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, mock := newMock(t)
			exp := mock.ExpectExec(`INSERT INTO categories (id, name)`).WithArgs("cat_1", "Sub-10")
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			repo := NewPostgresCategoryRepository(provider)
			err := repo.Create(context.Background(), &models.Category{ID: "cat_1", Name: "Sub-10"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCategoryRepository_Delete(t *testing.T) {
	t.Run("in use", func(t *testing.T) {
		provider, mock := newMock(t)
		mock.ExpectExec(`DELETE FROM categories`).WithArgs("cat_1").
			WillReturnError(&pq.Error{Code: "23503", Constraint: "players_category_id_fkey"})

		err := NewPostgresCategoryRepository(provider).Delete(context.Background(), "cat_1")
		assert.ErrorIs(t, err, ErrCategoryInUse)
	})

	t.Run("not found", func(t *testing.T) {
		provider, mock := newMock(t)
		mock.ExpectExec(`DELETE FROM categories`).WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewPostgresCategoryRepository(provider).Delete(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrCategoryNotFound)
	})
}

func TestCategoryRepository_PoolUnavailable(t *testing.T) {
	repo := NewPostgresCategoryRepository(downProvider{})
	_, err := repo.GetAll(context.Background())
	assert.ErrorIs(t, err, db.ErrUnavailable)
}

func TestTeamRepository_AddCategory(t *testing.T) {
	provider, mock := newMock(t)
	repo := NewPostgresTeamRepository(provider)

	mock.ExpectExec(`INSERT INTO team_categories (team_id, category_id)`).
		WithArgs("team_1", "cat_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO team_categories (team_id, category_id)`).
		WithArgs("team_1", "cat_1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.AddCategory(context.Background(), nil, "team_1", "cat_1")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.AddCategory(context.Background(), nil, "team_1", "cat_1")
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestTeamRepository_UpdateNameConflict(t *testing.T) {
	provider, mock := newMock(t)
	mock.ExpectExec(`UPDATE teams SET name = $1 WHERE id = $2`).
		WithArgs("Los Halcones", "team_2").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "teams_name_key"})

	err := NewPostgresTeamRepository(provider).UpdateName(context.Background(), nil, "team_2", "Los Halcones")
	assert.ErrorIs(t, err, ErrTeamNameConflict)
}

func TestTeamRepository_ListAssignments(t *testing.T) {
	provider, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"id", "name", "id", "name"}).
		AddRow("team_los_halcones", "Los Halcones", "cat_1_1", "Sub-10").
		AddRow("team_los_halcones", "Los Halcones", "cat_1_2", "Sub-12")
	mock.ExpectQuery(`SELECT t.id, t.name, c.id, c.name FROM teams t`).
		WithArgs(pq.Array([]string{"team_los_halcones"})).
		WillReturnRows(rows)

	got, err := NewPostgresTeamRepository(provider).ListAssignments(context.Background(), []string{"team_los_halcones"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Los Halcones", got[0].TeamName)
	assert.Equal(t, models.Category{ID: "cat_1_2", Name: "Sub-12"}, got[1].Category)
}

func TestTeamRepository_ListAssignmentsEmpty(t *testing.T) {
	got, err := NewPostgresTeamRepository(downProvider{}).ListAssignments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildUpdate(t *testing.T) {
	query, args := buildUpdate("players", "id", "player_1", []Assignment{
		{Column: "photo_url", Value: "x"},
		{Column: "team_id", Value: nil},
	})

	assert.Equal(t, "UPDATE players SET photo_url = $1, team_id = $2 WHERE id = $3", query)
	assert.Equal(t, []interface{}{"x", nil, "player_1"}, args)
}

func TestPlayerRepository_GetByIDResolvesTeamName(t *testing.T) {
	columns := []string{"id", "category_id", "team_id", "first_name", "last_name", "birth_date",
		"photo_url", "document_photo_url", "status", "created_at", "name", "name"}

	tests := []struct {
		name     string
		teamID   interface{}
		teamName interface{}
		want     string
	}{
		{name: "joined", teamID: "team_1", teamName: "Los Halcones", want: "Los Halcones"},
		{name: "raw fallback", teamID: "Los Halcones", teamName: nil, want: "Los Halcones"},
		{name: "no team", teamID: nil, teamName: nil, want: models.NoTeamLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, mock := newMock(t)
			rows := sqlmock.NewRows(columns).AddRow(
				"player_1", "cat_1", tt.teamID, "Leo", "Messi", "24/06/1987",
				nil, nil, "APPROVED", time.Now(), tt.teamName, "Sub-10",
			)
			mock.ExpectQuery(`SELECT p.id`).WithArgs("player_1").WillReturnRows(rows)

			player, err := NewPostgresPlayerRepository(provider).GetByID(context.Background(), "player_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, player.TeamName)
			assert.Equal(t, "Sub-10", player.CategoryName)
			assert.Equal(t, models.StatusApproved, player.Status)
			assert.Nil(t, player.PhotoURL)
		})
	}
}

func TestPlayerRepository_UpdateStatusNotFound(t *testing.T) {
	provider, mock := newMock(t)
	mock.ExpectExec(`UPDATE players SET status`).
		WithArgs(models.StatusApproved, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewPostgresPlayerRepository(provider).UpdateStatus(context.Background(), "missing", models.StatusApproved)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestUserRepository_GetAllDecodesAssignedTeams(t *testing.T) {
	provider, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"id", "username", "role", "assigned_teams"}).
		AddRow("user_1", "delegate@example.com", "DELEGATE", `["team_a","team_b"]`).
		AddRow("user_2", "organizer@example.com", "ORGANIZER", nil)
	mock.ExpectQuery(`SELECT id, username, role, assigned_teams FROM users`).WillReturnRows(rows)

	users, err := NewPostgresUserRepository(provider).GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []string{"team_a", "team_b"}, users[0].AssignedTeams)
	assert.Equal(t, models.RoleDelegate, users[0].Role)
	assert.Equal(t, []string{}, users[1].AssignedTeams)
}

func TestUserRepository_CreateConflict(t *testing.T) {
	provider, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("user_1", "d@x.com", "hash", models.RoleDelegate, "[]").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	err := NewPostgresUserRepository(provider).Create(context.Background(), &models.User{
		ID: "user_1", Username: "d@x.com", PasswordHash: "hash", Role: models.RoleDelegate,
	})
	assert.ErrorIs(t, err, ErrUserUsernameConflict)
}

func TestMaintenanceRepository_LegacyTableMissing(t *testing.T) {
	provider, mock := newMock(t)
	mock.ExpectQuery(`SELECT DISTINCT team_name, category_id`).
		WillReturnError(&pq.Error{Code: "42P01"})

	_, err := NewPostgresMaintenanceRepository(provider).LegacyAssignments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrLegacyTableMissing)
}
