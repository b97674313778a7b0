package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/roster-system/live"
	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/repositories"
)

var playerRowColumns = []string{
	"id", "category_id", "team_id", "first_name", "last_name", "birth_date",
	"photo_url", "document_photo_url", "status", "created_at", "team_name", "category_name",
}

func newPlayerService(provider repositories.DBProvider, notifier Notifier) PlayerService {
	return NewPlayerService(
		repositories.NewPostgresPlayerRepository(provider),
		repositories.NewPostgresCategoryRepository(provider),
		repositories.NewPostgresTeamRepository(provider),
		notifier,
		discardLogger(),
	)
}

func expectPlayerRow(mock sqlmock.Sqlmock, id, photoURL string) {
	mock.ExpectQuery(`SELECT p.id, p.category_id`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(playerRowColumns).AddRow(
			id, "cat_1_1", "team_los_halcones", "Juan", "Perez", "15/03/2012",
			photoURL, nil, "PENDING", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "Los Halcones", "Primera",
		))
}

func TestPlayerService_UpdatePlayer_OnlyTouchesSentFields(t *testing.T) {
	provider, mock := newMock(t)
	notifier := &recordingNotifier{}
	svc := newPlayerService(provider, notifier)

	expectPlayerRow(mock, "player_1", "old")
	mock.ExpectExec(`UPDATE players SET photo_url = $1 WHERE id = $2`).
		WithArgs("x", "player_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectPlayerRow(mock, "player_1", "x")

	player, err := svc.UpdatePlayer(context.Background(), "player_1", map[string]json.RawMessage{
		"photoUrl": json.RawMessage(`"x"`),
	})
	require.NoError(t, err)

	require.NotNil(t, player.PhotoURL)
	assert.Equal(t, "x", *player.PhotoURL)
	assert.Equal(t, "Juan", player.FirstName)
	assert.Equal(t, "Los Halcones", player.TeamName)
	assert.Equal(t, []string{live.PlayerUpdated}, notifier.types())
}

func TestPlayerService_UpdatePlayer_UnknownTeam(t *testing.T) {
	provider, mock := newMock(t)
	svc := newPlayerService(provider, nil)

	expectPlayerRow(mock, "player_1", "")
	mock.ExpectQuery(`SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`).
		WithArgs("team_missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.UpdatePlayer(context.Background(), "player_1", map[string]json.RawMessage{
		"teamId": json.RawMessage(`"team_missing"`),
	})
	assert.ErrorIs(t, err, ErrTeamRefInvalid)
}

func expectNoPlayer(mock sqlmock.Sqlmock, id string) {
	mock.ExpectQuery(`SELECT p.id, p.category_id`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(playerRowColumns))
}

func TestPlayerService_UpdatePlayer_NotFound(t *testing.T) {
	provider, mock := newMock(t)
	svc := newPlayerService(provider, nil)

	expectNoPlayer(mock, "player_missing")

	_, err := svc.UpdatePlayer(context.Background(), "player_missing", map[string]json.RawMessage{
		"firstName": json.RawMessage(`"Ana"`),
	})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerService_UpdatePlayer_MissingPlayerWinsOverBadReference(t *testing.T) {
	provider, mock := newMock(t)
	svc := newPlayerService(provider, nil)

	// Ни проверки команды, ни UPDATE не ожидается.
	expectNoPlayer(mock, "player_missing")

	_, err := svc.UpdatePlayer(context.Background(), "player_missing", map[string]json.RawMessage{
		"teamId": json.RawMessage(`"team_missing"`),
	})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.NotErrorIs(t, err, ErrTeamRefInvalid)
}

func TestPlayerService_UpdatePlayer_DeletedDuringUpdate(t *testing.T) {
	provider, mock := newMock(t)
	svc := newPlayerService(provider, nil)

	expectPlayerRow(mock, "player_1", "")
	mock.ExpectExec(`UPDATE players SET first_name = $1 WHERE id = $2`).
		WithArgs("Ana", "player_1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.UpdatePlayer(context.Background(), "player_1", map[string]json.RawMessage{
		"firstName": json.RawMessage(`"Ana"`),
	})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerService_UpdatePlayerStatus(t *testing.T) {
	t.Run("invalid status leaves the row alone", func(t *testing.T) {
		provider, _ := newMock(t)
		svc := newPlayerService(provider, nil)

		_, err := svc.UpdatePlayerStatus(context.Background(), "player_1", "INVALID")
		assert.ErrorIs(t, err, ErrInvalidPlayerStatus)
	})

	t.Run("approved", func(t *testing.T) {
		provider, mock := newMock(t)
		notifier := &recordingNotifier{}
		svc := newPlayerService(provider, notifier)

		mock.ExpectExec(`UPDATE players SET status = $1 WHERE id = $2`).
			WithArgs(models.StatusApproved, "player_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectPlayerRow(mock, "player_1", "")

		result, err := svc.UpdatePlayerStatus(context.Background(), "player_1", "APPROVED")
		require.NoError(t, err)
		assert.Equal(t, &PlayerStatusResult{ID: "player_1", Status: models.StatusApproved}, result)
		assert.Equal(t, []string{live.PlayerStatusChanged}, notifier.types())
	})

	t.Run("missing player", func(t *testing.T) {
		provider, mock := newMock(t)
		svc := newPlayerService(provider, nil)

		mock.ExpectExec(`UPDATE players SET status = $1 WHERE id = $2`).
			WithArgs(models.StatusRejected, "player_missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := svc.UpdatePlayerStatus(context.Background(), "player_missing", "REJECTED")
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})
}

func TestPlayerService_CreatePlayer_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input CreatePlayerInput
		want  error
	}{
		{"missing names", CreatePlayerInput{CategoryID: "cat_1_1"}, ErrPlayerFieldsRequired},
		{"blank category", CreatePlayerInput{CategoryID: "  ", FirstName: "Ana", LastName: "Gomez"}, ErrPlayerFieldsRequired},
		{"bad birth date", CreatePlayerInput{CategoryID: "cat_1_1", FirstName: "Ana", LastName: "Gomez", BirthDate: strPtr("2012/31/12")}, ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, _ := newMock(t)
			svc := newPlayerService(provider, nil)

			_, err := svc.CreatePlayer(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
