package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/repositories"
)

// memoryUserRepo is an in-memory repositories.UserRepository.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUserRepo(users ...models.User) *memoryUserRepo {
	r := &memoryUserRepo{users: make(map[string]models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return repositories.ErrUserUsernameConflict
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *memoryUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *memoryUserRepo) GetAll(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		u.PasswordHash = ""
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, id string, assignments []repositories.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	for _, a := range assignments {
		switch a.Column {
		case "username":
			for otherID, other := range r.users {
				if otherID != id && other.Username == a.Value {
					return repositories.ErrUserUsernameConflict
				}
			}
			u.Username = a.Value.(string)
		case "password":
			u.PasswordHash = a.Value.(string)
		case "role":
			u.Role = models.UserRole(a.Value.(string))
		case "assigned_teams":
			var teams []string
			if err := json.Unmarshal([]byte(a.Value.(string)), &teams); err != nil {
				return err
			}
			u.AssignedTeams = teams
		}
	}
	r.users[id] = u
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func TestUserScenario_CreateUpdateLogin(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUserRepo()
	users := NewUserService(repo)
	auth := NewAuthService(repo, discardLogger())

	created, err := users.CreateUser(ctx, CreateUserInput{
		Username:      "d@x",
		Password:      "p1",
		Role:          "DELEGATE",
		AssignedTeams: []string{"team_a"},
	})
	require.NoError(t, err)
	assert.Empty(t, created.PasswordHash)
	assert.Equal(t, models.RoleDelegate, created.Role)

	raw, err := json.Marshal(created)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "p1", stored.PasswordHash)

	updated, err := users.UpdateUser(ctx, created.ID, patchBody(t, `{"password":"p2"}`))
	require.NoError(t, err)
	assert.Equal(t, "d@x", updated.Username)
	assert.Equal(t, []string{"team_a"}, updated.AssignedTeams)
	assert.Empty(t, updated.PasswordHash)

	_, err = auth.Login(ctx, models.Credentials{Username: "d@x", Password: "p1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := auth.Login(ctx, models.Credentials{Username: "d@x", Password: "p2"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestUserService_CreateUser_Validation(t *testing.T) {
	users := NewUserService(newMemoryUserRepo(models.User{ID: "user_1", Username: "taken"}))

	_, err := users.CreateUser(context.Background(), CreateUserInput{Username: "a", Password: "b"})
	assert.ErrorIs(t, err, ErrUserFieldsRequired)

	_, err = users.CreateUser(context.Background(), CreateUserInput{Username: "a", Password: "b", Role: "ADMIN"})
	assert.ErrorIs(t, err, ErrInvalidUserRole)

	_, err = users.CreateUser(context.Background(), CreateUserInput{Username: "taken", Password: "b", Role: "ORGANIZER"})
	assert.ErrorIs(t, err, ErrUsernameConflict)
}

func TestUserService_UpdateUser_Errors(t *testing.T) {
	users := NewUserService(newMemoryUserRepo(
		models.User{ID: "user_1", Username: "one"},
		models.User{ID: "user_2", Username: "two"},
	))

	_, err := users.UpdateUser(context.Background(), "user_1", patchBody(t, `{"id":"user_1"}`))
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	_, err = users.UpdateUser(context.Background(), "user_missing", patchBody(t, `{"role":"ORGANIZER"}`))
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = users.UpdateUser(context.Background(), "user_1", patchBody(t, `{"username":"two"}`))
	assert.ErrorIs(t, err, ErrUsernameConflict)
}

func TestAuthService_Login_UpgradesLegacyPassword(t *testing.T) {
	repo := newMemoryUserRepo(models.User{
		ID:           "user_xyz_789",
		Username:     "organizer@example.com",
		PasswordHash: "admin123",
		Role:         models.RoleOrganizer,
	})
	auth := NewAuthService(repo, discardLogger())

	user, err := auth.Login(context.Background(), models.Credentials{Username: "organizer@example.com", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganizer, user.Role)

	stored, err := repo.GetByID(context.Background(), "user_xyz_789")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", stored.PasswordHash)

	_, err = auth.Login(context.Background(), models.Credentials{Username: "organizer@example.com", Password: "admin123"})
	assert.NoError(t, err)
}

func TestAuthService_Login_Errors(t *testing.T) {
	auth := NewAuthService(newMemoryUserRepo(), discardLogger())

	_, err := auth.Login(context.Background(), models.Credentials{Username: "", Password: "x"})
	assert.ErrorIs(t, err, ErrCredentialsRequired)

	_, err = auth.Login(context.Background(), models.Credentials{Username: "ghost", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
