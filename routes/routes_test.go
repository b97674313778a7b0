package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/roster-system/db"
	"github.com/Dosada05/roster-system/handlers"
	"github.com/Dosada05/roster-system/middleware"
	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/services"
)

const testSecret = "test-secret"

type fakePool struct{ state db.State }

func (p fakePool) Status() db.Status {
	return db.Status{State: p.state, StateName: p.state.String()}
}

type fakeCategoryService struct {
	categories []models.Category
	err        error
}

func (s *fakeCategoryService) CreateCategory(_ context.Context, input services.CategoryInput) (*models.Category, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := models.Category{ID: "cat_new", Name: input.Name}
	s.categories = append(s.categories, c)
	return &c, nil
}

func (s *fakeCategoryService) GetAllCategories(context.Context) ([]models.Category, error) {
	return s.categories, s.err
}

func (s *fakeCategoryService) UpdateCategory(_ context.Context, id string, input services.CategoryInput) (*models.Category, error) {
	return &models.Category{ID: id, Name: input.Name}, s.err
}

func (s *fakeCategoryService) DeleteCategory(context.Context, string) error {
	return s.err
}

func (s *fakeCategoryService) GetDelegateAssignments(context.Context, string) ([]models.DelegateAssignment, error) {
	return nil, s.err
}

func newTestRouter(t *testing.T, authRequired bool, pool handlers.PoolStatus, cs services.CategoryService) http.Handler {
	t.Helper()
	router := chi.NewRouter()
	SetupRoutes(router, Options{
		JWTSecret:    testSecret,
		AuthRequired: authRequired,
	}, Handlers{
		Auth:     handlers.NewAuthHandler(nil, testSecret),
		Category: handlers.NewCategoryHandler(cs),
		System:   handlers.NewSystemHandler(pool, "test"),
	})
	return router
}

func tokenFor(t *testing.T, role models.UserRole) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, &models.User{ID: "user_1", Role: role}, time.Now())
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		state      db.State
		wantCode   int
		wantStatus string
	}{
		{"ready", db.StateReady, http.StatusOK, "OK"},
		{"not yet connected", db.StateUninitialized, http.StatusOK, "OK"},
		{"failed", db.StateFailed, http.StatusServiceUnavailable, "DEGRADED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, false, fakePool{state: tt.state}, &fakeCategoryService{})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body struct {
				Status   string `json:"status"`
				Database struct {
					State string `json:"state"`
				} `json:"database"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.state.String(), body.Database.State)
		})
	}
}

func TestCategoryWrites_AuthRequired(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"delegate", tokenFor(t, models.RoleDelegate), http.StatusForbidden},
		{"organizer", tokenFor(t, models.RoleOrganizer), http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, true, fakePool{state: db.StateReady}, &fakeCategoryService{})

			req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Sub 12"}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestCategoryReads_OpenWhenAuthRequired(t *testing.T) {
	cs := &fakeCategoryService{categories: []models.Category{{ID: "cat_1_1", Name: "Primera"}}}
	router := newTestRouter(t, true, fakePool{state: db.StateReady}, cs)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, cs.categories, got)
}

func TestCategoryWrites_OpenByDefault(t *testing.T) {
	router := newTestRouter(t, false, fakePool{state: db.StateReady}, &fakeCategoryService{})

	req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Sub 12"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestServiceErrorsMapToKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"conflict", services.ErrCategoryNameConflict, http.StatusConflict, "CONFLICT"},
		{"in use", services.ErrCategoryInUse, http.StatusConflict, "CONFLICT"},
		{"not found", services.ErrCategoryNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"database down", services.ErrUnavailable, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, false, fakePool{state: db.StateReady}, &fakeCategoryService{err: tt.err})

			req := httptest.NewRequest(http.MethodPut, "/categories/cat_1_1", strings.NewReader(`{"name":"Primera"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestLogin_RejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t, false, fakePool{state: db.StateReady}, &fakeCategoryService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
