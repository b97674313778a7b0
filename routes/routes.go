package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"

	"github.com/Dosada05/roster-system/handlers"
	"github.com/Dosada05/roster-system/metrics"
	"github.com/Dosada05/roster-system/middleware"
	"github.com/Dosada05/roster-system/models"
)

type Options struct {
	JWTSecret      string
	AuthRequired   bool
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Handlers struct {
	Auth      *handlers.AuthHandler
	Category  *handlers.CategoryHandler
	Team      *handlers.TeamHandler
	Player    *handlers.PlayerHandler
	User      *handlers.UserHandler
	Upload    *handlers.UploadHandler
	WebSocket *handlers.WebSocketHandler
	System    *handlers.SystemHandler
}

func SetupRoutes(router chi.Router, opts Options, h Handlers) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	// Токен разбирается всегда; отсутствие токена отсекают группы ниже.
	router.Use(middleware.Authenticate(opts.JWTSecret, false))

	// Делегаты и организаторы.
	signedIn := middleware.Authenticate(opts.JWTSecret, opts.AuthRequired)
	// Только организатор может изменять справочники, когда авторизация включена.
	organizerOnly := middleware.RequireRole(opts.AuthRequired, models.RoleOrganizer)

	router.Get("/", h.System.Root)
	router.Get("/health", h.System.Health)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Post("/auth/login", h.Auth.Login)

	router.Route("/categories", func(r chi.Router) {
		r.Get("/", h.Category.GetAllCategories)
		// Параметр здесь - id пользователя-делегата.
		r.Get("/{id}", h.Category.GetDelegateAssignments)

		r.Group(func(r chi.Router) {
			r.Use(organizerOnly)

			r.Post("/", h.Category.CreateCategory)
			r.Put("/{id}", h.Category.UpdateCategory)
			r.Delete("/{id}", h.Category.DeleteCategory)
		})
	})

	router.Route("/players", func(r chi.Router) {
		r.Get("/by-category/{categoryId}", h.Player.ListPlayersByCategory)
		r.Get("/{playerId}", h.Player.GetPlayer)
		r.With(signedIn).Post("/", h.Player.CreatePlayer)
		r.With(signedIn).Put("/{playerId}", h.Player.UpdatePlayer)

		r.With(organizerOnly).Put("/{playerId}/status", h.Player.UpdatePlayerStatus)
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/", h.Team.ListTeams)
		r.Get("/by-category/{categoryId}", h.Team.ListTeamsByCategory)

		r.Group(func(r chi.Router) {
			r.Use(organizerOnly)

			r.Post("/", h.Team.CreateTeam)
			r.Put("/{id}", h.Team.UpdateTeam)
			r.Delete("/{id}", h.Team.DeleteTeam)
		})
	})

	router.Route("/users", func(r chi.Router) {
		r.Get("/", h.User.ListUsers)

		r.Group(func(r chi.Router) {
			r.Use(organizerOnly)

			r.Post("/", h.User.CreateUser)
			r.Put("/{id}", h.User.UpdateUser)
			r.Delete("/{id}", h.User.DeleteUser)
		})
	})

	router.With(signedIn).Post("/upload", h.Upload.Upload)
	router.With(signedIn).Delete("/upload/{filename}", h.Upload.DeleteFile)
	router.Get("/uploads/{filename}", h.Upload.ServeFile)

	router.Get("/ws/categories/{categoryId}", h.WebSocket.ServeCategoryFeed)
	router.Get("/ws/teams", h.WebSocket.ServeTeamsFeed)
}
