package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ecs-league/draftboard/internal/auth"
	"github.com/ecs-league/draftboard/internal/hub"
	"github.com/ecs-league/draftboard/internal/store"
	"github.com/ecs-league/draftboard/internal/ws"
)

// API bundles the handler dependencies. Store may be nil when the
// server runs without a database; board-reading endpoints then serve
// in-memory rooms only and player lookups 404.
type API struct {
	Hub    *hub.Hub
	Boards hub.BoardLoader
	Store  *store.Store
	Auth   *auth.Service
	Creds  map[string]string // username -> password, from config
	Log    *zap.Logger
}

func (a *API) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Post("/auth/login", a.Login)
	r.Get("/ws", ws.Handler(a.Hub, a.Boards, a.Auth, a.Log))

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(a.Middleware)

		r.Post("/auth/logout", a.Logout)

		r.Get("/leagues/{league}/board", a.GetBoard)
		r.Post("/leagues/{league}/draft", a.DraftPlayer)
		r.Post("/leagues/{league}/remove", a.RemovePlayer)
		r.Post("/leagues/{league}/position", a.UpdatePosition)
		r.Get("/leagues/{league}/picks", a.ListPicks)

		r.Get("/players/{id}", a.GetPlayer)
		r.Get("/players/search", a.SearchPlayers)
	})

	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
