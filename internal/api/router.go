package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rflorenc/deploy-ledger/internal/dbms"
	"github.com/rflorenc/deploy-ledger/internal/models"
	"github.com/rflorenc/deploy-ledger/internal/session"
	"github.com/rflorenc/deploy-ledger/internal/store"
)

// Server holds shared state for all API handlers.
type Server struct {
	Logs     store.LogStore
	Dbms     *dbms.Registry
	Sessions *session.Store
	Servers  *models.ServerStore
	// Validator runs pre-install validation for POST .../validate. When nil
	// the orchestrator must push results instead.
	Validator session.Validator
}

// NewServer wires empty in-memory stores.
func NewServer() *Server {
	return &Server{
		Logs:     store.NewMemory(),
		Dbms:     dbms.NewRegistry(),
		Sessions: session.NewStore(),
		Servers:  models.NewServerStore(),
	}
}

// NewRouter builds the chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Install logs
		r.Post("/logs", s.CreateLog)
		r.Get("/logs", s.ListLogs)
		r.Get("/logs/{id}", s.GetLog)
		r.Post("/logs/{id}/purge", s.PurgeArchive)

		// Datasource translation
		r.Get("/dbms", s.ListDbmsServers)
		r.Post("/dbms/resolve", s.ResolveDatasource)
		r.Get("/dbms/{server}", s.GetDbmsMap)
		r.Put("/dbms/{server}", s.PutDbmsMap)
		r.Delete("/dbms/{server}", s.DeleteDbmsMap)

		// Import sessions
		r.Post("/sessions", s.CreateSession)
		r.Get("/sessions", s.ListSessions)
		r.Get("/sessions/{id}", s.GetSession)
		r.Delete("/sessions/{id}", s.DeleteSession)
		r.Post("/sessions/{id}/packages", s.AddSessionPackage)
		r.Put("/sessions/{id}/packages/{objectType}/{depId}/results", s.SetPackageResults)
		r.Post("/sessions/{id}/validate", s.ValidateSession)

		// Target servers
		r.Get("/servers", s.ListServers)
		r.Get("/servers/{id}", s.GetServer)
		r.Delete("/servers/{id}", s.DeleteServer)
	})

	// WebSocket (outside /api to avoid JSON content-type assumptions)
	r.Get("/ws/sessions/{id}/events", s.StreamSessionEvents)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
