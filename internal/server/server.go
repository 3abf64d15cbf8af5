package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/circuit/internal/schedule"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	schedule *schedule.Service
	log      *slog.Logger
	apiKey   string
	router   chi.Router
	identity func(http.Handler) http.Handler
}

// New creates a new Server with all routes configured. Requests carry the
// local dev identity until SetTailscale is called.
func New(svc *schedule.Service, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		schedule: svc,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
		identity: DevIdentity,
	}
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.identity(next).ServeHTTP(w, r)
		})
	})
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Player endpoints (no auth; tsnet handles access)
	s.router.Get("/api/state", s.handleState)
	s.router.Post("/api/complete", s.handleComplete)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/completed", s.handleCompleted)
		r.Get("/completed/{id}", s.handleCompletedEntry)
		r.Get("/imports", s.handleImportLogs)

		// Plan generator writes (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/plan", s.handlePlan)
		})
	})
}

// SetTailscale switches request identity from the local dev user to the
// tailnet peer reported by lc.
func (s *Server) SetTailscale(lc WhoIser) {
	s.identity = TailscaleIdentity(lc, s.log)
}

// MountMCP serves an MCP transport under /mcp behind the API key.
func (s *Server) MountMCP(h http.Handler) {
	s.router.With(APIKeyAuth(s.apiKey)).Handle("/mcp", h)
	s.router.With(APIKeyAuth(s.apiKey)).Handle("/mcp/*", h)
}
