// Package server exposes the analyze pipeline and the report lookup over a
// small HTTP API.
package server

import (
	"net/http"

	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/analyzer"
	"github.com/eflav/aio-index/pkg/lookup"
	"github.com/eflav/aio-index/pkg/storage"
)

type Server struct {
	DB       *storage.DB // optional; history endpoints 404 without it
	Analyzer *analyzer.Analyzer
	Lookups  *lookup.Controller
	Username string
	Password string
}

func New(db *storage.DB, a *analyzer.Analyzer, user, pass string) *Server {
	return &Server{
		DB:       db,
		Analyzer: a,
		Lookups:  lookup.NewController(),
		Username: user,
		Password: pass,
	}
}

func (s *Server) Start(addr string) error {
	utils.Log.Info("Starting server on ", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler builds the route table. Split from Start so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /analyze", s.basicAuth(s.handleAnalyze))
	mux.HandleFunc("GET /api/score", s.basicAuth(s.handleScore))
	mux.HandleFunc("GET /api/history", s.basicAuth(s.handleHistory))
	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))

	return mux
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
