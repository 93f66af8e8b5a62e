// ABOUTME: HTTP server exposing the lead API and a read-only dashboard page
// ABOUTME: Routes with chi, allows cross-origin browser clients, serves /metrics when enabled
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/logging"
	"github.com/harperreed/leadsync/metrics"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/views"
)

//go:embed templates/*
var templatesFS embed.FS

type Server struct {
	app       *app.App
	log       zerolog.Logger
	templates *template.Template
	router    chi.Router
}

func NewServer(a *app.App) (*Server, error) {
	funcMap := template.FuncMap{
		"percent": func(n, total int) int {
			if total == 0 {
				return 0
			}
			return n * 100 / total
		},
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		app:       a,
		log:       logging.Component(a.Logger(), "web"),
		templates: tmpl,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleDashboard)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/stats", s.handleStats)
		r.Get("/export.csv", s.handleExport)

		r.Post("/search", s.handleSearch)
		r.Post("/search/more", s.handleLoadMore)

		r.Get("/leads", s.handleListLeads)
		r.Post("/leads", s.handleAddLead)
		r.Post("/intake/social", s.handleAddSocial)
		r.Route("/leads/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetLead)
			r.Patch("/", s.handleUpdateLead)
			r.Delete("/", s.handleDeleteLead)
			r.Post("/notes", s.handleAddNote)
			r.Post("/calls", s.handleLogCall)
		})
	})

	if p, ok := s.app.Metrics().(*metrics.Prometheus); ok {
		r.Handle("/metrics", p.Handler())
	}
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting web server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

type pipelineRow struct {
	Label string
	Count int
}

type leadRow struct {
	models.Lead
	ReviewCount int
	Score       int
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	stats := s.app.Stats()

	var pipeline []pipelineRow
	for _, st := range models.Statuses {
		pipeline = append(pipeline, pipelineRow{Label: st.Label(), Count: stats.ByStatus[st]})
	}
	var rows []leadRow
	for _, l := range s.app.Leads(views.Filters{Search: query}, views.SortScore) {
		rows = append(rows, leadRow{Lead: l, ReviewCount: l.Reviews(), Score: views.LeadScore(l)})
	}

	data := map[string]any{
		"Title":    "Dashboard",
		"User":     s.app.Viewer().Name,
		"Stats":    stats,
		"Pipeline": pipeline,
		"Leads":    rows,
		"Query":    query,
	}
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.log.Error().Err(err).Msg("template error rendering dashboard")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
