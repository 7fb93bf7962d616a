package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Roan215/Atlas-Frontend/internal/admission"
	"github.com/Roan215/Atlas-Frontend/internal/backend"
	"github.com/Roan215/Atlas-Frontend/internal/billing"
	"github.com/Roan215/Atlas-Frontend/internal/config"
	"github.com/Roan215/Atlas-Frontend/internal/discharge"
	"github.com/Roan215/Atlas-Frontend/internal/feed"
	"github.com/Roan215/Atlas-Frontend/internal/journal"
	"github.com/Roan215/Atlas-Frontend/internal/prefs"
	"github.com/Roan215/Atlas-Frontend/internal/triage"
)

// Server represents the API server
type Server struct {
	config   *config.Config
	router   chi.Router
	handlers *Handlers
}

// Components bundles the wired workflow components.
type Components struct {
	Backend    *backend.Client
	Feed       *feed.Synchronizer
	Classifier *triage.Classifier
	Billing    *billing.Engine
	Discharge  *discharge.Coordinator
	Admission  *admission.Service
	Prefs      *prefs.Store
	Journal    *journal.Journal
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, c Components) *Server {
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		handlers: NewHandlers(c),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)

	s.router.Route("/api/v1/atlas", func(r chi.Router) {
		// Hospital directory
		r.Route("/hospitals", func(r chi.Router) {
			r.Get("/", s.handlers.ListHospitals)
			r.Get("/{id}", s.handlers.GetHospital)
		})

		// Paramedic field admission
		r.Post("/admissions", s.handlers.Admit)

		// Live triage feed
		r.Route("/feed", func(r chi.Router) {
			r.Get("/", s.handlers.GetFeed)
			r.Post("/refresh", s.handlers.RefreshFeed)
		})

		// Classification workflow
		r.Route("/triage/{id}", func(r chi.Router) {
			r.Get("/stage", s.handlers.TransitionStage)
			r.Post("/transition", s.handlers.RequestTransition)
			r.Post("/confirm", s.handlers.ConfirmTransition)
			r.Post("/cancel", s.handlers.CancelTransition)
		})

		// Patient record + insurance lookup
		r.Put("/patients/{id}", s.handlers.UpdatePatient)
		r.Get("/insurance/search", s.handlers.SearchInsurance)

		// Billing and discharge
		r.Route("/billing", func(r chi.Router) {
			r.Get("/preview/{patientId}", s.handlers.BillPreview)
			r.Post("/generate/{patientId}", s.handlers.GenerateBill)
			r.Get("/invoice", s.handlers.GetInvoice)
			r.Post("/items", s.handlers.AddBillItem)
			r.Delete("/items/{itemId}", s.handlers.RemoveBillItem)
			r.Post("/discharge/{patientId}", s.handlers.Discharge)
		})

		// Journal
		r.Route("/journal", func(r chi.Router) {
			r.Get("/events", s.handlers.ListJournalEvents)
			r.Get("/stats", s.handlers.GetJournalStats)
		})

		// Local preferences
		r.Route("/prefs", func(r chi.Router) {
			r.Get("/", s.handlers.GetPrefs)
			r.Put("/theme", s.handlers.SetTheme)
			r.Put("/facility", s.handlers.SetFacility)
			r.Delete("/facility", s.handlers.ClearFacility)
		})
	})
}

// Router returns the chi router
func (s *Server) Router() http.Handler {
	return s.router
}
