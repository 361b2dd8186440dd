// Package httpadapter exposes the services over HTTP. Every endpoint answers
// JSON clients with an envelope and HTML form posts with a redirect.
package httpadapter

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

type Options struct {
	CookieSecure   bool
	AuthRateLimit  int
	AllowedOrigins []string
	// InlineTimeout bounds ?wait=true recommendation processing.
	InlineTimeout time.Duration
	// TrustProxy enables middleware.RealIP; leave off unless a proxy sets the headers.
	TrustProxy bool
}

// Deps are the services the handlers call.
type Deps struct {
	Accounts   ports.Accounts
	BloodBanks ports.BloodBanks
	Donors     ports.Donors
	Donations  ports.Donations
	Requests   ports.Requests
	Hospitals  ports.Hospitals
	Dashboards ports.Dashboards
	Redis      *redis.Client
	// Health reports storage readiness; nil means always ready.
	Health func(ctx context.Context) error
}

type Server struct {
	accounts   ports.Accounts
	banks      ports.BloodBanks
	donors     ports.Donors
	donations  ports.Donations
	requests   ports.Requests
	hospitals  ports.Hospitals
	dashboards ports.Dashboards
	rdb        *redis.Client
	health     func(ctx context.Context) error
	log        *zap.Logger
	opts       Options
}

func New(deps Deps, log *zap.Logger, opts Options) *Server {
	if opts.InlineTimeout <= 0 {
		opts.InlineTimeout = 30 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		accounts:   deps.Accounts,
		banks:      deps.BloodBanks,
		donors:     deps.Donors,
		donations:  deps.Donations,
		requests:   deps.Requests,
		hospitals:  deps.Hospitals,
		dashboards: deps.Dashboards,
		rdb:        deps.Redis,
		health:     deps.Health,
		log:        log,
		opts:       opts,
	}
}

// Routes returns the application router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.healthz)

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(s.rdb, s.opts.AuthRateLimit, time.Minute, 5*time.Minute, "auth"))
		r.Post("/register", s.register)
		r.Post("/login", s.login)
	})
	r.Get("/logout", s.logout)
	r.With(s.optionalAuth).Get("/", s.home)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/profile", s.profile)
		r.With(s.requireRole(domain.RoleHospital)).Get("/hospital-dashboard", s.hospitalDashboard)
		r.With(s.requireRole(domain.RoleBloodBank)).Get("/bloodbank-dashboard", s.bloodBankDashboard)

		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireRole(domain.RoleAdmin))
			r.Post("/", s.createUser)
			r.Get("/", s.listUsers)
			r.Put("/{id}/active", s.setUserActive)
		})
	})

	r.Route("/bloodBank", func(r chi.Router) {
		r.Get("/allBanks", s.listBanks)
		r.Get("/filter", s.filterBanks)
		r.Get("/{id}", s.getBank)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.With(s.requireRole(domain.RoleAdmin)).Post("/addBank", s.addBank)
			r.Put("/{id}/profile", s.updateBankProfile)
			r.Get("/{id}/inventory", s.getInventory)
			r.Put("/{id}/inventory", s.updateInventory)
			r.Post("/{id}/inventory", s.updateInventory)
			r.Put("/{id}/inventory/bulk", s.bulkUpdateInventory)
		})
	})

	r.Route("/donor", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/createProfile", s.createDonor)
		r.Put("/updateProfile/{id}", s.updateDonor)
		r.Post("/updateProfile/{id}", s.updateDonor)
		r.With(s.requireRole(domain.RoleAdmin, domain.RoleBloodBank, domain.RoleHospital)).Get("/allDonors", s.listDonors)
	})

	r.Route("/hospital", func(r chi.Router) {
		r.Use(s.requireAuth, s.requireRole(domain.RoleHospital))
		r.Get("/hospitalProfile", s.hospitalProfile)
		r.Put("/hospitalProfile", s.updateHospitalProfile)
		r.Post("/hospitalProfile", s.updateHospitalProfile)
	})

	r.Route("/donation", func(r chi.Router) {
		r.With(s.optionalAuth).Post("/schedule", s.scheduleDonation)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/donation", s.listDonations)
			r.Get("/{id}", s.getDonation)
			r.Put("/{id}/status", s.updateDonationStatus)
			r.Post("/{id}/status", s.updateDonationStatus)
		})
	})

	r.Route("/request", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.With(s.requireRole(domain.RoleHospital)).Post("/createRequest", s.createRequest)
		r.Get("/allRequests", s.listRequests)
		r.Put("/requestStatus", s.updateRequestStatus)
		r.Post("/requestStatus", s.updateRequestStatus)
		r.Get("/{id}", s.getRequest)
		r.Put("/{id}/status", s.updateRequestStatus)
		r.Post("/{id}/status", s.updateRequestStatus)
		r.Post("/{id}/delete", s.deleteRequest)
		r.Delete("/{id}", s.deleteRequest)
		r.Get("/{id}/donors", s.requestDonors)
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, envelope{Status: "error", Message: "storage unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: map[string]string{"status": "ok"}})
}

func principal(r *http.Request) domain.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}
