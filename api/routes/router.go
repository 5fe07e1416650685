package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shami987/kigali-bn/api/controllers"
	"github.com/shami987/kigali-bn/api/middleware"
	"github.com/shami987/kigali-bn/internal/assignment"
	"github.com/shami987/kigali-bn/internal/auth"
	"github.com/shami987/kigali-bn/internal/devices"
	"github.com/shami987/kigali-bn/pkg/auth/session"
	"github.com/shami987/kigali-bn/pkg/config"
	"github.com/shami987/kigali-bn/pkg/logger"
	"github.com/shami987/kigali-bn/pkg/metrics"
	"github.com/shami987/kigali-bn/pkg/redis"
)

// Pinger reports backend reachability for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type sessionManager interface {
	session.AccessSessionChecker
	Register(ctx context.Context, accessID string) error
	Revoke(ctx context.Context, accessID string) error
}

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	Database      Pinger
	Cache         Pinger
	RedisClient   *redis.Client
	Sessions      sessionManager
	AuthService   auth.Service
	Register      auth.RegisterService
	DeviceService devices.Service
	Engine        assignment.Engine
	HTTPMetrics   *metrics.HTTPMetrics
	PromRegistry  *prometheus.Registry
}

// NewRouter assembles the chi router with the full middleware stack.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if p.HTTPMetrics != nil {
		r.Use(middleware.Metrics(p.HTTPMetrics))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.Database, p.Cache, logg))
	})

	if p.PromRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.PromRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.RedisClient, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.RedisClient, logg)).Post("/register", controllers.AuthRegister(p.Register, logg))
		r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).Post("/logout", controllers.AuthLogout(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", controllers.DeviceList(p.Engine, logg))
			r.Get("/{deviceID}", controllers.DeviceGet(p.Engine, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireFleetMutator(logg))
				r.Post("/", controllers.DeviceCreate(p.DeviceService, logg))
				r.Put("/{deviceID}", controllers.DeviceUpdate(p.DeviceService, logg))
				r.Post("/assign", controllers.DeviceAssign(p.Engine, logg))
				r.Post("/return", controllers.DeviceReturn(p.Engine, logg))
			})

			r.With(middleware.RequireDeviceDeleter(logg)).Delete("/{deviceID}", controllers.DeviceDelete(p.Engine, logg))
		})

		r.Route("/distributions", func(r chi.Router) {
			r.Get("/", controllers.DistributionList(p.Engine, logg))
			r.Get("/active", controllers.DistributionListActive(p.Engine, logg))
			r.Get("/returned", controllers.DistributionListReturned(p.Engine, logg))
			r.Get("/{distributionID}", controllers.DistributionGet(p.Engine, logg))

			r.With(middleware.RequireFleetMutator(logg)).Put("/{distributionID}/return", controllers.DistributionReturn(p.Engine, logg))
		})
	})

	return r
}
