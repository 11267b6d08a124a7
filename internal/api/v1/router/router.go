package router

import (
	"context"
	"net/http"

	"pomoroom/internal/api/v1/handler"
	"pomoroom/internal/cleanup"
	"pomoroom/internal/config"
	"pomoroom/internal/middleware"
	"pomoroom/internal/plan"
	"pomoroom/internal/policy"
	"pomoroom/internal/repository"
	"pomoroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Handlers are the route groups served under /v1.
type Handlers struct {
	User         *handler.UserHandler
	Subscription *handler.SubscriptionHandler
	Room         *handler.RoomHandler
	Session      *handler.SessionHandler
	Cron         *handler.CronHandler

	// StripeWebhook is mounted without user auth; it verifies the Stripe
	// signature itself.
	StripeWebhook http.HandlerFunc
}

// Options carry the secrets and policies of the middleware chain.
type Options struct {
	JWTSecret   string
	CronSecret  string
	IsAdmin     func(userID string) bool
	CORSOrigins []string
}

// New wires repositories, services and handlers over pool and returns the
// root handler. sweeper serves the cron endpoint.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, catalog *plan.Catalog, sweeper cleanup.Runner, logger zerolog.Logger) (http.Handler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cronSecret, err := service.ResolveCronSecret(ctx, cfg, service.NewSecretManagerService, logger)
	if err != nil {
		return nil, err
	}
	if cronSecret == "" {
		logger.Warn().Msg("No cron secret configured, cron endpoints will reject every call")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepo(pool)
	subRepo := repository.NewSubscriptionRepo(pool)
	roomRepo := repository.NewRoomRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	recordingRepo := repository.NewRecordingRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)

	subSvc := service.NewSubscriptionService(subRepo, userRepo, roomRepo, catalog, logger)
	enforcer := policy.NewEnforcer(usageRepo, subSvc, roomRepo, catalog, policy.Options{
		Location:     loc,
		QueryTimeout: cfg.QueryTimeout,
		Logger:       logger,
	})
	userSvc := service.NewUserService(userRepo)
	roomSvc := service.NewRoomService(roomRepo, userRepo, enforcer, logger)
	sessionSvc := service.NewSessionService(sessionRepo, roomRepo, logger)
	recordingSvc := service.NewRecordingService(recordingRepo, sessionRepo, roomRepo, subSvc, enforcer, cfg.RetentionWarning(), logger)
	streakSvc := service.NewStreakService(sessionRepo, loc, logger)
	stripeSvc := service.NewStripeService(cfg, userRepo, subSvc, logger)

	h := Handlers{
		User:          handler.NewUserHandler(userSvc, validate, logger),
		Subscription:  handler.NewSubscriptionHandler(subSvc, enforcer, catalog, validate, logger),
		Room:          handler.NewRoomHandler(roomSvc, sessionSvc, enforcer, validate, logger),
		Session:       handler.NewSessionHandler(sessionSvc, recordingSvc, streakSvc, validate, logger),
		Cron:          handler.NewCronHandler(sweeper, cfg.SweepTimeout, logger),
		StripeWebhook: stripeSvc.HandleWebhook,
	}

	logger.Info().Msg("Router initialized")
	return Mount(h, Options{
		JWTSecret:   cfg.JWTSecret,
		CronSecret:  cronSecret,
		IsAdmin:     cfg.IsAdmin,
		CORSOrigins: cfg.CORSOrigins,
	}, logger), nil
}

// Mount lays out the /v1 routes and wraps them with CORS and request logging.
func Mount(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		r.Get("/plans", h.Subscription.ListPlans)
		if h.StripeWebhook != nil {
			r.Post("/webhooks/stripe", h.StripeWebhook)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.CronAuthMiddleware(opts.CronSecret, logger))
			h.Cron.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(opts.JWTSecret, logger))
			h.User.RegisterRoutes(r)
			h.Subscription.RegisterRoutes(r)
			h.Room.RegisterRoutes(r)
			h.Session.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminMiddleware(opts.IsAdmin, logger))
				h.Subscription.RegisterAdminRoutes(r)
			})
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(r))
}
