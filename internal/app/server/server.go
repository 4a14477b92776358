package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"companyms/internal/domain/audit"
	"companyms/internal/domain/auth"
	"companyms/internal/domain/notifications"
	"companyms/internal/domain/org"
	"companyms/internal/domain/project"
	"companyms/internal/domain/reports"
	"companyms/internal/domain/review"
	"companyms/internal/platform/config"
	"companyms/internal/platform/db"
	audithandler "companyms/internal/transport/http/handlers/audit"
	authhandler "companyms/internal/transport/http/handlers/auth"
	notificationshandler "companyms/internal/transport/http/handlers/notifications"
	orghandler "companyms/internal/transport/http/handlers/org"
	projecthandler "companyms/internal/transport/http/handlers/project"
	reportshandler "companyms/internal/transport/http/handlers/reports"
	reviewhandler "companyms/internal/transport/http/handlers/review"
	"companyms/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
}

// New connects to the database, runs migrations and seeding when enabled,
// and assembles the router. The caller owns the returned App and must
// Close it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	app := &App{Config: cfg, DB: pool}
	app.Router = buildRouter(cfg, pool)
	return app, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func buildRouter(cfg config.Config, pool *pgxpool.Pool) http.Handler {
	authStore := auth.NewStore(pool)
	orgStore := org.NewStore(pool)
	projectStore := project.NewStore(pool)
	reviewStore := review.NewStore(pool)
	auditSvc := audit.New(pool)
	notifySvc := notifications.New(pool)
	reportsSvc := reports.NewService(reports.NewStore(pool))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, authStore))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authStore, orgStore, cfg.JWTSecret).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated)

			orghandler.NewHandler(orgStore, authStore, auditSvc, cfg.DefaultPageSize, cfg.MaxPageSize).RegisterRoutes(r)
			projecthandler.NewHandler(projectStore, authStore, auditSvc, cfg.DefaultPageSize, cfg.MaxPageSize).RegisterRoutes(r)
			reviewhandler.NewHandler(reviewStore, authStore, notifySvc, auditSvc, cfg.DefaultPageSize, cfg.MaxPageSize).RegisterRoutes(r)
			notificationshandler.NewHandler(notifySvc, cfg.DefaultPageSize, cfg.MaxPageSize).RegisterRoutes(r)
			reportshandler.NewHandler(reportsSvc).RegisterRoutes(r)
			audithandler.NewHandler(auditSvc, cfg.DefaultPageSize, cfg.MaxPageSize).RegisterRoutes(r)
		})
	})

	return router
}

func Run() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()

	ctx := context.Background()
	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	log.Printf("company service listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
