package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/captolab/gpuhub/internal/config"
	"github.com/captolab/gpuhub/internal/handler"
	"github.com/captolab/gpuhub/internal/middleware"
	"github.com/captolab/gpuhub/internal/observability"
	"github.com/captolab/gpuhub/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New builds the HTTP router.
// coord may be nil; if nil, a coordinator with an in-memory pending store
// and the local Python executor is created internally. Passing a
// pre-created instance lets main.go wire the Redis store and the artifact
// archive first.
func New(cfg *config.Config, db *sql.DB, coord *service.Coordinator) http.Handler {
	authSvc := service.NewAuthService(db, cfg.JWTSecret, time.Duration(cfg.TokenExpiryHours)*time.Hour)
	quota := service.NewQuotaLedger(db, cfg.DailyQuotaMinutes)
	if coord == nil {
		exec := service.NewPythonExecutor(cfg.PythonBin)
		coord = service.NewCoordinator(db, quota, service.NewMemoryPendingStore(), exec,
			cfg.WorkDir, time.Duration(cfg.ExecTimeoutSeconds)*time.Second)
	}

	authH := handler.NewAuthHandler(authSvc)
	healthH := handler.NewHealthHandler("0.3.0")
	gpuH := handler.NewGPUHandler(coord, quota)
	adminH := handler.NewAdminHandler(authSvc, quota)

	requireAuth := middleware.AuthMiddleware(authSvc.VerifyToken)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Trace)
	r.Use(middleware.CORS)
	r.Use(observability.MetricsMiddleware)

	// Public
	r.Get("/healthz", healthH.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/auth/register", authH.Register)
	r.Post("/api/auth/login", authH.Login)
	r.Get("/api/auth/verify", authH.Verify)

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/api/gpu/execute/start", gpuH.StartExecution)
		r.Post("/api/gpu/execute/stop", gpuH.StopExecution)
		r.Post("/api/gpu/execute/code", gpuH.ExecuteCode)
		r.Post("/api/gpu/execute/input", gpuH.ProvideInput)
		r.Get("/api/gpu/usage", gpuH.Usage)
		r.Get("/api/gpu/quota/check", gpuH.QuotaCheck)
		r.Get("/api/gpu/stats", gpuH.Stats)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/api/admin/usage/all", adminH.AllUsage)
			r.Post("/api/admin/quota/reset", adminH.ResetQuota)
			r.Put("/api/admin/users/{userID}/toggle", adminH.ToggleUser)
		})
	})

	return r
}
