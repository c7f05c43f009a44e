package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/technosupport/fleetwatch/internal/audit"
	"github.com/technosupport/fleetwatch/internal/auth"
	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/middleware"
	"github.com/technosupport/fleetwatch/internal/notify"
	"github.com/technosupport/fleetwatch/internal/store"
	"github.com/technosupport/fleetwatch/internal/users"
)

type Deps struct {
	Store     *store.Store
	Users     *users.Service
	Analyzer  FrameAnalyzer
	Audit     *audit.Service
	Hub       *notify.Hub
	JWT       *middleware.JWTAuth
	Blacklist auth.TokenBlacklist
	RateLimit *middleware.RateLimit
	AccessTTL time.Duration
}

// NewRouter assembles the HTTP surface. Viewers can read everything;
// operators drive devices; admins manage users and destructive system
// operations.
func NewRouter(d Deps) http.Handler {
	authH := &AuthHandler{Users: d.Users, Blacklist: d.Blacklist, AccessTTL: d.AccessTTL}
	camH := &CameraHandler{Store: d.Store, Analyzer: d.Analyzer}
	nvrH := &NVRHandler{Store: d.Store}
	alertH := &AlertHandler{Store: d.Store}
	faultH := &FaultHandler{Store: d.Store}
	backupH := &BackupHandler{Store: d.Store}
	userH := &UserHandler{Users: d.Users}
	auditH := &AuditHandler{Audit: d.Audit}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORS)
	if d.RateLimit != nil {
		r.Use(d.RateLimit.Global)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/notifications", d.Hub.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			login := authH.Login
			if d.RateLimit != nil {
				login = d.RateLimit.Login(login)
			}
			r.Post("/login", login)
			r.Post("/refresh", authH.Refresh)
			r.With(d.JWT.Middleware).Post("/logout", authH.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.JWT.Middleware)

			r.Get("/cameras", camH.List)
			r.Get("/cameras/{id}", camH.Get)
			r.Get("/live", camH.LiveView)
			r.Get("/nvrs", nvrH.List)
			r.Get("/nvrs/{id}", nvrH.Get)
			r.Get("/alerts", alertH.List)
			r.Get("/faults", faultH.List)
			r.Get("/faults/report", faultH.Report)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(data.RoleOperator))

				r.Post("/cameras/{id}/reconnect", camH.Reconnect)
				r.Post("/cameras/{id}/analyze", camH.Analyze)
				r.Put("/cameras/{id}/pin", camH.Pin)
				r.Delete("/cameras/{id}/pin", camH.Unpin)
				r.Post("/nvrs", nvrH.Create)
				r.Put("/nvrs/{id}", nvrH.Update)
				r.Delete("/nvrs/{id}", nvrH.Delete)
				r.Post("/nvrs/{id}/test-connection", nvrH.TestConnection)
				r.Post("/faults/{id}/ack", faultH.Acknowledge)
				r.Delete("/alerts", alertH.Clear)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(data.RoleAdmin))

				r.Get("/users", userH.List)
				r.Post("/users", userH.Create)
				r.Put("/users/{id}", userH.Update)
				r.Delete("/users/{id}", userH.Delete)
				r.Get("/audit", auditH.Query)
				r.Get("/backup/export", backupH.Export)
				r.Post("/backup/import", backupH.Import)
				r.Post("/system/factory-reset", backupH.FactoryReset)
			})
		})
	})

	return r
}
