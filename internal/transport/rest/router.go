package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"

	"github.com/shifterhq/shifter/internal/audit"
	"github.com/shifterhq/shifter/internal/auth"
	"github.com/shifterhq/shifter/internal/bot"
	"github.com/shifterhq/shifter/internal/news"
	"github.com/shifterhq/shifter/internal/note"
	"github.com/shifterhq/shifter/internal/request"
	"github.com/shifterhq/shifter/internal/schedule"
	"github.com/shifterhq/shifter/internal/store"
	"github.com/shifterhq/shifter/internal/transport/middleware"
	"github.com/shifterhq/shifter/internal/user"
)

// Handlers bundles every HTTP surface the router mounts. Nil entries are
// skipped, which keeps the worker binary from dragging in surfaces it does
// not serve.
type Handlers struct {
	Auth     *auth.Handler
	User     *user.Handler
	Store    *store.Handler
	Schedule *schedule.Handler
	Request  *request.Handler
	News     *news.Handler
	Note     *note.Handler
	Audit    *audit.Handler
	Webhook  *bot.WebhookHandler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Telegram posts updates here; the token in the path is the shared
	// secret, so the route stays outside the API prefix.
	if h.Webhook != nil {
		router.Post("/bot/{token}", h.Webhook.HandleUpdate)
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		// Public routes: sign-up and the store list the sign-up form needs
		if h.User != nil {
			r.Post("/users/register", h.User.Register)
		}
		if h.Store != nil {
			r.Get("/stores", h.Store.ListStores)
		}

		if h.Auth == nil {
			return
		}

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Post("/auth/change-password", h.Auth.ChangePassword)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.Put("/users/me/reminder", h.User.SetReminder)
				pr.Get("/users", h.User.ListUsers)
				pr.Patch("/users/{id}", h.User.UpdateUser)
			}

			if h.Store != nil {
				pr.Post("/stores", h.Store.CreateStore)
				pr.Patch("/stores/{id}", h.Store.UpdateStore)
			}

			// Single-row shift and task writes go through the request
			// workflow; the schedule handler only serves reads and batches.
			if h.Schedule != nil && h.Request != nil {
				pr.Route("/shifts", func(sr chi.Router) {
					sr.Get("/", h.Schedule.ListShifts)
					sr.Get("/hours", h.Schedule.MonthHours)
					sr.Post("/", h.Request.CreateShift)
					sr.Post("/bulk", h.Schedule.BulkImport)
					sr.Delete("/day", h.Schedule.ClearDay)
					sr.Delete("/month", h.Schedule.ClearMonth)
					sr.Delete("/{id}", h.Request.DeleteShift)
				})

				pr.Route("/tasks", func(tr chi.Router) {
					tr.Get("/", h.Schedule.ListTasks)
					tr.Post("/", h.Request.CreateTask)
					tr.Delete("/{id}", h.Request.DeleteTask)
				})
			}

			if h.Request != nil {
				pr.Route("/requests", func(rr chi.Router) {
					rr.Get("/", h.Request.ListRequests)
					rr.Post("/approve-all", h.Request.ApproveAll)
					rr.Post("/transfer", h.Request.RequestTransfer)
					rr.Post("/transfer/{id}/respond", h.Request.RespondTransfer)
					rr.Post("/{id}/action", h.Request.ResolveRequest)
				})
			}

			if h.News != nil {
				pr.Get("/news", h.News.ListNews)
				pr.Post("/news", h.News.PublishNews)
			}

			if h.Note != nil {
				pr.Route("/notes", func(nr chi.Router) {
					nr.Get("/", h.Note.ListNotes)
					nr.Post("/", h.Note.CreateNote)
					nr.Delete("/{id}", h.Note.DeleteNote)
				})
			}

			if h.Audit != nil {
				pr.Get("/logs", h.Audit.ListLogs)
			}
		})
	})
}
