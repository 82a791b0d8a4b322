// Package http wires the API routes and middleware.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chatdoc/internal/auth"
	"chatdoc/internal/handlers"
	"chatdoc/internal/ingest"
	"chatdoc/internal/rag"
	"chatdoc/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	AuthService   *auth.Service
	Pipeline      *ingest.Pipeline
	Engine        rag.Engine
	Documents     storage.DocumentStore
	Conversations storage.ConversationStore
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)

	authHandler := handlers.NewAuthHandler(deps.AuthService)
	documentHandler := handlers.NewDocumentHandler(deps.Pipeline, deps.Documents)
	chatHandler := handlers.NewChatHandler(deps.Engine, deps.Documents, deps.Conversations)

	r.Get("/health", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(deps.AuthService.Middleware).Get("/me", authHandler.Me)
		})

		r.Route("/pdf", func(r chi.Router) {
			r.Use(deps.AuthService.Middleware)
			r.Post("/upload", documentHandler.Upload)
			r.Get("/pdfs", documentHandler.List)
			r.Get("/{id}", documentHandler.Get)
			r.Delete("/{id}", documentHandler.Delete)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Use(deps.AuthService.Middleware)
			r.Post("/", chatHandler.Ask)
			r.Get("/conversations/{id}", chatHandler.Conversations)
		})
	})

	return r
}
