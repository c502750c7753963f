// Package server wires handlers into a router and runs the HTTP server.
package server

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/m-sorano/ai-cafe/internal/config"
	"github.com/m-sorano/ai-cafe/internal/db"
	"github.com/m-sorano/ai-cafe/internal/handlers"
	"github.com/m-sorano/ai-cafe/internal/knowledge"
	"github.com/m-sorano/ai-cafe/internal/middleware"
	"github.com/m-sorano/ai-cafe/internal/storage"
)

// Deps are the services the router needs.
type Deps struct {
	Config    *config.Config
	Repo      *db.Repository
	Generator *knowledge.Generator
	Avatars   storage.AvatarStore
	Limiter   *middleware.RateLimiter
	Logger    *zap.Logger
}

func applyMiddleware(h http.Handler, m ...func(http.Handler) http.Handler) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// NewRouter registers every route and wraps them in the global middleware.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	authHandler := handlers.NewAuthHandler(d.Repo, log, d.Config)
	categoryHandler := handlers.NewCategoryHandler(d.Repo, log)
	postHandler := handlers.NewPostHandler(d.Repo, log)
	commentHandler := handlers.NewCommentHandler(d.Repo, log)
	reactionHandler := handlers.NewReactionHandler(d.Repo, log)
	knowledgeHandler := handlers.NewKnowledgeHandler(d.Repo, d.Generator, log)
	adminHandler := handlers.NewAdminHandler(d.Repo, d.Avatars, log)
	profileHandler := handlers.NewProfileHandler(d.Repo, d.Avatars, log)

	auth := func(f http.HandlerFunc) http.Handler { return middleware.RequireAuth(f) }
	admin := func(f http.HandlerFunc) http.Handler { return middleware.RequireAdmin(f) }

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	api.HandleFunc("/auth/session", authHandler.Session).Methods("GET")

	api.HandleFunc("/categories", categoryHandler.ListCategories).Methods("GET")

	api.HandleFunc("/posts", postHandler.Posts).Methods("GET")
	api.Handle("/posts", auth(postHandler.CreatePost)).Methods("POST")
	api.HandleFunc("/posts/{id}", postHandler.Post).Methods("GET")
	api.Handle("/posts/{id}", auth(postHandler.EditPost)).Methods("PUT")
	api.Handle("/posts/{id}", auth(postHandler.DeletePost)).Methods("DELETE")
	api.HandleFunc("/posts/{id}/comments", commentHandler.Comments).Methods("GET")
	api.Handle("/posts/{id}/comments", auth(commentHandler.AddComment)).Methods("POST")
	api.Handle("/posts/{id}/reactions", auth(reactionHandler.React)).Methods("POST")
	api.Handle("/comments/{id}", auth(commentHandler.DeleteComment)).Methods("DELETE")

	api.HandleFunc("/knowledge", knowledgeHandler.Cards).Methods("GET")
	api.HandleFunc("/knowledge/{id}", knowledgeHandler.Card).Methods("GET")
	api.Handle("/create-knowledge-card", auth(knowledgeHandler.CreateCard)).Methods("POST")
	api.Handle("/generate-knowledge", auth(knowledgeHandler.Generate)).Methods("POST")

	api.Handle("/execute-sql", admin(adminHandler.ExecuteSQL)).Methods("POST")
	api.Handle("/setup-db", admin(adminHandler.SetupDB)).Methods("POST")
	api.Handle("/fix-permissions", admin(adminHandler.FixPermissions)).Methods("POST")

	api.Handle("/profile", auth(profileHandler.Profile)).Methods("GET")
	api.Handle("/profile", auth(profileHandler.UpdateProfile)).Methods("POST")
	api.Handle("/profile/avatar", auth(profileHandler.UploadAvatar)).Methods("POST")

	if _, ok := d.Avatars.(*storage.LocalStore); ok {
		static := http.FileServer(http.Dir(filepath.Join(d.Config.ProjectRoot, "static")))
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", static))
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Not found"}`))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"Method not allowed"}`))
	})

	chain := []func(http.Handler) http.Handler{
		middleware.LoggerMiddleware(log),
		middleware.SecureHeadersMiddleware,
	}
	if d.Limiter != nil {
		chain = append(chain, d.Limiter.Middleware)
	}
	chain = append(chain, middleware.AuthMiddleware(d.Repo, log))
	return applyMiddleware(r, chain...)
}

// New creates the HTTP server.
func New(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("url", "http://localhost"+srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
