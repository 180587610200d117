package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/arawak/scribe/api"
	"github.com/arawak/scribe/internal/config"
	"github.com/arawak/scribe/internal/metrics"
	"github.com/arawak/scribe/internal/store"
	"github.com/arawak/scribe/internal/swaggerui"
)

// PostStore is the persistence the handlers need; *store.Store implements it.
type PostStore interface {
	Ping(ctx context.Context) error
	CreatePost(ctx context.Context, in store.PostInput) (*store.Post, error)
	GetPost(ctx context.Context, id int64) (*store.Post, error)
	UpdatePost(ctx context.Context, id int64, in store.PostInput) (*store.Post, error)
	DeletePost(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, term string) ([]store.Post, error)
	ListTags(ctx context.Context, prefix string) ([]string, error)
}

type Server struct {
	cfg    *config.Config
	store  PostStore
	logger *slog.Logger
}

func NewRouter(cfg *config.Config, st PostStore, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	s := &Server{cfg: cfg, store: st, logger: logger}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultRequestTimeoutSecs) * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware(logger))

	if len(cfg.CORSAllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Accept"},
		})
		r.Use(c.Handler)
	}

	wrapper := ServerInterfaceWrapper{Handler: s, ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	}}

	r.Get("/healthz", wrapper.GetHealthz)
	r.Get("/readyz", wrapper.GetReadyz)
	r.Get(cfg.OpenAPIPath, s.serveOpenAPI)
	r.Mount(cfg.SwaggerUIPath, swaggerui.Handler(cfg.OpenAPIPath, cfg.SwaggerUIPath))
	r.Handle(cfg.MetricsPath, metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/blog", wrapper.ListPosts)
		r.Post("/blog", wrapper.CreatePost)
		r.Get("/blog/{id}", wrapper.GetPost)
		r.Put("/blog/{id}", wrapper.UpdatePost)
		r.Delete("/blog/{id}", wrapper.DeletePost)
		r.Get("/tags", wrapper.ListTags)
	})

	return r
}

func (s *Server) serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPI)
}

func (s *Server) GetHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Health{Status: Ok})
}

func (s *Server) GetReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable", map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Health{Status: Ok})
}

// ListPosts answers 200 with an empty array when nothing matches.
func (s *Server) ListPosts(w http.ResponseWriter, r *http.Request, params ListPostsParams) {
	term := getStringPtr(params.Term)
	posts, err := s.store.ListPosts(r.Context(), term)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to list posts")
		return
	}
	s.logger.Debug("list posts", "term", term, "count", len(posts))
	resp := make([]Post, 0, len(posts))
	for i := range posts {
		resp = append(resp, toAPIPost(&posts[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) CreatePost(w http.ResponseWriter, r *http.Request) {
	in, err := decodePostInput(r.Body)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to create post")
		return
	}
	post, err := s.store.CreatePost(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, toAPIPost(post))
}

func (s *Server) GetPost(w http.ResponseWriter, r *http.Request, id PostId) {
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to load post")
		return
	}
	writeJSON(w, http.StatusOK, toAPIPost(post))
}

func (s *Server) UpdatePost(w http.ResponseWriter, r *http.Request, id PostId) {
	in, err := decodePostInput(r.Body)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to update post")
		return
	}
	post, err := s.store.UpdatePost(r.Context(), id, in)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to update post")
		return
	}
	writeJSON(w, http.StatusOK, toAPIPost(post))
}

func (s *Server) DeletePost(w http.ResponseWriter, r *http.Request, id PostId) {
	if err := s.store.DeletePost(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err, "failed to delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListTags(w http.ResponseWriter, r *http.Request, params ListTagsParams) {
	tags, err := s.store.ListTags(r.Context(), getStringPtr(params.Prefix))
	if err != nil {
		s.writeStoreError(w, r, err, "failed to list tags")
		return
	}
	resp := TagListResponse{Items: make([]Tag, 0, len(tags))}
	for _, t := range tags {
		resp.Items = append(resp.Items, Tag{Name: t})
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeStoreError maps decode and store errors onto responses. Anything
// unclassified is logged and reported as a 500 with msg.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *store.ValidationError
	switch {
	case errors.Is(err, errInvalidJSON):
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
	case errors.As(err, &verr):
		details := make(map[string]any, len(verr.Fields))
		for k, v := range verr.Fields {
			details[k] = v
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid input", details)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "post not found", nil)
	default:
		s.logger.Error(msg, "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal", msg, nil)
	}
}

func toAPIPost(p *store.Post) Post {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return Post{
		Id:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Category:  p.Category,
		Tags:      tags,
		CreatedAt: openapi_types.Date{Time: p.CreatedAt},
		UpdatedAt: openapi_types.Date{Time: p.UpdatedAt},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	e := Error{Code: code, Message: message}
	if len(details) > 0 {
		e.Details = &details
	}
	writeJSON(w, status, e)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func getStringPtr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
