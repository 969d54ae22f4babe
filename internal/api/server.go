// Package api exposes the HTTP interface for the wine-statistics
// service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vitibrasil/vitibrasil-api/internal/auth"
	"github.com/vitibrasil/vitibrasil-api/internal/cache"
	"github.com/vitibrasil/vitibrasil-api/internal/config"
	"github.com/vitibrasil/vitibrasil-api/internal/metrics"
	"github.com/vitibrasil/vitibrasil-api/internal/scraper"
)

// Pipeline is the scraping entry point the API depends on.
type Pipeline interface {
	Get(ctx context.Context, category scraper.Category, year *int) scraper.ExtractionResult
	GetSubcategory(ctx context.Context, category scraper.Category, name string, year *int) scraper.ExtractionResult
}

// Server wires HTTP handlers to the pipeline through the result cache.
type Server struct {
	router   chi.Router
	pipeline Pipeline
	cache    *cache.Cache
	tokens   *auth.Manager
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(pipeline Pipeline, resultCache *cache.Cache, tokens *auth.Manager, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		cache:    resultCache,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(time.Duration(cfg.Server.TimeoutSeconds) * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", s.issueToken)

		r.Group(func(r chi.Router) {
			if cfg.Auth.Enabled {
				r.Use(s.bearerMiddleware)
			}
			r.Get("/production", s.categoryHandler(scraper.CategoryProduction))
			r.Get("/commercialization", s.categoryHandler(scraper.CategoryCommercialization))
			r.Get("/processing", s.categoryHandler(scraper.CategoryProcessing))
			r.Get("/processing/{subcategory}", s.subcategoryHandler(scraper.CategoryProcessing))
			r.Get("/imports", s.categoryHandler(scraper.CategoryImports))
			r.Get("/imports/{subcategory}", s.subcategoryHandler(scraper.CategoryImports))
			r.Get("/exports", s.categoryHandler(scraper.CategoryExports))
			r.Get("/exports/{subcategory}", s.subcategoryHandler(scraper.CategoryExports))

			r.Delete("/cache", s.clearCache)
			r.Delete("/cache/tags/{tag}", s.invalidateTag)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// categoryHandler serves one category through the result cache. The
// cache key is the category plus the effective year argument; entries
// are tagged with the category so snapshot refreshes can invalidate
// selectively.
func (s *Server) categoryHandler(category scraper.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, ok := parseYear(w, r)
		if !ok {
			return
		}
		key := cache.Key("pipeline", string(category), yearKey(year))
		value, err := s.cache.GetOrCompute(r.Context(), key, s.cfg.CacheTTL(), []string{string(category)},
			func(ctx context.Context) (any, error) {
				result := s.pipeline.Get(ctx, category, year)
				metrics.ObserveScrape(string(category), string(result.Source), len(result.Data))
				return result, nil
			})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, value)
	}
}

func (s *Server) subcategoryHandler(category scraper.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "subcategory")
		if _, ok := scraper.SubcategoryByName(category, name); !ok {
			writeError(w, http.StatusNotFound, "unknown subcategory "+name)
			return
		}
		year, ok := parseYear(w, r)
		if !ok {
			return
		}
		key := cache.Key("pipeline", string(category), name, yearKey(year))
		value, err := s.cache.GetOrCompute(r.Context(), key, s.cfg.CacheTTL(), []string{string(category)},
			func(ctx context.Context) (any, error) {
				result := s.pipeline.GetSubcategory(ctx, category, name, year)
				metrics.ObserveScrape(string(category), string(result.Source), len(result.Data))
				return result, nil
			})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, value)
	}
}

func (s *Server) clearCache(w http.ResponseWriter, _ *http.Request) {
	s.cache.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

func (s *Server) invalidateTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	count := s.cache.InvalidateTag(tag)
	writeJSON(w, http.StatusOK, map[string]any{"tag": tag, "invalidated": count})
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}
	expected, ok := s.cfg.Auth.Users[req.Username]
	if !ok || expected != req.Password {
		writeError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}
	token, err := s.tokens.Issue(req.Username)
	if err != nil {
		s.logger.Error("token issuance failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func parseYear(w http.ResponseWriter, r *http.Request) (*int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return nil, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be an integer")
		return nil, false
	}
	return &year, true
}

func yearKey(year *int) string {
	if year == nil {
		return "all"
	}
	return strconv.Itoa(*year)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
