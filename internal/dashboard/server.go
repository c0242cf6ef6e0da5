// Package dashboard serves the browser UI and its JSON and PNG API. All
// engine access flows through the composite service and the tile proxy, so
// the browser never sees credentials or engine URLs.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/internal/composite"
	"github.com/terralens/landsat-dash/internal/config"
	"github.com/terralens/landsat-dash/internal/render"
	"github.com/terralens/landsat-dash/internal/tiles"
)

const (
	tileSize = 256
	maxZoom  = 22
)

// Server hosts the dashboard UI and API.
type Server struct {
	cfg       config.ServerConfig
	svc       *composite.Service
	proxy     *tiles.Proxy
	router    chi.Router
	httpSrv   *http.Server
	emptyTile []byte
}

// New assembles the dashboard server and its routes.
func New(cfg config.ServerConfig, svc *composite.Service, proxy *tiles.Proxy) (*Server, error) {
	empty, err := render.TransparentPNG(tileSize)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, svc: svc, proxy: proxy, emptyTile: empty}
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/meta", s.handleMeta)
		r.Get("/composite/{year}", s.handleComposite)
		r.Get("/composite/{year}/thumbnail.png", s.handleThumbnail)
		r.Get("/tiles/{year}/{z}/{x}/{y}.png", s.handleTile)
		r.Get("/stats/{year}", s.handleStats)
		r.Get("/series", s.handleSeries)
		r.Get("/chart.png", s.handleChart)
	})

	return r
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zap.L().Info("dashboard: listening", zap.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// requestLogger records one debug line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("dashboard: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}
