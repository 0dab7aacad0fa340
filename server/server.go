// Package server serves an asset package over HTTP for local preview.
//
// Routes:
//
//	GET /                               index.html
//	GET /_ars/components                packaged widgets
//	GET /_ars/messages/:widget/:lang    widget messages (?path= for one)
//	anything else                       packaged asset, or index.html for
//	                                    paths without an extension
//
// Bodies are gzip encoded when the client accepts it. Assets are cached
// for a week; the index and misses are not cached.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minios-linux/ars/config"
	"github.com/minios-linux/ars/logger"
	"github.com/minios-linux/ars/pack"
)

// Cache-Control values.
const (
	CacheAssets = "public, max-age=604800"
	CacheNone   = "no-store"
)

// RequestIDHeader carries the request id.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 10 * time.Second

// Server serves one asset package.
type Server struct {
	cfg      *config.ServerConfig
	pkg      *pack.Package
	log      *zap.Logger
	assets   map[string]*body
	index    *body
	catalogs map[string]*catalog
	engine   *gin.Engine
}

// New prepares every response of pkg and wires the routes.
func New(cfg *config.ServerConfig, pkg *pack.Package, log *zap.Logger) (*Server, error) {
	log = logger.OrNop(log)
	assets, index, err := prepare(pkg, newRewriter(pkg.TargetURL, cfg.PublicURL))
	if err != nil {
		return nil, fmt.Errorf("preparing assets: %w", err)
	}
	s := &Server{
		cfg:      cfg,
		pkg:      pkg,
		log:      log,
		assets:   assets,
		index:    index,
		catalogs: make(map[string]*catalog, len(pkg.WebComponents)),
	}
	for _, c := range pkg.WebComponents {
		s.catalogs[c.Name] = newCatalog(c, log)
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Accept", "Accept-Encoding", "Content-Type"},
		ExposeHeaders:   []string{"Content-Length", "Content-Encoding", RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/", s.handleIndex)
	r.HEAD("/", s.handleIndex)
	api := r.Group("/_ars")
	api.GET("/components", s.handleComponents)
	api.GET("/messages/:widget/:lang", s.handleMessages)
	r.NoRoute(s.handleAsset)
	return r
}

func (s *Server) handleIndex(c *gin.Context) {
	if s.index == nil {
		notFound(c)
		return
	}
	write(c, s.index, CacheNone)
}

func (s *Server) handleAsset(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		notFound(c)
		return
	}
	p := strings.TrimPrefix(c.Request.URL.Path, "/")
	if p == "index.html" || !strings.Contains(path.Base(p), ".") {
		s.handleIndex(c)
		return
	}
	if b, ok := s.assets[p]; ok {
		write(c, b, CacheAssets)
		return
	}
	notFound(c)
}

type componentInfo struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Path      string   `json:"path"`
	Languages []string `json:"languages"`
	Default   string   `json:"defaultLanguage"`
}

func (s *Server) handleComponents(c *gin.Context) {
	out := make([]componentInfo, 0, len(s.pkg.WebComponents))
	for _, wc := range s.pkg.WebComponents {
		cat := s.catalogs[wc.Name]
		out = append(out, componentInfo{
			Name:      wc.Name,
			Title:     wc.Title,
			Path:      wc.Path,
			Languages: append([]string{}, cat.languages...),
			Default:   cat.defaultLang,
		})
	}
	c.JSON(http.StatusOK, gin.H{"name": s.pkg.Name, "version": s.pkg.Version, "components": out})
}

func (s *Server) handleMessages(c *gin.Context) {
	widget, lang := c.Param("widget"), c.Param("lang")
	cat, ok := s.catalogs[widget]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown widget", "widget": widget})
		return
	}

	if p := c.Query("path"); p != "" {
		text, found, err := cat.message(lang, p)
		if err != nil {
			if errors.Is(err, errUnknownMessage) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "path": p})
				return
			}
			s.log.Warn("message lookup failed", zap.String("widget", widget), zap.String("path", p), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "message lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"widget": widget, "lang": found, "path": p, "message": text})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"widget":          widget,
		"lang":            lang,
		"defaultLanguage": cat.defaultLang,
		"messages":        cat.all(lang),
	})
}

// write sends a prepared body, gzip encoded when accepted.
func write(c *gin.Context, b *body, cacheControl string) {
	h := c.Writer.Header()
	h.Set("Cache-Control", cacheControl)
	h.Add("Vary", "Accept-Encoding")
	if strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
		h.Set("Content-Encoding", "gzip")
		c.Data(http.StatusOK, b.mime, b.gz)
		return
	}
	c.Data(http.StatusOK, b.mime, b.raw)
}

func notFound(c *gin.Context) {
	c.Header("Cache-Control", CacheNone)
	c.Data(http.StatusNotFound, "text/plain; charset=utf-8", []byte("not found"))
}

// requestID propagates or assigns the X-Request-ID header.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set("request_id", rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")))
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("preview server started",
		zap.String("addr", s.cfg.Address),
		zap.String("public_url", s.cfg.PublicURL),
		zap.String("package", s.pkg.Name))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("preview server stopped")
	return nil
}
