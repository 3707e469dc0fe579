// Package httpapi exposes the engine over HTTP.
package httpapi

import (
	"github.com/labstack/echo/v4"

	"sdch/internal/assembler"
	"sdch/internal/budget"
	"sdch/internal/cache"
	"sdch/internal/ingest"
	"sdch/internal/store"
)

// Server wires the engine services into echo routes.
type Server struct {
	ingest    *ingest.Service
	assembler *assembler.Service
	store     store.Store
	cache     cache.Cache
	budget    budget.Config
	maxBytes  int64
}

// New builds the server.
func New(ing *ingest.Service, asm *assembler.Service, st store.Store, c cache.Cache, b budget.Config, maxBytes int64) *Server {
	return &Server{ingest: ing, assembler: asm, store: st, cache: c, budget: b, maxBytes: maxBytes}
}

// Register sets up all the routes for the application.
func (s *Server) Register(e *echo.Echo) {
	api := e.Group("/api")

	docs := api.Group("/documents")
	docs.POST("/upload", s.uploadHandler)
	docs.GET("/", s.listDocumentsHandler)
	docs.GET("/:id", s.getDocumentHandler)
	docs.DELETE("/:id", s.deleteDocumentHandler)

	api.POST("/query/", s.queryHandler)
	api.GET("/health", s.healthHandler)
}
