package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/stocksync/backend/internal/infrastructure/auth"
	"github.com/stocksync/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar registers a set of routes below the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars below /api/<version> behind shared middleware
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a Router for the v1 API unless an option says otherwise
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware applied to every versioned API route
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues a registrar for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts every registered group
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	api.Use(r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Route describes one admin endpoint and the scope an operator needs for it
type Route struct {
	Method  string
	Path    string
	Scope   auth.Scope
	handler gin.HandlerFunc
}

// ScopedGroup is a route group where every route declares its scope.
// The scope check runs before the handler, after the group middleware.
type ScopedGroup struct {
	prefix string
	routes []Route
}

// NewScopedGroup creates a group mounted at prefix
func NewScopedGroup(prefix string) *ScopedGroup {
	return &ScopedGroup{prefix: prefix}
}

func (g *ScopedGroup) handle(method, relativePath string, scope auth.Scope, h gin.HandlerFunc) *ScopedGroup {
	g.routes = append(g.routes, Route{Method: method, Path: relativePath, Scope: scope, handler: h})
	return g
}

// GET registers a read route
func (g *ScopedGroup) GET(relativePath string, scope auth.Scope, h gin.HandlerFunc) *ScopedGroup {
	return g.handle(http.MethodGet, relativePath, scope, h)
}

// POST registers a write route
func (g *ScopedGroup) POST(relativePath string, scope auth.Scope, h gin.HandlerFunc) *ScopedGroup {
	return g.handle(http.MethodPost, relativePath, scope, h)
}

// Routes lists the group's endpoints with their full paths below the API root
func (g *ScopedGroup) Routes() []Route {
	out := make([]Route, 0, len(g.routes))
	for _, rt := range g.routes {
		rt.Path = path.Join(g.prefix, rt.Path)
		out = append(out, rt)
	}
	return out
}

// RegisterRoutes implements RouteRegistrar
func (g *ScopedGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix)
	for _, rt := range g.routes {
		group.Handle(rt.Method, rt.Path, middleware.RequireScope(rt.Scope), rt.handler)
	}
}
