package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registrar mounts its routes on the API group
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts route groups under one API prefix. Middleware added with Use
// wraps only that prefix, so engine-level routes such as /health stay outside
// rate limiting.
type Router struct {
	engine     *gin.Engine
	prefix     string
	middleware []gin.HandlerFunc
	registrars []Registrar
}

func NewRouter(engine *gin.Engine, prefix string) *Router {
	return &Router{engine: engine, prefix: prefix}
}

func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

func (r *Router) Register(registrars ...Registrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup mounts every registered group on the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.prefix, r.middleware...)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

// Group is one area of the API (cart, orders, admin) and the guards every
// route in it shares. Sub-groups inherit the guards of their parent.
type Group struct {
	prefix   string
	guards   []gin.HandlerFunc
	routes   []route
	children []*Group
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

func NewGroup(prefix string, guards ...gin.HandlerFunc) *Group {
	return &Group{prefix: prefix, guards: guards}
}

// Sub adds a nested group with extra guards
func (g *Group) Sub(prefix string, guards ...gin.HandlerFunc) *Group {
	child := NewGroup(prefix, guards...)
	g.children = append(g.children, child)
	return child
}

func (g *Group) Handle(method, path string, handlers ...gin.HandlerFunc) *Group {
	g.routes = append(g.routes, route{method: method, path: path, handlers: handlers})
	return g
}

func (g *Group) GET(path string, h ...gin.HandlerFunc) *Group { return g.Handle(http.MethodGet, path, h...) }
func (g *Group) POST(path string, h ...gin.HandlerFunc) *Group { return g.Handle(http.MethodPost, path, h...) }
func (g *Group) PUT(path string, h ...gin.HandlerFunc) *Group { return g.Handle(http.MethodPut, path, h...) }
func (g *Group) DELETE(path string, h ...gin.HandlerFunc) *Group { return g.Handle(http.MethodDelete, path, h...) }

func (g *Group) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix, g.guards...)
	for _, rt := range g.routes {
		group.Handle(rt.method, rt.path, rt.handlers...)
	}
	for _, child := range g.children {
		child.RegisterRoutes(group)
	}
}
