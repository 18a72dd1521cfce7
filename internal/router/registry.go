package router

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-level-upgrade/pkg/response"
)

// Probe reports whether a backing dependency is usable.
type Probe func(ctx context.Context) error

const probeTimeout = 2 * time.Second

type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	probes      map[string]Probe
}

func NewRegistry(engine *gin.Engine) *Registry {
	api := engine.Group("/api")
	return &Registry{Engine: engine, API: api, probes: map[string]Probe{}}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	for _, m := range r.modules {
		if m.Name() == mod.Name() {
			panic(fmt.Sprintf("router: module %q registered twice", mod.Name()))
		}
	}
	r.modules = append(r.modules, mod)
}

// Probe adds a named readiness check to /healthz.
func (r *Registry) Probe(name string, p Probe) {
	r.probes[name] = p
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		names = append(names, m.Name())
	}
	return names
}

func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
	r.Engine.GET("/healthz", r.health)
}

func (r *Registry) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, p := range r.probes {
		if err := p(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	names := make([]string, 0, len(r.probes))
	for name := range r.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	meta := gin.H{"modules": r.Names(), "probes": names}

	if len(failed) > 0 {
		response.Error[any](c, http.StatusServiceUnavailable, "unhealthy", failed)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"status": "ok"}, "healthy", meta)
}
