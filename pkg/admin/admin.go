package admin

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Server serves metrics, liveness, readiness and pprof endpoints, plus any
// handlers mounted on it.
type Server struct {
	*http.Server
	handler *handler
}

type handler struct {
	promHandler http.Handler
	ready       *atomic.Bool
	mounts      []mount
}

type mount struct {
	prefix  string
	handler http.Handler
}

// NewServer returns an admin server for addr. It reports not ready until
// SetReady is called.
func NewServer(addr string) *Server {
	ready := &atomic.Bool{}
	h := &handler{
		promHandler: promhttp.Handler(),
		ready:       ready,
	}
	return &Server{
		Server:  &http.Server{Addr: addr, Handler: h},
		handler: h,
	}
}

// Mount serves every path under prefix with h. It must be called before
// Start.
func (s *Server) Mount(prefix string, h http.Handler) {
	s.handler.mounts = append(s.handler.mounts, mount{prefix: prefix, handler: h})
}

// SetReady sets the state reported by /ready.
func (s *Server) SetReady(ready bool) {
	s.handler.ready.Store(ready)
}

// Start serves in the background until the server is shut down.
func (s *Server) Start() {
	log.Infof("starting admin server on %s", s.Addr)
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("admin server failed: %s", err)
		}
	}()
}

const pprofPrefix = "/debug/pprof/"

var pprofHandlers = map[string]http.HandlerFunc{
	"cmdline": pprof.Cmdline,
	"profile": pprof.Profile,
	"symbol":  pprof.Symbol,
	"trace":   pprof.Trace,
}

func (h *handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	for _, m := range h.mounts {
		if strings.HasPrefix(path, m.prefix) {
			m.handler.ServeHTTP(w, req)
			return
		}
	}

	if strings.HasPrefix(path, pprofPrefix) {
		if serve, ok := pprofHandlers[strings.TrimPrefix(path, pprofPrefix)]; ok {
			serve(w, req)
		} else {
			pprof.Index(w, req)
		}
		return
	}

	switch path {
	case "/metrics":
		h.promHandler.ServeHTTP(w, req)
	case "/ping":
		h.servePing(w)
	case "/ready":
		h.serveReady(w)
	default:
		http.NotFound(w, req)
	}
}

func (h *handler) servePing(w http.ResponseWriter) {
	w.Write([]byte("pong\n"))
}

func (h *handler) serveReady(w http.ResponseWriter) {
	if !h.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok\n"))
}
