// Package srv exposes the outbound policy index over a read-only JSON API.
package srv

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/linkerd/outbound-policy/controller/api/outbound/view"
	"github.com/linkerd/outbound-policy/pkg/outbound"
	log "github.com/sirupsen/logrus"
)

// PathPrefix is the prefix of every route served by the handler.
const PathPrefix = "/debug/outbound/"

type (
	// Discovery is the policy source served by the handler.
	Discovery interface {
		outbound.DiscoverOutboundPolicy[outbound.OutboundDiscoverTarget]
		Targets() []outbound.OutboundDiscoverTarget
	}

	handler struct {
		discovery Discovery
	}

	jsonError struct {
		Error string `json:"error"`
	}

	targetResponse struct {
		Service   string `json:"service"`
		Namespace string `json:"namespace"`
		Port      uint16 `json:"port"`
	}
)

// NewHandler returns a router serving:
//
//	GET /debug/outbound/policies
//	GET /debug/outbound/policies/:namespace/:service/:port
//	GET /debug/outbound/lookup/:ip/:port?sourceNamespace=NS
func NewHandler(discovery Discovery) http.Handler {
	h := &handler{discovery: discovery}
	router := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: false, // disable 405s
	}
	router.GET(PathPrefix+"policies", h.handleListPolicies)
	router.GET(PathPrefix+"policies/:namespace/:service/:port", h.handleGetPolicy)
	router.GET(PathPrefix+"lookup/:ip/:port", h.handleLookup)
	return router
}

func renderJsonError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	if status >= http.StatusInternalServerError {
		log.Error(err.Error())
	}
	rsp, _ := json.Marshal(jsonError{Error: err.Error()})
	w.WriteHeader(status)
	w.Write(rsp)
}

func renderJson(w http.ResponseWriter, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		renderJsonError(w, err, http.StatusInternalServerError)
		return
	}
	w.Write(jsonResp)
}

func (h *handler) handleListPolicies(w http.ResponseWriter, req *http.Request, p httprouter.Params) {
	targets := h.discovery.Targets()
	resp := make([]targetResponse, 0, len(targets))
	for _, t := range targets {
		resp = append(resp, targetResponse{Service: t.ServiceName, Namespace: t.ServiceNamespace, Port: t.ServicePort})
	}
	renderJson(w, resp)
}

func (h *handler) handleGetPolicy(w http.ResponseWriter, req *http.Request, p httprouter.Params) {
	port, err := parsePort(p.ByName("port"))
	if err != nil {
		renderJsonError(w, err, http.StatusBadRequest)
		return
	}
	target := outbound.OutboundDiscoverTarget{
		ServiceName:      p.ByName("service"),
		ServiceNamespace: p.ByName("namespace"),
		ServicePort:      port,
		SourceNamespace:  req.FormValue("sourceNamespace"),
	}
	if target.SourceNamespace == "" {
		target.SourceNamespace = target.ServiceNamespace
	}
	if err := target.Validate(); err != nil {
		renderJsonError(w, err, http.StatusBadRequest)
		return
	}

	policy, err := h.discovery.GetOutboundPolicy(req.Context(), target)
	if err != nil {
		renderJsonError(w, err, http.StatusInternalServerError)
		return
	}
	if policy == nil {
		renderJsonError(w, fmt.Errorf("no policy for %s", target), http.StatusNotFound)
		return
	}
	renderJson(w, view.FromPolicy(policy))
}

func (h *handler) handleLookup(w http.ResponseWriter, req *http.Request, p httprouter.Params) {
	addr, err := netip.ParseAddr(p.ByName("ip"))
	if err != nil {
		renderJsonError(w, err, http.StatusBadRequest)
		return
	}
	port, err := parsePort(p.ByName("port"))
	if err != nil {
		renderJsonError(w, err, http.StatusBadRequest)
		return
	}

	target, ok := h.discovery.LookupIP(addr, port, req.FormValue("sourceNamespace"))
	if !ok {
		renderJsonError(w, fmt.Errorf("no service for %s", netip.AddrPortFrom(addr, port)), http.StatusNotFound)
		return
	}
	renderJson(w, targetResponse{Service: target.ServiceName, Namespace: target.ServiceNamespace, Port: target.ServicePort})
}

func parsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return uint16(port), nil
}
