package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

type apiRoute struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
}

func (h *Handlers) routes() []apiRoute {
	return []apiRoute{
		{
			Path:    "/options/analysis",
			Method:  http.MethodGet,
			Handler: h.GetOptionAnalysis,
		},
		{
			Path:    "/options/expirations",
			Method:  http.MethodGet,
			Handler: h.GetOptionExpirations,
		},
		{
			Path:    "/quote",
			Method:  http.MethodGet,
			Handler: h.GetQuote,
		},
	}
}

// ServeRoutes registers the API under /api/v1
func ServeRoutes(router *mux.Router, h *Handlers) {
	api := router.PathPrefix("/api/v1").Subrouter()
	for _, r := range h.routes() {
		api.HandleFunc(r.Path, r.Handler).Methods(r.Method)
	}
}

// NewRouter builds the complete HTTP handler, compression included
func NewRouter(h *Handlers) http.Handler {
	r := mux.NewRouter()
	ServeRoutes(r, h)
	return ZstdMiddleware(r)
}
