// Package server wires HTTP handlers into a gorilla/mux router for the chat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes configures and returns the router with all application routes.
// It sets up handlers for health check, WebSocket endpoint, stats, and test page.
// Requests to a known path with the wrong method receive 405.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanics)
	r.Use(s.logRequests)

	r.HandleFunc("/", HealthHandler)
	r.HandleFunc("/ws", s.WebSocketHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.StatsHandler).Methods(http.MethodGet)
	r.HandleFunc("/test", TestPageHandler).Methods(http.MethodGet)
	return r
}
