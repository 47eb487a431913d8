// Package server implements the HTTP and WebSocket surface of the chat service.
//
// The implementation is organized into specialized files for configuration,
// origin checks, rate limiting, per-connection clients, routing, middleware,
// presence stats, and HTTP handlers. Chat semantics live in package chat; this
// package only adapts WebSocket connections to it.
package server
