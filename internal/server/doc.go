// Package server implements the WebSocket server carrying the client audio
// stream and the HTTP API server exposing health, session and statistics
// endpoints.
package server
