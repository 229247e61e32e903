// Package protocol defines the WebSocket event envelope between client and
// relay. It handles JSON control frame parsing and validation plus the
// builders for outbound acknowledgment, error and busy events.
package protocol
