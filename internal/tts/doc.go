// Package tts implements the HTTP client for the remote text-to-speech API.
// It posts the reply text with the configured voice profile and target
// locale and returns the raw synthesized audio bytes.
package tts
