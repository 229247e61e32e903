// Package stt implements the HTTP client for the remote speech-to-text API.
// It posts a WAV-framed utterance as multipart form data with fixed model
// parameters and returns the transcript plus a detected language tag.
package stt
