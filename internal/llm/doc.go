// Package llm implements the HTTP client for the remote chat-completion API.
// It sends a fixed loan-agent persona instruction plus the user transcript
// as a non-streaming two-message exchange and returns the top completion.
package llm
