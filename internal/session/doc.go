// Package session implements per-connection session state and the turn
// pipeline: accumulate audio, transcribe, normalize, generate a reply and
// synthesize it back. A single-flight guard rejects overlapping turns and
// the utterance buffer is reset on every exit path.
package session
