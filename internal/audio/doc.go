// Package audio handles utterance buffering and WAV framing.
// It implements the per-turn accumulation buffer fed by the transport and
// the RIFF header utilities used to frame raw PCM before transcription.
package audio
