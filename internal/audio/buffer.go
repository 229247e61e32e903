package audio

import (
	"sync"
	"time"
)

// Buffer accumulates the binary audio fragments of a single utterance.
// Chunks are appended in arrival order; the buffer is cleared (capacity
// retained) at the end of every turn, including failed ones.
type Buffer struct {
	data       []byte
	chunks     uint64
	lastUpdate time.Time

	mu sync.RWMutex
}

// NewBuffer creates an empty utterance buffer with capacity pre-allocated
// for roughly two seconds of 16-bit mono audio at the given sample rate.
func NewBuffer(sampleRate int) *Buffer {
	capacity := sampleRate * 4
	if capacity <= 0 {
		capacity = 32768
	}

	return &Buffer{
		data:       make([]byte, 0, capacity),
		lastUpdate: time.Now(),
	}
}

// Append adds a binary fragment to the end of the buffer. It never fails;
// there is no upper size bound on an utterance.
func (b *Buffer) Append(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, chunk...)
	b.chunks++
	b.lastUpdate = time.Now()
}

// Drain returns a copy of the full accumulated content without clearing it.
// The copy keeps the caller (the transcription request) independent of a
// concurrent Reset.
func (b *Buffer) Drain() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Reset clears the buffer to empty while keeping its allocation.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = b.data[:0]
	b.lastUpdate = time.Now()
}

// Len returns the number of accumulated bytes.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Chunks returns the total number of fragments appended since creation.
func (b *Buffer) Chunks() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.chunks
}

// LastUpdate returns the time of the last append or reset.
func (b *Buffer) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}
