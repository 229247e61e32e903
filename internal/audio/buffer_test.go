package audio

import (
	"bytes"
	"testing"
	"time"
)

func TestNewBuffer(t *testing.T) {
	buffer := NewBuffer(8000)

	if buffer == nil {
		t.Fatal("NewBuffer returned nil")
	}

	if buffer.Len() != 0 {
		t.Errorf("Expected initial length 0, got %d", buffer.Len())
	}

	if buffer.Chunks() != 0 {
		t.Errorf("Expected initial chunk count 0, got %d", buffer.Chunks())
	}

	if cap(buffer.data) != 32000 {
		t.Errorf("Expected pre-allocated capacity 32000, got %d", cap(buffer.data))
	}
}

func TestNewBufferInvalidSampleRate(t *testing.T) {
	buffer := NewBuffer(0)

	if cap(buffer.data) != 32768 {
		t.Errorf("Expected fallback capacity 32768, got %d", cap(buffer.data))
	}
}

func TestAppend(t *testing.T) {
	buffer := NewBuffer(8000)

	initialTime := buffer.LastUpdate()
	time.Sleep(10 * time.Millisecond)

	chunk := []byte{0x01, 0x02, 0x03, 0x04}
	buffer.Append(chunk)

	if buffer.Len() != 4 {
		t.Errorf("Expected length 4, got %d", buffer.Len())
	}

	if buffer.Chunks() != 1 {
		t.Errorf("Expected 1 chunk, got %d", buffer.Chunks())
	}

	if !buffer.LastUpdate().After(initialTime) {
		t.Error("Expected last update time to advance after append")
	}

	buffer.Append([]byte{0x05, 0x06})

	if buffer.Len() != 6 {
		t.Errorf("Expected length 6 after second append, got %d", buffer.Len())
	}

	if buffer.Chunks() != 2 {
		t.Errorf("Expected 2 chunks, got %d", buffer.Chunks())
	}
}

func TestDrainPreservesContent(t *testing.T) {
	buffer := NewBuffer(8000)

	buffer.Append([]byte{0x01, 0x02})
	buffer.Append([]byte{0x03, 0x04})

	drained := buffer.Drain()

	expected := []byte{0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(drained, expected) {
		t.Errorf("Expected drained content %v, got %v", expected, drained)
	}

	// Drain does not clear; the caller resets explicitly
	if buffer.Len() != 4 {
		t.Errorf("Expected buffer to keep its content after drain, got length %d", buffer.Len())
	}
}

func TestDrainReturnsCopy(t *testing.T) {
	buffer := NewBuffer(8000)
	buffer.Append([]byte{0x01, 0x02, 0x03, 0x04})

	drained := buffer.Drain()
	buffer.Reset()
	buffer.Append([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	expected := []byte{0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(drained, expected) {
		t.Errorf("Drained copy was mutated by later writes: got %v", drained)
	}
}

func TestReset(t *testing.T) {
	buffer := NewBuffer(8000)
	buffer.Append(make([]byte, 1000))

	originalCap := cap(buffer.data)
	buffer.Reset()

	if buffer.Len() != 0 {
		t.Errorf("Expected empty buffer after reset, got length %d", buffer.Len())
	}

	if cap(buffer.data) != originalCap {
		t.Errorf("Expected capacity %d retained after reset, got %d", originalCap, cap(buffer.data))
	}

	// Chunk count survives reset; it tracks session totals
	if buffer.Chunks() != 1 {
		t.Errorf("Expected chunk count 1 after reset, got %d", buffer.Chunks())
	}
}

func TestDrainEmptyBuffer(t *testing.T) {
	buffer := NewBuffer(8000)

	drained := buffer.Drain()
	if len(drained) != 0 {
		t.Errorf("Expected empty drain from empty buffer, got %d bytes", len(drained))
	}
}

func TestConcurrentAccess(t *testing.T) {
	buffer := NewBuffer(8000)

	done := make(chan bool)

	for i := 0; i < 5; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = buffer.Len()
				_ = buffer.Chunks()
				_ = buffer.LastUpdate()
				_ = buffer.Drain()
			}
			done <- true
		}()
	}

	for i := 0; i < 5; i++ {
		go func() {
			chunk := make([]byte, 320)
			for j := 0; j < 100; j++ {
				buffer.Append(chunk)
				if j%10 == 0 {
					buffer.Reset()
				}
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if buffer.Chunks() != 500 {
		t.Errorf("Expected 500 total chunks after concurrent writes, got %d", buffer.Chunks())
	}
}
