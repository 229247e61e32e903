package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	pcm := make([]byte, 16000) // one second at 8000 Hz, 16-bit mono
	for i := range pcm {
		pcm[i] = byte(i % 256)
	}

	wav, err := EncodeWAV(pcm, 8000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(wav) != wavHeaderSize+len(pcm) {
		t.Errorf("Expected %d bytes, got %d", wavHeaderSize+len(pcm), len(wav))
	}

	if !IsWAV(wav) {
		t.Error("Encoded data is not recognized as WAV")
	}

	if err := ValidateWAV(wav); err != nil {
		t.Errorf("Encoded WAV failed validation: %v", err)
	}

	sampleRate := binary.LittleEndian.Uint32(wav[24:28])
	if sampleRate != 8000 {
		t.Errorf("Expected sample rate 8000, got %d", sampleRate)
	}

	numChannels := binary.LittleEndian.Uint16(wav[22:24])
	if numChannels != 1 {
		t.Errorf("Expected mono audio, got %d channels", numChannels)
	}

	bitsPerSample := binary.LittleEndian.Uint16(wav[34:36])
	if bitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", bitsPerSample)
	}

	dataSize := binary.LittleEndian.Uint32(wav[40:44])
	if dataSize != uint32(len(pcm)) {
		t.Errorf("Expected data size %d, got %d", len(pcm), dataSize)
	}
}

func TestEncodeWAVInvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		pcm        []byte
		sampleRate int
	}{
		{"empty data", []byte{}, 8000},
		{"odd length", make([]byte, 161), 8000},
		{"zero sample rate", make([]byte, 320), 0},
		{"negative sample rate", make([]byte, 320), -8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeWAV(tt.pcm, tt.sampleRate)
			if err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestIsWAV(t *testing.T) {
	pcm := make([]byte, 320)
	wav, err := EncodeWAV(pcm, 8000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{"valid WAV", wav, true},
		{"raw PCM", pcm, false},
		{"too short", []byte("RIFF"), false},
		{"empty", []byte{}, false},
		{"RIFF without WAVE", append([]byte("RIFF1234"), []byte("AIFF")...), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsWAV(tt.data) != tt.expected {
				t.Errorf("IsWAV = %v, expected %v", !tt.expected, tt.expected)
			}
		})
	}
}

func TestValidateWAVErrors(t *testing.T) {
	pcm := make([]byte, 320)
	wav, _ := EncodeWAV(pcm, 8000)

	// Corrupt the fmt chunk marker
	corrupted := make([]byte, len(wav))
	copy(corrupted, wav)
	copy(corrupted[12:16], "junk")

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", make([]byte, 10)},
		{"missing RIFF", make([]byte, wavHeaderSize)},
		{"corrupted fmt chunk", corrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateWAV(tt.data); err == nil {
				t.Error("Expected validation error but got none")
			}
		})
	}
}

func TestDuration(t *testing.T) {
	// One second of audio: 8000 samples * 2 bytes
	pcm := make([]byte, 16000)
	wav, err := EncodeWAV(pcm, 8000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	duration, err := Duration(wav)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}

	if duration != 1.0 {
		t.Errorf("Expected duration 1.0 seconds, got %f", duration)
	}

	// Half a second
	halfPCM := make([]byte, 8000)
	halfWAV, _ := EncodeWAV(halfPCM, 8000)
	halfDuration, err := Duration(halfWAV)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}

	if halfDuration != 0.5 {
		t.Errorf("Expected duration 0.5 seconds, got %f", halfDuration)
	}
}

func TestDurationInvalidData(t *testing.T) {
	_, err := Duration(make([]byte, 10))
	if err == nil {
		t.Error("Expected error for truncated data")
	}
}
