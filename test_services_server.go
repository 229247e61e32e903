package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

// Fake upstream services for local development. Point the speech, chat,
// synthesis and transliteration endpoints at http://localhost:9000 and the
// relay can run end-to-end without any real API keys.

type SpeechResponse struct {
	Transcript   string `json:"transcript"`
	LanguageCode string `json:"language_code"`
}

type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
}

type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TransliterateResponse struct {
	TransliteratedText string `json:"transliterated_text"`
}

func speechHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 SPEECH-TO-TEXT REQUEST:")
	log.Printf("    Model: %s", r.FormValue("model"))
	log.Printf("    Language Code: %s", r.FormValue("language_code"))
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))
	log.Printf("    API Key Present: %v", r.Header.Get("api-subscription-key") != "")

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := SpeechResponse{
		Transcript:   "What are the eligibility criteria for a personal loan?",
		LanguageCode: "en-IN",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPT SENT: '%s'", response.Transcript)
	log.Println("---")
}

func chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	var request struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &request); err != nil {
		http.Error(w, "Error parsing request JSON", http.StatusBadRequest)
		return
	}

	log.Printf("💬 CHAT REQUEST:")
	log.Printf("    Model: %s", request.Model)
	log.Printf("    Messages: %d", len(request.Messages))
	if len(request.Messages) > 0 {
		last := request.Messages[len(request.Messages)-1]
		log.Printf("    User Input: '%s'", last.Content)
	}

	time.Sleep(300 * time.Millisecond)

	response := ChatResponse{
		Choices: []ChatChoice{
			{
				Message: ChatMessage{
					Role: "assistant",
					Content: "To be eligible for a personal loan you must be at least 21 years old, " +
						"hold a steady income, and have a credit score above 700.",
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ REPLY SENT: '%s'", response.Choices[0].Message.Content)
	log.Println("---")
}

func synthesisHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	var request struct {
		Inputs             []string `json:"inputs"`
		TargetLanguageCode string   `json:"target_language_code"`
		Speaker            string   `json:"speaker"`
		SpeechSampleRate   int      `json:"speech_sample_rate"`
	}
	if err := json.Unmarshal(body, &request); err != nil {
		http.Error(w, "Error parsing request JSON", http.StatusBadRequest)
		return
	}

	log.Printf("🔊 SYNTHESIS REQUEST:")
	log.Printf("    Target Locale: %s", request.TargetLanguageCode)
	log.Printf("    Speaker: %s", request.Speaker)
	log.Printf("    Sample Rate: %d", request.SpeechSampleRate)
	if len(request.Inputs) > 0 {
		log.Printf("    Text: '%s'", request.Inputs[0])
	}

	time.Sleep(400 * time.Millisecond)

	// One second of PCM-16 silence at the requested rate
	sampleRate := request.SpeechSampleRate
	if sampleRate <= 0 {
		sampleRate = 8000
	}
	audio := make([]byte, sampleRate*2)

	w.Header().Set("Content-Type", "audio/wav")
	w.Write(audio)

	log.Printf("✅ AUDIO SENT: %d bytes", len(audio))
	log.Println("---")
}

func transliterateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	var request struct {
		Input              string `json:"input"`
		SourceLanguageCode string `json:"source_language_code"`
		TargetLanguageCode string `json:"target_language_code"`
	}
	if err := json.Unmarshal(body, &request); err != nil {
		http.Error(w, "Error parsing request JSON", http.StatusBadRequest)
		return
	}

	log.Printf("🔤 TRANSLITERATION REQUEST:")
	log.Printf("    Source: %s", request.SourceLanguageCode)
	log.Printf("    Target: %s", request.TargetLanguageCode)
	log.Printf("    Input: '%s'", request.Input)

	response := TransliterateResponse{
		TransliteratedText: request.Input,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Println("---")
}

func main() {
	http.HandleFunc("/speech-to-text", speechHandler)
	http.HandleFunc("/chat/completions", chatHandler)
	http.HandleFunc("/text-to-speech", synthesisHandler)
	http.HandleFunc("/transliterate", transliterateHandler)

	port := ":9000"
	log.Printf("🚀 Test Services Server starting on port %s", port)
	log.Printf("📡 Speech:          http://localhost%s/speech-to-text", port)
	log.Printf("📡 Chat:            http://localhost%s/chat/completions", port)
	log.Printf("📡 Synthesis:       http://localhost%s/text-to-speech", port)
	log.Printf("📡 Transliteration: http://localhost%s/transliterate", port)
	log.Println("💡 Point the endpoints in configs/config.yaml at these URLs")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
