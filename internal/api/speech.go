package api

import (
	"net/http"

	"github.com/pbaille/ace/internal/speech"
)

// SpeechRequest asks for text to be spoken
type SpeechRequest struct {
	Text string   `json:"text"`
	Rate *float64 `json:"rate,omitempty"`
}

// SpeechResponse reports the rate playback started at
type SpeechResponse struct {
	Rate float64 `json:"rate"`
}

func (s *Server) speak(w http.ResponseWriter, r *http.Request) {
	if s.Speaker == nil {
		writeError(w, http.StatusServiceUnavailable, "speech is not available")
		return
	}
	var req SpeechRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	var opts []speech.Option
	if req.Rate != nil {
		if *req.Rate <= 0 {
			writeError(w, http.StatusBadRequest, "rate must be positive")
			return
		}
		opts = append(opts, speech.WithRate(*req.Rate))
	}

	rate, _ := s.Speaker.Speak(req.Text, opts...)
	writeJSON(w, http.StatusAccepted, SpeechResponse{Rate: rate})
}

func (s *Server) stopSpeech(w http.ResponseWriter, r *http.Request) {
	if s.Speaker != nil {
		s.Speaker.Stop()
	}
	w.WriteHeader(http.StatusNoContent)
}
