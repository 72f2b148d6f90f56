package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pbaille/ace/internal/dictation"
)

// DictationResponse is the state of one drill
type DictationResponse struct {
	ID       string             `json:"id"`
	Snapshot dictation.Snapshot `json:"snapshot"`
}

// InputRequest carries the learner's typed text
type InputRequest struct {
	Input string `json:"input"`
}

// SubmitResponse reports the judgement of a submission
type SubmitResponse struct {
	DictationResponse
	Accepted bool `json:"accepted"`
}

func (s *Server) startDictation(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sel, err := req.selection()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	words := s.Catalog.Filter(sel, s.Progress)
	live, err := s.sessions.create(words, func(onChange func(dictation.Snapshot)) (*dictation.Session, error) {
		opts := []dictation.Option{dictation.WithOnChange(onChange)}
		if s.opts.AdvanceDelay > 0 {
			opts = append(opts, dictation.WithAdvanceDelay(s.opts.AdvanceDelay))
		}
		return dictation.Start(words, s.Progress, opts...)
	})
	if errors.Is(err, dictation.ErrEmptySequence) {
		writeError(w, http.StatusConflict, "no words")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.Logger.Debug("dictation started", slog.String("id", live.id), slog.Int("words", len(words)))
	writeJSON(w, http.StatusCreated, DictationResponse{ID: live.id, Snapshot: live.session.Snapshot()})
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*liveSession, bool) {
	live, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "dictation not found")
		return nil, false
	}
	return live, true
}

func (s *Server) getDictation(w http.ResponseWriter, r *http.Request) {
	live, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DictationResponse{ID: live.id, Snapshot: live.session.Snapshot()})
}

func (s *Server) dictationInput(w http.ResponseWriter, r *http.Request) {
	live, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req InputRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	live.session.SetInput(req.Input)
	writeJSON(w, http.StatusOK, DictationResponse{ID: live.id, Snapshot: live.session.Snapshot()})
}

func (s *Server) dictationSubmit(w http.ResponseWriter, r *http.Request) {
	live, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req *InputRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// without a body the buffered input is judged
	input := live.session.Snapshot().Input
	if req != nil {
		input = req.Input
	}
	_, accepted := live.session.Submit(input)
	writeJSON(w, http.StatusOK, SubmitResponse{
		DictationResponse: DictationResponse{ID: live.id, Snapshot: live.session.Snapshot()},
		Accepted:          accepted,
	})
}

func (s *Server) dictationAdvance(w http.ResponseWriter, r *http.Request) {
	live, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	live.session.Advance()
	writeJSON(w, http.StatusOK, DictationResponse{ID: live.id, Snapshot: live.session.Snapshot()})
}

func (s *Server) dictationHint(w http.ResponseWriter, r *http.Request) {
	live, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	live.session.RevealHint()
	writeJSON(w, http.StatusOK, DictationResponse{ID: live.id, Snapshot: live.session.Snapshot()})
}

// dictationSpeak plays the current word through the rate cycler
func (s *Server) dictationSpeak(w http.ResponseWriter, r *http.Request) {
	live, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if s.Speaker == nil {
		writeError(w, http.StatusServiceUnavailable, "speech is not available")
		return
	}
	word, ok := live.session.Current()
	if !ok {
		writeError(w, http.StatusConflict, "dictation is complete")
		return
	}
	rate, _ := s.Speaker.Speak(word.Text)
	writeJSON(w, http.StatusAccepted, SpeechResponse{Rate: rate})
}

func (s *Server) endDictation(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "dictation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dictationEvents streams snapshots over a websocket until the drill
// ends or the client goes away
func (s *Server) dictationEvents(w http.ResponseWriter, r *http.Request) {
	live, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates, unsubscribe := live.subscribe()
	defer unsubscribe()

	// the read loop only notices the client closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(live.session.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case snap := <-updates:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-live.done:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "dictation ended"))
			return
		case <-gone:
			return
		}
	}
}
