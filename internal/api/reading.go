package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/reading"
	"github.com/pbaille/ace/internal/shadowing"
)

// ReadingView is the reader state of one article
type ReadingView struct {
	ArticleID string           `json:"article_id"`
	Rate      float64          `json:"rate"`
	RateLabel string           `json:"rate_label"`
	Shown     []int            `json:"shown"`
	Recording *int             `json:"recording"`
	Clips     []shadowing.Clip `json:"clips"`
}

// RateRequest sets the reading speed: slow, normal, fast or 0.6, 1.0, 1.4
type RateRequest struct {
	Rate string `json:"rate"`
}

// ReadAloudRequest selects one paragraph; without it the whole article is read
type ReadAloudRequest struct {
	Paragraph *int `json:"paragraph,omitempty"`
}

// TranslationResponse reports a paragraph's translation visibility
type TranslationResponse struct {
	Index int  `json:"index"`
	Shown bool `json:"shown"`
}

// ShadowResponse acknowledges a recording start
type ShadowResponse struct {
	Index      int     `json:"index"`
	MaxSeconds float64 `json:"max_seconds"`
}

// readerRegistry keeps one reader per opened article. Recording is
// allowed on one article at a time.
type readerRegistry struct {
	mu      sync.Mutex
	readers map[string]*reading.Reader
}

func newReaderRegistry() *readerRegistry {
	return &readerRegistry{readers: make(map[string]*reading.Reader)}
}

func (r *readerRegistry) open(article domain.Article, create func(domain.Article) *reading.Reader) *reading.Reader {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rd, ok := r.readers[article.ID]; ok {
		return rd
	}
	rd := create(article)
	r.readers[article.ID] = rd
	return rd
}

// shadow starts a recording unless any reader is already recording.
func (r *readerRegistry) shadow(rd *reading.Reader, index int) (<-chan shadowing.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.readers {
		if _, busy := other.Recording(); busy {
			return nil, shadowing.ErrBusy
		}
	}
	return rd.Shadow(context.Background(), index)
}

func (r *readerRegistry) drop(id string) {
	r.mu.Lock()
	rd, ok := r.readers[id]
	delete(r.readers, id)
	r.mu.Unlock()
	if ok {
		rd.Stop()
		rd.StopShadowing()
	}
}

func (r *readerRegistry) closeAll() {
	r.mu.Lock()
	all := r.readers
	r.readers = make(map[string]*reading.Reader)
	r.mu.Unlock()
	for _, rd := range all {
		rd.Stop()
		rd.StopShadowing()
	}
}

func (s *Server) newReader(article domain.Article) *reading.Reader {
	var rec *shadowing.Recorder
	if s.Capture != nil {
		var opts []shadowing.Option
		if s.Player != nil {
			opts = append(opts, shadowing.WithPlayer(s.Player))
		}
		rec = shadowing.NewRecorder(s.Capture, s.opts.MaxRecording, s.Logger, opts...)
	}
	return reading.NewReader(article, s.Speaker, rec)
}

func (s *Server) lookupReader(w http.ResponseWriter, r *http.Request) (*reading.Reader, bool) {
	view, err := s.findArticle(r.PathValue("id"))
	if errors.Is(err, errArticleNotFound) {
		writeError(w, http.StatusNotFound, "article not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return s.readers.open(view.Article, s.newReader), true
}

func pathIndex(w http.ResponseWriter, r *http.Request, limit int, what string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 || n >= limit {
		writeError(w, http.StatusNotFound, what+" not found")
		return 0, false
	}
	return n, true
}

func readingView(rd *reading.Reader) ReadingView {
	v := ReadingView{
		ArticleID: rd.Article().ID,
		Rate:      rd.Rate(),
		RateLabel: reading.RateLabel(rd.Rate()),
		Shown:     rd.ShownTranslations(),
		Clips:     rd.Clips(),
	}
	if i, ok := rd.Recording(); ok {
		v.Recording = &i
	}
	return v
}

func (s *Server) getReading(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, readingView(rd))
}

func (s *Server) setReadingRate(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}
	var req RateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rate, err := reading.ParseRate(req.Rate)
	if err == nil {
		err = rd.SetRate(rate)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, readingView(rd))
}

func (s *Server) toggleTranslation(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}
	i, ok := pathIndex(w, r, len(rd.Article().Paragraphs), "paragraph")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TranslationResponse{Index: i, Shown: rd.ToggleTranslation(i)})
}

// readAloud plays the article, or one paragraph, at the reading speed
func (s *Server) readAloud(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}
	if s.Speaker == nil {
		writeError(w, http.StatusServiceUnavailable, "speech is not available")
		return
	}
	var req ReadAloudRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Paragraph == nil {
		rd.SpeakAll()
	} else {
		i := *req.Paragraph
		if i < 0 || i >= len(rd.Article().Paragraphs) {
			writeError(w, http.StatusBadRequest, "paragraph out of range")
			return
		}
		rd.SpeakParagraph(i)
	}
	writeJSON(w, http.StatusAccepted, SpeechResponse{Rate: rd.Rate()})
}

// speakKeyword says one keyword through the rate cycler
func (s *Server) speakKeyword(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}
	if s.Speaker == nil {
		writeError(w, http.StatusServiceUnavailable, "speech is not available")
		return
	}
	i, ok := pathIndex(w, r, len(rd.Article().Keywords), "keyword")
	if !ok {
		return
	}
	rate, _ := rd.SpeakKeyword(i)
	writeJSON(w, http.StatusAccepted, SpeechResponse{Rate: rate})
}

// stopReading silences speech and playback and ends any recording
func (s *Server) stopReading(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}
	rd.Stop()
	rd.StopShadowing()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) shadowParagraph(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}
	if s.Capture == nil {
		writeError(w, http.StatusServiceUnavailable, "recording is not available")
		return
	}
	i, ok := pathIndex(w, r, len(rd.Article().Paragraphs), "paragraph")
	if !ok {
		return
	}

	results, err := s.readers.shadow(rd, i)
	switch {
	case errors.Is(err, shadowing.ErrBusy):
		writeError(w, http.StatusConflict, "a recording is already in progress")
		return
	case errors.Is(err, shadowing.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "microphone permission denied")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	articleID := rd.Article().ID
	go func() {
		res := <-results
		if res.Err != nil {
			s.Logger.Warn("shadowing failed", slog.String("article", articleID), slog.Int("index", i), slog.Any("error", res.Err))
			return
		}
		s.Logger.Debug("shadowing saved", slog.String("article", articleID), slog.String("path", res.Clip.Path))
	}()

	limit := s.opts.MaxRecording
	if limit <= 0 {
		limit = shadowing.DefaultMaxDuration
	}
	writeJSON(w, http.StatusAccepted, ShadowResponse{Index: i, MaxSeconds: limit.Seconds()})
}

// playRecording plays back the learner's last take of a paragraph
func (s *Server) playRecording(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.lookupReader(w, r)
	if !ok {
		return
	}
	i, ok := pathIndex(w, r, len(rd.Article().Paragraphs), "paragraph")
	if !ok {
		return
	}

	_, err := rd.PlayRecording(context.Background(), i)
	switch {
	case errors.Is(err, reading.ErrNoRecorder), errors.Is(err, shadowing.ErrNoPlayer):
		writeError(w, http.StatusServiceUnavailable, "playback is not available")
	case errors.Is(err, shadowing.ErrNoClip):
		writeError(w, http.StatusNotFound, "no recording for this paragraph")
	case errors.Is(err, shadowing.ErrBusy):
		writeError(w, http.StatusConflict, "a recording is in progress")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}
