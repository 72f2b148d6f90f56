// Package api exposes the catalog, progress sets, dictation drills and
// speech over a local JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/pbaille/ace/internal/catalog"
	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/importer"
	"github.com/pbaille/ace/internal/progress"
	"github.com/pbaille/ace/internal/shadowing"
	"github.com/pbaille/ace/internal/speech"
)

// ArticleStore holds imported articles
type ArticleStore interface {
	GetArticle(id string) (*domain.StoredArticle, error)
	ListArticles(category domain.ArticleCategory) ([]domain.StoredArticle, error)
	DeleteArticle(id string) error
}

// Deps are the shared components the server works on. Store, Speaker,
// Importer, Capture and Player may be nil; the matching routes then
// report 503.
type Deps struct {
	Catalog  *catalog.Catalog
	Progress *progress.Store
	Store    ArticleStore
	Speaker  *speech.Speaker
	Importer *importer.Importer
	Capture  shadowing.Device
	Player   shadowing.Player
	Logger   *slog.Logger
}

// Options holds server settings
type Options struct {
	Addr            string
	AllowedOrigins  []string
	AdvanceDelay    time.Duration
	ShutdownTimeout time.Duration
	// SessionTTL evicts dictation drills left idle this long
	SessionTTL   time.Duration
	MaxRecording time.Duration
}

// Server handles HTTP requests for the study API
type Server struct {
	Deps
	opts     Options
	sessions *sessionRegistry
	readers  *readerRegistry
	upgrader websocket.Upgrader
}

// New creates a new API server
func New(deps Deps, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		Deps:     deps,
		opts:     opts,
		sessions: newSessionRegistry(opts.SessionTTL),
		readers:  newReaderRegistry(),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the routed handler wrapped with CORS
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Catalog
	mux.HandleFunc("GET /groups", s.listGroups)
	mux.HandleFunc("GET /categories", s.listCategories)
	mux.HandleFunc("GET /words", s.listWords)
	mux.HandleFunc("GET /words/{id}", s.getWord)

	// Articles
	mux.HandleFunc("GET /articles", s.listArticles)
	mux.HandleFunc("GET /articles/{id}", s.getArticle)
	mux.HandleFunc("POST /articles/import", s.importArticle)
	mux.HandleFunc("DELETE /articles/{id}", s.deleteArticle)

	// Reading
	mux.HandleFunc("GET /articles/{id}/reading", s.getReading)
	mux.HandleFunc("PUT /articles/{id}/reading/rate", s.setReadingRate)
	mux.HandleFunc("POST /articles/{id}/speak", s.readAloud)
	mux.HandleFunc("POST /articles/{id}/stop", s.stopReading)
	mux.HandleFunc("POST /articles/{id}/keywords/{n}/speak", s.speakKeyword)
	mux.HandleFunc("POST /articles/{id}/paragraphs/{n}/translation", s.toggleTranslation)
	mux.HandleFunc("POST /articles/{id}/paragraphs/{n}/shadow", s.shadowParagraph)
	mux.HandleFunc("POST /articles/{id}/paragraphs/{n}/playback", s.playRecording)

	// Progress sets
	mux.HandleFunc("POST /progress/reload", s.reloadProgress)
	mux.HandleFunc("GET /progress/{set}", s.listProgress)
	mux.HandleFunc("PUT /progress/{set}/{id}", s.addProgress)
	mux.HandleFunc("DELETE /progress/{set}/{id}", s.removeProgress)
	mux.HandleFunc("POST /progress/{set}/{id}/toggle", s.toggleProgress)
	mux.HandleFunc("DELETE /progress/{set}", s.clearProgress)

	// Dictation
	mux.HandleFunc("POST /dictation", s.startDictation)
	mux.HandleFunc("GET /dictation/{id}", s.getDictation)
	mux.HandleFunc("POST /dictation/{id}/input", s.dictationInput)
	mux.HandleFunc("POST /dictation/{id}/submit", s.dictationSubmit)
	mux.HandleFunc("POST /dictation/{id}/advance", s.dictationAdvance)
	mux.HandleFunc("POST /dictation/{id}/hint", s.dictationHint)
	mux.HandleFunc("POST /dictation/{id}/speak", s.dictationSpeak)
	mux.HandleFunc("DELETE /dictation/{id}", s.endDictation)
	mux.HandleFunc("GET /dictation/{id}/events", s.dictationEvents)

	// Speech
	mux.HandleFunc("POST /speech", s.speak)
	mux.HandleFunc("POST /speech/stop", s.stopSpeech)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sessions.janitor(sweepCtx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", slog.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.sessions.closeAll()
		s.readers.closeAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down server")
	s.sessions.closeAll()
	s.readers.closeAll()
	if s.Speaker != nil {
		s.Speaker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, "*") || slices.Contains(s.opts.AllowedOrigins, origin)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
