// Package dictation runs the spell-from-audio drill over a word list.
package dictation

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/progress"
)

// DefaultAdvanceDelay is how long a correct answer stays on screen.
const DefaultAdvanceDelay = 1500 * time.Millisecond

// ErrEmptySequence is returned by Start for an empty word list.
var ErrEmptySequence = errors.New("dictation: empty word sequence")

// Feedback is the judgement on the current word.
type Feedback string

const (
	FeedbackNone      Feedback = "none"
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
)

// MissRecorder is the part of the progress store a session writes to.
type MissRecorder interface {
	Contains(set progress.Set, id string) bool
	Add(set progress.Set, id string)
}

// Scheduler runs f after d and returns a function that cancels it,
// reporting whether the call was stopped before firing.
type Scheduler func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Snapshot is a read-only view of a session. The answer is only exposed
// once the current word has been judged.
type Snapshot struct {
	Position  int      `json:"position"`
	Total     int      `json:"total"`
	WordID    string   `json:"word_id,omitempty"`
	Input     string   `json:"input"`
	Feedback  Feedback `json:"feedback"`
	HintShown bool     `json:"hint_shown"`
	Hint      string   `json:"hint,omitempty"`
	Answer    string   `json:"answer,omitempty"`
	Complete  bool     `json:"complete"`
	Stats     Stats    `json:"stats"`
}

// Stats counts judged answers.
type Stats struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// Option configures a Session.
type Option func(*Session)

// WithAdvanceDelay overrides DefaultAdvanceDelay.
func WithAdvanceDelay(d time.Duration) Option {
	return func(s *Session) { s.delay = d }
}

// WithScheduler replaces time.AfterFunc, mainly for tests.
func WithScheduler(sched Scheduler) Option {
	return func(s *Session) { s.schedule = sched }
}

// WithOnChange registers a callback receiving a snapshot after every
// transition. It is called without the session lock held.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Session) { s.onChange = fn }
}

// Session is the drill state machine. It is safe for concurrent use;
// the auto-advance timer fires on its own goroutine.
type Session struct {
	delay    time.Duration
	schedule Scheduler
	onChange func(Snapshot)
	missed   MissRecorder

	mu       sync.Mutex
	words    []domain.Word
	pos      int
	input    string
	feedback Feedback
	hint     bool
	complete bool
	stats    Stats

	// gen invalidates a pending auto-advance once the position moves.
	gen     int
	pending func() bool
}

// Start begins a drill over words. Misses are recorded into missed,
// which may be nil.
func Start(words []domain.Word, missed MissRecorder, opts ...Option) (*Session, error) {
	if len(words) == 0 {
		return nil, ErrEmptySequence
	}
	s := &Session{
		delay:    DefaultAdvanceDelay,
		schedule: afterFunc,
		missed:   missed,
		words:    append([]domain.Word(nil), words...),
		feedback: FeedbackNone,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Current returns the word being drilled, or false once complete.
func (s *Session) Current() (domain.Word, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return domain.Word{}, false
	}
	return s.words[s.pos], true
}

// SetInput replaces the input buffer while the word is unanswered.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	if s.complete || s.feedback != FeedbackNone {
		s.mu.Unlock()
		return
	}
	s.input = text
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Submit judges input against the current word. It returns the new
// feedback and true, or false if the word was already judged or the
// session is complete.
func (s *Session) Submit(input string) (Feedback, bool) {
	s.mu.Lock()
	if s.complete || s.feedback != FeedbackNone {
		fb := s.feedback
		s.mu.Unlock()
		return fb, false
	}

	word := s.words[s.pos]
	s.input = input
	if Matches(input, word.Text) {
		s.feedback = FeedbackCorrect
		s.stats.Correct++
		gen := s.gen
		s.pending = s.schedule(s.delay, func() { s.autoAdvance(gen) })
	} else {
		s.feedback = FeedbackIncorrect
		s.stats.Incorrect++
		if s.missed != nil && !s.missed.Contains(progress.Missed, word.ID) {
			s.missed.Add(progress.Missed, word.ID)
		}
	}
	fb := s.feedback
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return fb, true
}

// Advance moves to the next word, clearing input, feedback and hint,
// or completes the session after the last word. It also serves as skip.
func (s *Session) Advance() {
	s.mu.Lock()
	if s.complete {
		s.mu.Unlock()
		return
	}
	s.advanceLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) autoAdvance(gen int) {
	s.mu.Lock()
	if s.complete || gen != s.gen || s.feedback != FeedbackCorrect {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.advanceLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) advanceLocked() {
	s.gen++
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
	if s.pos < len(s.words)-1 {
		s.pos++
		s.input = ""
		s.feedback = FeedbackNone
		s.hint = false
		return
	}
	s.complete = true
}

// RevealHint shows the gloss for the current word until the next advance.
func (s *Session) RevealHint() {
	s.mu.Lock()
	if s.complete || s.hint {
		s.mu.Unlock()
		return
	}
	s.hint = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Complete reports whether every word has been passed.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels a pending auto-advance.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Position: s.pos,
		Total:    len(s.words),
		Input:    s.input,
		Feedback: s.feedback,
		Complete: s.complete,
		Stats:    s.stats,
	}
	if s.complete {
		return snap
	}
	w := s.words[s.pos]
	snap.WordID = w.ID
	snap.HintShown = s.hint
	if s.hint || s.feedback != FeedbackNone {
		snap.Hint = w.Chinese
	}
	if s.feedback != FeedbackNone {
		snap.Answer = w.Text
	}
	return snap
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

// Matches compares an answer case-insensitively, ignoring surrounding
// whitespace in the input.
func Matches(input, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(input), answer)
}
