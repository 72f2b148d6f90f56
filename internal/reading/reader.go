// Package reading drives the article reader: translation reveal,
// read-aloud at a chosen speed, and per-paragraph shadowing.
package reading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/shadowing"
	"github.com/pbaille/ace/internal/speech"
)

// Reading speeds offered by the reader.
const (
	RateSlow   = 0.6
	RateNormal = 1.0
	RateFast   = 1.4
)

// Rates lists the accepted reading speeds, slowest first.
var Rates = []float64{RateSlow, RateNormal, RateFast}

var (
	ErrInvalidRate     = errors.New("reading: unsupported rate")
	ErrNoSuchParagraph = errors.New("reading: paragraph out of range")
	ErrNoSuchKeyword   = errors.New("reading: keyword out of range")
	ErrNoRecorder      = errors.New("reading: no recorder attached")
	ErrNoSpeaker       = errors.New("reading: no speaker attached")
)

// RateLabel names a reading speed for display.
func RateLabel(rate float64) string {
	switch rate {
	case RateSlow:
		return "Slow"
	case RateNormal:
		return "Normal"
	case RateFast:
		return "Fast"
	}
	return fmt.Sprintf("%.1fx", rate)
}

// ParseRate accepts a label (slow, normal, fast) or one of Rates.
func ParseRate(s string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slow", "0.6":
		return RateSlow, nil
	case "normal", "1", "1.0":
		return RateNormal, nil
	case "fast", "1.4":
		return RateFast, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRate, s)
}

// Reader holds the view state of one article.
type Reader struct {
	article  domain.Article
	speaker  *speech.Speaker
	recorder *shadowing.Recorder

	mu         sync.Mutex
	shown      map[int]bool
	rate       float64
	stopReplay context.CancelFunc
}

// NewReader opens article. speaker and recorder may be nil.
func NewReader(article domain.Article, speaker *speech.Speaker, recorder *shadowing.Recorder) *Reader {
	return &Reader{
		article:  article,
		speaker:  speaker,
		recorder: recorder,
		shown:    make(map[int]bool),
		rate:     RateNormal,
	}
}

// Article returns the article being read.
func (r *Reader) Article() domain.Article { return r.article }

// ToggleTranslation flips the visibility of paragraph i's translation and
// returns the new state.
func (r *Reader) ToggleTranslation(i int) bool {
	if !r.valid(i) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown[i] = !r.shown[i]
	return r.shown[i]
}

// TranslationShown reports whether paragraph i's translation is visible.
func (r *Reader) TranslationShown(i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shown[i]
}

// ShownTranslations lists the paragraphs whose translation is visible.
func (r *Reader) ShownTranslations() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []int{}
	for i := range r.article.Paragraphs {
		if r.shown[i] {
			out = append(out, i)
		}
	}
	return out
}

// Rate returns the current reading speed.
func (r *Reader) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

// SetRate changes the reading speed. Only Rates are accepted.
func (r *Reader) SetRate(rate float64) error {
	for _, ok := range Rates {
		if rate == ok {
			r.mu.Lock()
			r.rate = rate
			r.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
}

// FullText is every paragraph's source text joined by a single space.
func (r *Reader) FullText() string {
	parts := make([]string, 0, len(r.article.Paragraphs))
	for _, p := range r.article.Paragraphs {
		parts = append(parts, p.EN)
	}
	return strings.Join(parts, " ")
}

// SpeakAll reads the whole article at the reading speed.
func (r *Reader) SpeakAll() <-chan error {
	_, done := r.say(r.FullText(), speech.WithRate(r.Rate()))
	return done
}

// SpeakParagraph reads paragraph i at the reading speed.
func (r *Reader) SpeakParagraph(i int) <-chan error {
	if !r.valid(i) {
		return failed(fmt.Errorf("%w: %d", ErrNoSuchParagraph, i))
	}
	_, done := r.say(r.article.Paragraphs[i].EN, speech.WithRate(r.Rate()))
	return done
}

// SpeakKeyword reads keyword i through the rate cycler and reports the
// rate it plays at.
func (r *Reader) SpeakKeyword(i int) (float64, <-chan error) {
	if i < 0 || i >= len(r.article.Keywords) {
		return 0, failed(fmt.Errorf("%w: %d", ErrNoSuchKeyword, i))
	}
	return r.say(r.article.Keywords[i].Text)
}

// Stop silences speech and any clip being played back.
func (r *Reader) Stop() {
	if r.speaker != nil {
		r.speaker.Stop()
	}
	r.mu.Lock()
	if r.stopReplay != nil {
		r.stopReplay()
		r.stopReplay = nil
	}
	r.mu.Unlock()
}

// Shadow starts recording the learner repeating paragraph i. Playback is
// stopped first so the microphone does not pick it up.
func (r *Reader) Shadow(ctx context.Context, i int) (<-chan shadowing.Result, error) {
	if !r.valid(i) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchParagraph, i)
	}
	if r.recorder == nil {
		return nil, ErrNoRecorder
	}
	r.Stop()
	return r.recorder.Start(ctx, i)
}

// StopShadowing ends the recording in progress, if any.
func (r *Reader) StopShadowing() {
	if r.recorder != nil {
		r.recorder.Stop()
	}
}

// Recording reports the paragraph being recorded, if any.
func (r *Reader) Recording() (int, bool) {
	if r.recorder == nil {
		return 0, false
	}
	return r.recorder.Active()
}

// Clips returns the learner's recordings, one per paragraph at most.
func (r *Reader) Clips() []shadowing.Clip {
	if r.recorder == nil {
		return []shadowing.Clip{}
	}
	return r.recorder.Clips()
}

// PlayRecording plays back the learner's last recording of paragraph i.
// Speech is stopped first; Stop ends the playback.
func (r *Reader) PlayRecording(ctx context.Context, i int) (<-chan error, error) {
	if !r.valid(i) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchParagraph, i)
	}
	if r.recorder == nil {
		return nil, ErrNoRecorder
	}
	r.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done, err := r.recorder.Play(ctx, i)
	if err != nil {
		cancel()
		return nil, err
	}
	r.mu.Lock()
	r.stopReplay = cancel
	r.mu.Unlock()

	out := make(chan error, 1)
	go func() {
		err := <-done
		cancel()
		out <- err
	}()
	return out, nil
}

func (r *Reader) valid(i int) bool {
	return i >= 0 && i < len(r.article.Paragraphs)
}

func (r *Reader) say(text string, opts ...speech.Option) (float64, <-chan error) {
	if r.speaker == nil {
		return 0, failed(ErrNoSpeaker)
	}
	return r.speaker.Speak(text, opts...)
}

func failed(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}
