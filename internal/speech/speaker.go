package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultLang is the language tag used when none is configured.
const DefaultLang = "en-US"

// Utterance is a single request to the engine.
type Utterance struct {
	Text string
	Rate float64
	Lang string
}

// Engine voices utterances. Say blocks until the text has been spoken or
// ctx is canceled.
type Engine interface {
	Say(ctx context.Context, u Utterance) error
}

// Option tweaks a single Speak call.
type Option func(*speakOptions)

type speakOptions struct {
	rate    float64
	hasRate bool
}

// WithRate speaks at rate, bypassing the cycler.
func WithRate(rate float64) Option {
	return func(o *speakOptions) {
		o.rate = rate
		o.hasRate = true
	}
}

// Speaker plays one utterance at a time. Starting a new one cancels the
// one in flight.
type Speaker struct {
	engine Engine
	cycler *Cycler
	lang   string
	log    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeaker creates a Speaker. A nil cycler uses DefaultRates.
func NewSpeaker(engine Engine, cycler *Cycler, lang string, logger *slog.Logger) *Speaker {
	if cycler == nil {
		cycler = NewCycler()
	}
	if lang == "" {
		lang = DefaultLang
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{engine: engine, cycler: cycler, lang: lang, log: logger}
}

// Cycler returns the rate cycler used when no explicit rate is given.
func (s *Speaker) Cycler() *Cycler {
	return s.cycler
}

// Speak cancels any current playback and starts voicing text. It returns the
// rate the utterance plays at and a channel that receives exactly one value
// when playback ends: nil on completion, context.Canceled if it was stopped,
// or the engine error.
func (s *Speaker) Speak(text string, opts ...Option) (float64, <-chan error) {
	var o speakOptions
	for _, opt := range opts {
		opt(&o)
	}

	rate := o.rate
	if !o.hasRate {
		rate = s.cycler.Next()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	u := Utterance{Text: text, Rate: rate, Lang: s.lang}
	done := make(chan error, 1)
	go func() {
		defer cancel()
		err := s.engine.Say(ctx, u)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("speech failed", slog.Float64("rate", rate), slog.Any("error", err))
		}
		done <- err
	}()
	return rate, done
}

// SpeakAndWait is Speak followed by waiting for completion.
func (s *Speaker) SpeakAndWait(text string, opts ...Option) error {
	_, done := s.Speak(text, opts...)
	return <-done
}

// Stop silences current playback immediately.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// NopEngine discards every utterance.
type NopEngine struct{}

func (NopEngine) Say(context.Context, Utterance) error { return nil }
