// Package shadowing records the learner repeating a passage.
package shadowing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// DefaultMaxDuration caps a single recording.
const DefaultMaxDuration = 8 * time.Second

var (
	// ErrBusy is returned when a recording is already in progress.
	ErrBusy = errors.New("shadowing: a recording is already in progress")
	// ErrPermissionDenied means the capture device refused access.
	ErrPermissionDenied = errors.New("shadowing: microphone permission denied")
	ErrNoClip           = errors.New("shadowing: no recording for this paragraph")
	ErrNoPlayer         = errors.New("shadowing: no player configured")
)

// Clip is a finished recording.
type Clip struct {
	Index    int           `json:"index"`
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
}

// Device starts audio capture from the default input.
type Device interface {
	Start(ctx context.Context) (Capture, error)
}

// Capture is an in-progress recording. Stop ends it, releases the device
// and returns the path of the captured audio.
type Capture interface {
	Stop() (path string, err error)
}

// Player plays a recorded clip back. Play blocks until playback ends or
// ctx is canceled.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Result is delivered once per recording.
type Result struct {
	Clip Clip
	Err  error
}

// Recorder allows one active recording at a time and keeps the last clip
// recorded for each paragraph index.
type Recorder struct {
	device Device
	player Player
	max    time.Duration
	log    *slog.Logger

	mu     sync.Mutex
	active *activeRecording
	clips  map[int]Clip
}

type activeRecording struct {
	index int
	stop  chan struct{}
	once  sync.Once
}

func (a *activeRecording) halt() {
	a.once.Do(func() { close(a.stop) })
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithPlayer enables Play.
func WithPlayer(p Player) Option {
	return func(r *Recorder) { r.player = p }
}

// NewRecorder creates a Recorder. A non-positive max uses DefaultMaxDuration.
func NewRecorder(device Device, max time.Duration, logger *slog.Logger, opts ...Option) *Recorder {
	if max <= 0 {
		max = DefaultMaxDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		device: device,
		max:    max,
		log:    logger,
		clips:  make(map[int]Clip),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins recording for paragraph index. The recording ends when Stop
// is called, ctx is done, or the duration cap elapses; the returned
// channel then receives one Result.
func (r *Recorder) Start(ctx context.Context, index int) (<-chan Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, ErrBusy
	}

	capture, err := r.device.Start(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			r.log.Warn("microphone unavailable", slog.Any("error", err))
		}
		return nil, fmt.Errorf("start capture: %w", err)
	}

	rec := &activeRecording{index: index, stop: make(chan struct{})}
	r.active = rec

	results := make(chan Result, 1)
	started := time.Now()
	go func() {
		timer := time.NewTimer(r.max)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-rec.stop:
		case <-ctx.Done():
		}

		path, err := capture.Stop()
		clip := Clip{Index: index, Path: path, Duration: time.Since(started)}

		r.mu.Lock()
		if err == nil {
			r.clips[index] = clip
		}
		r.active = nil
		r.mu.Unlock()

		if err != nil {
			r.log.Warn("stop capture", slog.Int("index", index), slog.Any("error", err))
			results <- Result{Err: fmt.Errorf("stop capture: %w", err)}
			return
		}
		results <- Result{Clip: clip}
	}()

	return results, nil
}

// Stop ends the active recording, if any.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		r.active.halt()
	}
}

// Active returns the paragraph index being recorded.
func (r *Recorder) Active() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return 0, false
	}
	return r.active.index, true
}

// Play plays back the last clip recorded for paragraph index. It fails
// immediately with ErrNoClip, ErrNoPlayer or, while recording, ErrBusy;
// otherwise the returned channel receives the playback result.
func (r *Recorder) Play(ctx context.Context, index int) (<-chan error, error) {
	r.mu.Lock()
	player := r.player
	clip, ok := r.clips[index]
	busy := r.active != nil
	r.mu.Unlock()

	switch {
	case player == nil:
		return nil, ErrNoPlayer
	case busy:
		return nil, ErrBusy
	case !ok:
		return nil, fmt.Errorf("%w: %d", ErrNoClip, index)
	}

	done := make(chan error, 1)
	go func() {
		err := player.Play(ctx, clip.Path)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.log.Warn("play clip", slog.String("path", clip.Path), slog.Any("error", err))
		}
		done <- err
	}()
	return done, nil
}

// Clips returns the recorded clips ordered by paragraph index.
func (r *Recorder) Clips() []Clip {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Clip, 0, len(r.clips))
	for _, c := range r.clips {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Clip) int { return a.Index - b.Index })
	return out
}
