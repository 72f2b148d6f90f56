package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/ace/internal/dictation"
	"github.com/pbaille/ace/internal/domain"
)

// liveSession is a dictation drill plus the websocket listeners
// following it.
type liveSession struct {
	id      string
	session *dictation.Session
	words   []domain.Word

	// unix nanos of the last request or state change
	seen atomic.Int64
	now  func() time.Time

	mu   sync.Mutex
	subs map[chan dictation.Snapshot]struct{}
	done chan struct{}
	once sync.Once
}

func (l *liveSession) touch() {
	l.seen.Store(l.now().UnixNano())
}

func (l *liveSession) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, l.seen.Load()))
}

func (l *liveSession) subscribe() (<-chan dictation.Snapshot, func()) {
	ch := make(chan dictation.Snapshot, 8)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()
	return ch, func() {
		l.mu.Lock()
		delete(l.subs, ch)
		l.mu.Unlock()
	}
}

// publish fans a snapshot out to subscribers, dropping it for any that
// are not keeping up.
func (l *liveSession) publish(snap dictation.Snapshot) {
	l.touch()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (l *liveSession) close() {
	l.once.Do(func() {
		if l.session != nil {
			l.session.Close()
		}
		close(l.done)
	})
}

// Session lifetimes. A finished drill stays readable for a short grace
// period so clients can fetch its final stats.
const (
	DefaultSessionTTL = 30 * time.Minute
	completedGrace    = time.Minute
)

type sessionRegistry struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*liveSession
}

func newSessionRegistry(ttl time.Duration) *sessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessionRegistry{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*liveSession),
	}
}

// create registers a session built by start, which receives the publish
// hook to install as the session's change listener.
func (r *sessionRegistry) create(words []domain.Word, start func(onChange func(dictation.Snapshot)) (*dictation.Session, error)) (*liveSession, error) {
	live := &liveSession{
		id:    uuid.New().String(),
		words: words,
		subs:  make(map[chan dictation.Snapshot]struct{}),
		done:  make(chan struct{}),
		now:   r.now,
	}
	live.touch()
	sess, err := start(live.publish)
	if err != nil {
		return nil, err
	}
	live.session = sess
	r.sweep()

	r.mu.Lock()
	r.sessions[live.id] = live
	r.mu.Unlock()
	return live, nil
}

func (r *sessionRegistry) get(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.sessions[id]
	if ok {
		l.touch()
	}
	return l, ok
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// sweep drops completed drills past their grace period and drills idle
// longer than the ttl. It returns how many were removed.
func (r *sessionRegistry) sweep() int {
	now := r.now()

	r.mu.Lock()
	candidates := make([]*liveSession, 0, len(r.sessions))
	for _, l := range r.sessions {
		candidates = append(candidates, l)
	}
	r.mu.Unlock()

	removed := 0
	for _, l := range candidates {
		idle := l.idle(now)
		if idle > r.ttl || (idle > completedGrace && l.session.Complete()) {
			if r.remove(l.id) {
				removed++
			}
		}
	}
	return removed
}

// janitor sweeps on every tick until ctx is done.
func (r *sessionRegistry) janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.sweep()
		}
	}
}

func (r *sessionRegistry) remove(id string) bool {
	r.mu.Lock()
	l, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		l.close()
	}
	return ok
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*liveSession)
	r.mu.Unlock()
	for _, l := range all {
		l.close()
	}
}
