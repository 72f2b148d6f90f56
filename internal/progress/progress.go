// Package progress tracks the "missed" and "reinforced" word sets over a
// durable key/value port.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Set names a persisted word-id set.
type Set string

const (
	// Missed holds words answered incorrectly in dictation.
	Missed Set = "missed"
	// Reinforced holds words the user starred for review.
	Reinforced Set = "reinforced"
)

// ErrUnknownSet is returned by ParseSet for names other than Missed and Reinforced.
var ErrUnknownSet = errors.New("unknown progress set")

// Key returns the storage key the set is persisted under.
func (s Set) Key() string {
	switch s {
	case Missed:
		return "mistake-ids"
	case Reinforced:
		return "reinforce-ids"
	}
	return "progress-" + string(s)
}

// ParseSet validates a set name coming from a flag or URL.
func ParseSet(name string) (Set, error) {
	switch Set(name) {
	case Missed, Reinforced:
		return Set(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSet, name)
}

// Port is the durable key/value storage behind the store.
// Get reports ok=false for an absent key.
type Port interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// Store owns the progress sets. Sets are loaded lazily from the port on
// first use and every mutation writes the whole set back.
type Store struct {
	port Port
	log  *slog.Logger

	mu   sync.Mutex
	sets map[Set][]string
}

// NewStore creates a Store over port. A nil logger uses slog.Default().
func NewStore(port Port, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		port: port,
		log:  logger,
		sets: make(map[Set][]string),
	}
}

// Add inserts id into set if absent.
func (s *Store) Add(set Set, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.load(set)
	if !ok {
		s.dropped("add", set, id)
		return
	}
	if slices.Contains(ids, id) {
		return
	}
	s.sets[set] = append(ids, id)
	s.persist(set)
}

// Remove deletes id from set. Removing an absent id is a no-op.
func (s *Store) Remove(set Set, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.load(set)
	if !ok {
		s.dropped("remove", set, id)
		return
	}
	i := slices.Index(ids, id)
	if i < 0 {
		return
	}
	s.sets[set] = slices.Delete(slices.Clone(ids), i, i+1)
	s.persist(set)
}

// Toggle adds id if absent and removes it if present.
// It returns the resulting membership. When the set cannot be read the
// toggle is dropped and false is returned.
func (s *Store) Toggle(set Set, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.load(set)
	if !ok {
		s.dropped("toggle", set, id)
		return false
	}
	if i := slices.Index(ids, id); i >= 0 {
		s.sets[set] = slices.Delete(slices.Clone(ids), i, i+1)
		s.persist(set)
		return false
	}
	s.sets[set] = append(ids, id)
	s.persist(set)
	return true
}

// Contains reports whether id is in set.
func (s *Store) Contains(set Set, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, _ := s.load(set)
	return slices.Contains(ids, id)
}

// List returns a copy of the set in insertion order.
func (s *Store) List(set Set) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, _ := s.load(set)
	return slices.Clone(ids)
}

// Len returns the number of ids in set.
func (s *Store) Len(set Set) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, _ := s.load(set)
	return len(ids)
}

// Clear empties set and removes its key from storage.
func (s *Store) Clear(set Set) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[set] = []string{}
	if err := s.port.Delete(set.Key()); err != nil {
		s.log.Warn("clear progress set", slog.String("set", string(set)), slog.Any("error", err))
	}
}

// Reload drops cached sets so the next call reads storage again.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = make(map[Set][]string)
}

// load returns the cached set, reading it from the port on first access.
// A storage fault reads as an empty set with ok=false and is not cached, so
// the next access retries and mutations never overwrite unread data.
// Malformed payloads read as empty and are cached.
func (s *Store) load(set Set) ([]string, bool) {
	if ids, ok := s.sets[set]; ok {
		return ids, true
	}

	ids := []string{}
	raw, found, err := s.port.Get(set.Key())
	switch {
	case err != nil:
		s.log.Warn("read progress set", slog.String("set", string(set)), slog.Any("error", err))
		return ids, false
	case found:
		decoded, err := decode(raw)
		if err != nil {
			s.log.Warn("malformed progress set",
				slog.String("set", string(set)),
				slog.String("key", set.Key()),
				slog.Any("error", err),
			)
			break
		}
		ids = decoded
	}

	s.sets[set] = ids
	return ids, true
}

func (s *Store) dropped(op string, set Set, id string) {
	s.log.Warn("progress set unavailable, change dropped",
		slog.String("op", op),
		slog.String("set", string(set)),
		slog.String("id", id),
	)
}

func (s *Store) persist(set Set) {
	data, err := json.Marshal(s.sets[set])
	if err != nil {
		s.log.Warn("encode progress set", slog.String("set", string(set)), slog.Any("error", err))
		return
	}
	if err := s.port.Set(set.Key(), string(data)); err != nil {
		s.log.Warn("write progress set", slog.String("set", string(set)), slog.Any("error", err))
	}
}

// decode parses a JSON array of strings, dropping duplicates.
func decode(raw string) ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		return nil, fmt.Errorf("expected array, got %q", raw)
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out, nil
}
