// Package flashcard browses a filtered word list one card at a time.
package flashcard

import (
	"errors"
	"fmt"

	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/progress"
	"github.com/pbaille/ace/internal/speech"
)

// CardRate is the fixed rate a card is read at when opened.
const CardRate = 0.9

// ErrNoSuchExample is returned for an example index the card does not have.
var ErrNoSuchExample = errors.New("flashcard: no such example")

// Toggler is the part of the progress store the deck uses.
type Toggler interface {
	Toggle(set progress.Set, id string) bool
	Contains(set progress.Set, id string) bool
}

// Deck is a cursor over a word list. Navigation clamps at both ends.
type Deck struct {
	words   []domain.Word
	index   int
	sets    Toggler
	speaker *speech.Speaker
}

// NewDeck creates a deck positioned on the first card. speaker may be nil.
func NewDeck(words []domain.Word, sets Toggler, speaker *speech.Speaker) *Deck {
	return &Deck{
		words:   append([]domain.Word(nil), words...),
		sets:    sets,
		speaker: speaker,
	}
}

// Len returns the number of cards.
func (d *Deck) Len() int { return len(d.words) }

// Index returns the current position.
func (d *Deck) Index() int { return d.index }

// Open jumps to card i and reads it aloud. Out-of-range indexes are ignored.
func (d *Deck) Open(i int) bool {
	if i < 0 || i >= len(d.words) {
		return false
	}
	d.index = i
	d.announce()
	return true
}

// Current returns the card under the cursor.
func (d *Deck) Current() (domain.Word, bool) {
	if len(d.words) == 0 {
		return domain.Word{}, false
	}
	return d.words[d.index], true
}

func (d *Deck) HasPrev() bool { return d.index > 0 }

func (d *Deck) HasNext() bool { return d.index < len(d.words)-1 }

// Next moves forward one card if possible.
func (d *Deck) Next() bool {
	if !d.HasNext() {
		return false
	}
	return d.Open(d.index + 1)
}

// Prev moves back one card if possible.
func (d *Deck) Prev() bool {
	if !d.HasPrev() {
		return false
	}
	return d.Open(d.index - 1)
}

// Reinforced reports whether the current card is in the reinforced set.
func (d *Deck) Reinforced() bool {
	w, ok := d.Current()
	if !ok || d.sets == nil {
		return false
	}
	return d.sets.Contains(progress.Reinforced, w.ID)
}

// ToggleReinforce flips the current card's reinforced membership.
func (d *Deck) ToggleReinforce() bool {
	w, ok := d.Current()
	if !ok || d.sets == nil {
		return false
	}
	return d.sets.Toggle(progress.Reinforced, w.ID)
}

// Listen reads the current card through the rate cycler.
func (d *Deck) Listen() <-chan error {
	w, ok := d.Current()
	if !ok || d.speaker == nil {
		return closedNil()
	}
	_, done := d.speaker.Speak(w.Text)
	return done
}

// SpeakExample reads example sentence i of the current card through the
// rate cycler.
func (d *Deck) SpeakExample(i int) (<-chan error, error) {
	w, ok := d.Current()
	if !ok || i < 0 || i >= len(w.Examples) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchExample, i+1)
	}
	if d.speaker == nil {
		return closedNil(), nil
	}
	_, done := d.speaker.Speak(w.Examples[i].EN)
	return done, nil
}

func (d *Deck) announce() {
	if d.speaker == nil {
		return
	}
	w := d.words[d.index]
	d.speaker.Speak(w.Text, speech.WithRate(CardRate))
}

func closedNil() <-chan error {
	ch := make(chan error, 1)
	ch <- nil
	return ch
}
