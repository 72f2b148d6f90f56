package flashcard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/progress"
	"github.com/pbaille/ace/internal/speech"
)

type captureEngine struct {
	mu   sync.Mutex
	said []speech.Utterance
}

func (e *captureEngine) Say(_ context.Context, u speech.Utterance) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.said = append(e.said, u)
	return nil
}

func testWords() []domain.Word {
	return []domain.Word{
		{ID: "a", Text: "alpha", Examples: []domain.Example{{EN: "Alpha comes first.", CN: "阿尔法在前。"}}},
		{ID: "b", Text: "beta"},
		{ID: "c", Text: "gamma"},
	}
}

func TestDeck_NavigationClamps(t *testing.T) {
	d := NewDeck(testWords(), nil, nil)

	assert.False(t, d.HasPrev())
	assert.True(t, d.HasNext())
	assert.False(t, d.Prev())

	assert.True(t, d.Next())
	assert.True(t, d.Next())
	assert.False(t, d.HasNext())
	assert.False(t, d.Next())
	assert.Equal(t, 2, d.Index())

	assert.True(t, d.Prev())
	w, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, "beta", w.Text)

	assert.False(t, d.Open(5))
	assert.False(t, d.Open(-1))
	assert.Equal(t, 1, d.Index())
}

func TestDeck_Empty(t *testing.T) {
	d := NewDeck(nil, nil, nil)
	_, ok := d.Current()
	assert.False(t, ok)
	assert.False(t, d.HasNext())
	assert.False(t, d.ToggleReinforce())
	assert.NoError(t, <-d.Listen())
}

func TestDeck_ToggleReinforce(t *testing.T) {
	store := progress.NewStore(progress.NewMemoryPort(), nil)
	d := NewDeck(testWords(), store, nil)

	assert.False(t, d.Reinforced())
	assert.True(t, d.ToggleReinforce())
	assert.True(t, d.Reinforced())
	assert.Equal(t, []string{"a"}, store.List(progress.Reinforced))

	assert.False(t, d.ToggleReinforce())
	assert.Empty(t, store.List(progress.Reinforced))
}

func TestDeck_OpenSpeaksAtCardRate(t *testing.T) {
	engine := &captureEngine{}
	cycler := speech.NewCycler(0.6, 1.0)
	speaker := speech.NewSpeaker(engine, cycler, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	d := NewDeck(testWords(), nil, speaker)

	d.Open(1)
	require.NoError(t, <-d.Listen())

	said := func() []speech.Utterance {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return append([]speech.Utterance(nil), engine.said...)
	}
	assert.Eventually(t, func() bool { return len(said()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []speech.Utterance{
		{Text: "beta", Rate: CardRate, Lang: "en-US"},
		{Text: "beta", Rate: 0.6, Lang: "en-US"},
	}, said())
	assert.Equal(t, 1.0, cycler.Current(), "opening a card leaves the cycler alone")
}

func TestDeck_SpeakExample(t *testing.T) {
	engine := &captureEngine{}
	cycler := speech.NewCycler(0.6, 1.0)
	speaker := speech.NewSpeaker(engine, cycler, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	d := NewDeck(testWords(), nil, speaker)

	done, err := d.SpeakExample(0)
	require.NoError(t, err)
	require.NoError(t, <-done)

	engine.mu.Lock()
	last := engine.said[len(engine.said)-1]
	engine.mu.Unlock()
	assert.Equal(t, speech.Utterance{Text: "Alpha comes first.", Rate: 0.6, Lang: "en-US"}, last)
	assert.Equal(t, 1.0, cycler.Current(), "examples go through the cycler")

	_, err = d.SpeakExample(1)
	assert.ErrorIs(t, err, ErrNoSuchExample)

	d.Next()
	_, err = d.SpeakExample(0)
	assert.ErrorIs(t, err, ErrNoSuchExample, "beta has no examples")
}
