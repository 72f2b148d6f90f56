package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/ace/internal/dictation"
	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/flashcard"
	"github.com/pbaille/ace/internal/progress"
)

func TestRunDrill(t *testing.T) {
	words := []domain.Word{
		{ID: "w1", Text: "abandon", Chinese: "放弃"},
		{ID: "w2", Text: "benefit", Chinese: "好处"},
		{ID: "w3", Text: "culture", Chinese: "文化"},
	}
	prog := progress.NewStore(progress.NewMemoryPort(), nil)

	changes := make(chan dictation.Snapshot, 16)
	sess, err := dictation.Start(words, prog,
		dictation.WithAdvanceDelay(10*time.Millisecond),
		dictation.WithOnChange(func(s dictation.Snapshot) {
			select {
			case changes <- s:
			default:
			}
		}),
	)
	require.NoError(t, err)
	defer sess.Close()

	// correct, wrong then Enter, hint then skip
	in := strings.NewReader("Abandon\nbenefitt\n\n?\n:skip\n")
	var out bytes.Buffer
	stats := runDrill(in, &out, sess, changes, nil)

	assert.Equal(t, dictation.Stats{Correct: 1, Incorrect: 1}, stats)
	assert.True(t, sess.Complete())
	assert.Equal(t, []string{"w2"}, prog.List(progress.Missed))
	assert.Contains(t, out.String(), "hint: 文化")
	assert.Contains(t, out.String(), "Done: 1 correct, 1 incorrect")
}

func TestRunDrill_Quit(t *testing.T) {
	sess, err := dictation.Start([]domain.Word{{ID: "w1", Text: "a"}}, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	runDrill(strings.NewReader(":q\n"), &out, sess, nil, nil)
	assert.False(t, sess.Complete())
}

func TestBrowseCards(t *testing.T) {
	words := []domain.Word{{ID: "w1", Text: "abandon"}, {ID: "w2", Text: "benefit"}}
	prog := progress.NewStore(progress.NewMemoryPort(), nil)
	deck := flashcard.NewDeck(words, prog, nil)

	var out bytes.Buffer
	browseCards(strings.NewReader("p\nn\ns\nn\nq\n"), &out, deck)

	assert.Contains(t, out.String(), "(first card)")
	assert.Contains(t, out.String(), "[2/2] benefit")
	assert.Contains(t, out.String(), "(last card)")
	assert.True(t, prog.Contains(progress.Reinforced, "w2"))
}

func TestBrowseCards_Examples(t *testing.T) {
	words := []domain.Word{{ID: "w1", Text: "abandon", Examples: []domain.Example{{EN: "They abandoned the car.", CN: "他们弃车了。"}}}}
	deck := flashcard.NewDeck(words, nil, nil)

	var out bytes.Buffer
	browseCards(strings.NewReader("e\ne 1\ne3\nq\n"), &out, deck)

	assert.Contains(t, out.String(), "e1. They abandoned the car.")
	assert.Equal(t, 1, strings.Count(out.String(), "(no example"))
	assert.Contains(t, out.String(), "(no example 3)")
}

func TestExampleKey(t *testing.T) {
	for in, want := range map[string]int{"e": 1, "e2": 2, "e 3": 3} {
		n, ok := exampleKey(in)
		require.True(t, ok, in)
		assert.Equal(t, want, n, in)
	}
	_, ok := exampleKey("ex")
	assert.False(t, ok)
	_, ok = exampleKey("n")
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "a b", truncate("a\nb", 10))
}
