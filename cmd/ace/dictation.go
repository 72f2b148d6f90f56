package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/ace/internal/catalog"
	"github.com/pbaille/ace/internal/dictation"
	"github.com/pbaille/ace/internal/progress"
	"github.com/pbaille/ace/internal/speech"
)

func dictationCmd() *cobra.Command {
	var (
		group  string
		missed bool
	)

	cmd := &cobra.Command{
		Use:   "dictation",
		Short: "Spell words from their pronunciation",
		Long: `Each word is read aloud; type its spelling and press Enter.

  ?      show the Chinese hint
  !      hear the word again
  :skip  move on without answering
  :q     quit

Wrong answers are added to the missed set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			sel := catalog.ByGroup(group)
			if missed {
				sel = catalog.BySet(progress.Missed)
			} else if group == "" {
				sel = catalog.ByGroup(firstGroup(e.catalog))
			}

			words := e.catalog.Filter(sel, e.progress)
			if len(words) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No words to practice.")
				return nil
			}

			sp := e.speaker()
			defer sp.Stop()

			changes := make(chan dictation.Snapshot, 16)
			sess, err := dictation.Start(words, e.progress,
				dictation.WithAdvanceDelay(e.cfg.Dictation.AdvanceDelay),
				dictation.WithOnChange(func(s dictation.Snapshot) {
					select {
					case changes <- s:
					default:
					}
				}),
			)
			if err != nil {
				return err
			}
			defer sess.Close()

			runDrill(cmd.InOrStdin(), cmd.OutOrStdout(), sess, changes, sp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "", "group to practice (default: first group)")
	cmd.Flags().BoolVar(&missed, "missed", false, "practice previously missed words")
	cmd.MarkFlagsMutuallyExclusive("group", "missed")
	return cmd
}

// runDrill drives a session from line input. changes receives the
// session's snapshots; speaker may be nil.
func runDrill(in io.Reader, out io.Writer, sess *dictation.Session, changes <-chan dictation.Snapshot, speaker *speech.Speaker) dictation.Stats {
	say := func() {
		if w, ok := sess.Current(); ok && speaker != nil {
			_, _ = speaker.Speak(w.Text)
		}
	}

	scanner := bufio.NewScanner(in)
	prompted := -1
	for !sess.Complete() {
		snap := sess.Snapshot()
		if snap.Position != prompted {
			prompted = snap.Position
			fmt.Fprintf(out, "\n[%d/%d] listen and type the word\n", snap.Position+1, snap.Total)
			say()
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		switch strings.TrimSpace(line) {
		case ":q":
			return sess.Snapshot().Stats
		case ":skip":
			sess.Advance()
			continue
		case "?":
			sess.RevealHint()
			fmt.Fprintf(out, "hint: %s\n", sess.Snapshot().Hint)
			continue
		case "!":
			say()
			continue
		}

		fb, ok := sess.Submit(line)
		if !ok {
			continue
		}
		snap = sess.Snapshot()
		if fb == dictation.FeedbackCorrect {
			fmt.Fprintf(out, "✓ %s  %s\n", snap.Answer, snap.Hint)
			waitForAdvance(sess, changes, snap.Position)
			continue
		}

		fmt.Fprintf(out, "✗ %s  %s  (press Enter)\n", snap.Answer, snap.Hint)
		if !scanner.Scan() {
			break
		}
		sess.Advance()
	}

	stats := sess.Snapshot().Stats
	fmt.Fprintf(out, "\nDone: %d correct, %d incorrect\n", stats.Correct, stats.Incorrect)
	return stats
}

// waitForAdvance blocks until the auto-advance moves the session off
// position from. changes only wakes the loop early; dropped snapshots
// are covered by polling.
func waitForAdvance(sess *dictation.Session, changes <-chan dictation.Snapshot, from int) {
	for {
		snap := sess.Snapshot()
		if snap.Complete || snap.Position != from {
			return
		}
		select {
		case <-changes:
		case <-time.After(50 * time.Millisecond):
		}
	}
}
