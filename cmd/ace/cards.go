package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/ace/internal/flashcard"
)

func cardsCmd() *cobra.Command {
	var flags selectionFlags

	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Browse word cards with speech",
		Long: `Browse word cards one at a time. Each card is read aloud when opened.

Keys: n next, p previous, l listen again, e [N] hear example N,
s star/unstar, q quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			sel, err := flags.selection(firstGroup(e.catalog))
			if err != nil {
				return err
			}
			words := e.catalog.Filter(sel, e.progress)
			if len(words) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No words.")
				return nil
			}

			sp := e.speaker()
			defer sp.Stop()
			browseCards(cmd.InOrStdin(), cmd.OutOrStdout(), flashcard.NewDeck(words, e.progress, sp))
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func browseCards(in io.Reader, out io.Writer, deck *flashcard.Deck) {
	printCard := func() {
		w, _ := deck.Current()
		star := ""
		if deck.Reinforced() {
			star = " *"
		}
		fmt.Fprintf(out, "\n[%d/%d] %s  %s%s\n%s\n%s\n", deck.Index()+1, deck.Len(), w.Text, w.Phonetic, star, w.Definition, w.Chinese)
		for i, ex := range w.Examples {
			fmt.Fprintf(out, "  e%d. %s\n      %s\n", i+1, ex.EN, ex.CN)
		}
	}

	deck.Open(0)
	printCard()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if n, ok := exampleKey(line); ok {
			if _, err := deck.SpeakExample(n - 1); err != nil {
				fmt.Fprintf(out, "(no example %d)\n", n)
			}
			continue
		}
		switch line {
		case "n", "":
			if !deck.Next() {
				fmt.Fprintln(out, "(last card)")
				continue
			}
			printCard()
		case "p":
			if !deck.Prev() {
				fmt.Fprintln(out, "(first card)")
				continue
			}
			printCard()
		case "l":
			deck.Listen()
		case "s":
			if deck.ToggleReinforce() {
				fmt.Fprintln(out, "starred")
			} else {
				fmt.Fprintln(out, "unstarred")
			}
		case "q":
			return
		default:
			fmt.Fprintln(out, "keys: n p l e s q")
		}
	}
}

// exampleKey parses "e", "e2" or "e 2".
func exampleKey(line string) (int, bool) {
	rest, ok := strings.CutPrefix(line, "e")
	if !ok {
		return 0, false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return 1, true
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
