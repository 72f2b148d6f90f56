package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/ace/internal/catalog"
	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/flashcard"
	"github.com/pbaille/ace/internal/progress"
	"github.com/pbaille/ace/internal/speech"
)

func groupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List word groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			for _, g := range e.catalog.Groups {
				lock := ""
				if g.Locked {
					lock = "  (locked)"
				}
				fmt.Fprintf(out, "%-6s %-20s %2d words%s\n", g.ID, g.Title, len(g.Words), lock)
			}
			return nil
		},
	}
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List word categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			for _, name := range e.catalog.Categories {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, catalog.CategoryTag(name))
			}
			return nil
		},
	}
}

// selectionFlags binds the mutually exclusive word-list filters
type selectionFlags struct {
	group    string
	category string
	set      string
}

func (f *selectionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.group, "group", "g", "", "words of a group, in group order")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "words in a category (display name or tag)")
	cmd.Flags().StringVarP(&f.set, "set", "s", "", "words in a progress set (missed, reinforced)")
	cmd.MarkFlagsMutuallyExclusive("group", "category", "set")
}

func (f *selectionFlags) selection(defaultGroup string) (catalog.Selection, error) {
	switch {
	case f.group != "":
		return catalog.ByGroup(f.group), nil
	case f.category != "":
		return catalog.ByCategory(f.category), nil
	case f.set != "":
		set, err := progress.ParseSet(f.set)
		if err != nil {
			return catalog.Selection{}, err
		}
		return catalog.BySet(set), nil
	}
	return catalog.ByGroup(defaultGroup), nil
}

func firstGroup(c *catalog.Catalog) string {
	if len(c.Groups) == 0 {
		return ""
	}
	return c.Groups[0].ID
}

func wordsCmd() *cobra.Command {
	var flags selectionFlags

	cmd := &cobra.Command{
		Use:   "words",
		Short: "List words (first group by default)",
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
			printWordList(cmd, e, words)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func printWordList(cmd *cobra.Command, e *env, words []domain.Word) {
	out := cmd.OutOrStdout()
	for _, w := range words {
		mark := " "
		if e.progress.Contains(progress.Reinforced, w.ID) {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %-5s %-16s %s\n", mark, w.ID, w.Text, truncate(w.Chinese, 40))
	}
}

func showCmd() *cobra.Command {
	var speak bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a word card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			w, err := e.catalog.Word(args[0])
			if err != nil {
				return notFound("word", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s  %s\n", w.Text, w.Phonetic, w.POS)
			fmt.Fprintf(out, "%s\n%s\n", w.Definition, w.Chinese)
			if len(w.Categories) > 0 {
				fmt.Fprintf(out, "Tags: %s\n", strings.Join(w.Categories, ", "))
			}
			if len(w.Examples) > 0 {
				fmt.Fprintln(out, "\nExamples:")
				for _, ex := range w.Examples {
					fmt.Fprintf(out, "  %s\n  %s\n", ex.EN, ex.CN)
				}
			}
			if e.progress.Contains(progress.Reinforced, w.ID) {
				fmt.Fprintln(out, "\n(starred)")
			}

			if speak {
				return e.speaker().SpeakAndWait(w.Text, speech.WithRate(flashcard.CardRate))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&speak, "speak", false, "read the word aloud")
	return cmd
}

func starCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "star [id]",
		Short: "Toggle a word in the reinforced set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			w, err := e.catalog.Word(args[0])
			if err != nil {
				return notFound("word", args[0], err)
			}

			if e.progress.Toggle(progress.Reinforced, w.ID) {
				fmt.Fprintf(cmd.OutOrStdout(), "Starred %s\n", w.Text)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Unstarred %s\n", w.Text)
			}
			return nil
		},
	}
}

func missedCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "missed",
		Short: "List words missed in dictation",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if clear {
				e.progress.Clear(progress.Missed)
				fmt.Fprintln(cmd.OutOrStdout(), "Cleared missed words.")
				return nil
			}

			words := e.catalog.Filter(catalog.BySet(progress.Missed), e.progress)
			if len(words) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No missed words. Use 'ace dictation' to practice.")
				return nil
			}
			printWordList(cmd, e, words)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "empty the missed set")
	return cmd
}
