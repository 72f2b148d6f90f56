package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"io"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/reading"
	"github.com/pbaille/ace/internal/shadowing"
	"github.com/pbaille/ace/internal/speech"
)

func articlesCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "articles",
		Short: "List reading articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			lib, err := e.library()
			if err != nil {
				return err
			}

			articles := lib.Articles
			if category != "" {
				c := domain.ArticleCategory(category)
				if !c.Valid() {
					return fmt.Errorf("unknown category %q (want one of %v)", category, domain.ArticleCategories)
				}
				articles = lib.ArticlesByCategory(c)
			}

			if len(articles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No articles. Use 'ace import' to add one.")
				return nil
			}
			for _, a := range articles {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-9s %s\n", truncate(a.ID, 10), a.Category, truncate(a.Title, 60))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Tech, Business, Culture or Society")
	return cmd
}

func findArticle(e *env, id string) (domain.Article, error) {
	lib, err := e.library()
	if err != nil {
		return domain.Article{}, err
	}
	if a, err := lib.Article(id); err == nil {
		return a, nil
	}
	// imported ids are long; accept a prefix
	for _, a := range lib.Articles {
		if len(id) >= 4 && len(a.ID) > len(id) && a.ID[:len(id)] == id {
			return a, nil
		}
	}
	return domain.Article{}, fmt.Errorf("article not found: %s", id)
}

func readCmd() *cobra.Command {
	var (
		translate bool
		speak     bool
		keywords  bool
		rate      string
	)

	cmd := &cobra.Command{
		Use:   "read [article-id]",
		Short: "Read an article, optionally aloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			article, err := findArticle(e, args[0])
			if err != nil {
				return err
			}

			var sp *speech.Speaker
			if speak || keywords {
				sp = e.speaker()
			}
			r := reading.NewReader(article, sp, nil)
			if rate != "" {
				v, err := reading.ParseRate(rate)
				if err != nil {
					return err
				}
				if err := r.SetRate(v); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			width := termWidth()
			fmt.Fprintf(out, "%s\n[%s]\n\n", article.Title, article.Category)
			for i, p := range article.Paragraphs {
				fmt.Fprintf(out, "%d. %s\n", i+1, wrap(p.EN, width-3, "   "))
				if translate {
					r.ToggleTranslation(i)
				}
				if r.TranslationShown(i) && p.CN != "" {
					fmt.Fprintf(out, "   %s\n", p.CN)
				}
				fmt.Fprintln(out)
			}
			if len(article.Keywords) > 0 {
				fmt.Fprintln(out, "Keywords:")
				for _, k := range article.Keywords {
					fmt.Fprintf(out, "  %s  %s\n", k.Text, k.CN)
				}
			}

			if !speak && !keywords {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if speak {
				fmt.Fprintf(out, "\nReading aloud (%s)...\n", reading.RateLabel(r.Rate()))
				if err := waitSpeech(ctx, r, r.SpeakAll()); err != nil || ctx.Err() != nil {
					return err
				}
			}
			if keywords {
				return speakKeywords(ctx, out, r)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&translate, "translate", "t", false, "show translations")
	cmd.Flags().BoolVar(&speak, "speak", false, "read the full article aloud")
	cmd.Flags().BoolVarP(&keywords, "keywords", "k", false, "say each keyword, rotating playback rates")
	cmd.Flags().StringVarP(&rate, "rate", "r", "", "reading speed: slow, normal or fast")
	return cmd
}

// waitSpeech waits for playback to end, stopping it if ctx is canceled
// first. A stopped playback is not an error.
func waitSpeech(ctx context.Context, r *reading.Reader, done <-chan error) error {
	select {
	case err := <-done:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		r.Stop()
		<-done
		return nil
	}
}

func speakKeywords(ctx context.Context, out io.Writer, r *reading.Reader) error {
	kws := r.Article().Keywords
	if len(kws) == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nKeywords aloud:")
	for i, k := range kws {
		rate, done := r.SpeakKeyword(i)
		fmt.Fprintf(out, "  %s (%s)\n", k.Text, reading.RateLabel(rate))
		if err := waitSpeech(ctx, r, done); err != nil || ctx.Err() != nil {
			return err
		}
	}
	return nil
}

func shadowCmd() *cobra.Command {
	var (
		rate       string
		noPlayback bool
	)

	cmd := &cobra.Command{
		Use:   "shadow [article-id] [paragraph]",
		Short: "Listen to a paragraph, then record yourself repeating it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			article, err := findArticle(e, args[0])
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 || n > len(article.Paragraphs) {
				return fmt.Errorf("paragraph must be between 1 and %d", len(article.Paragraphs))
			}
			index := n - 1

			r := reading.NewReader(article, e.speaker(), e.recorder())
			if rate != "" {
				v, err := reading.ParseRate(rate)
				if err != nil {
					return err
				}
				if err := r.SetRate(v); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n", wrap(article.Paragraphs[index].EN, termWidth(), ""))
			if err := <-r.SpeakParagraph(index); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			results, err := r.Shadow(ctx, index)
			if errors.Is(err, shadowing.ErrPermissionDenied) {
				fmt.Fprintf(out, "warning: microphone unavailable: %v\n", err)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Recording, press Enter to stop (max %s)...\n", e.cfg.Shadowing.MaxDuration)
			go func() {
				bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				stop()
			}()

			res := <-results
			if res.Err != nil {
				return res.Err
			}
			fmt.Fprintf(out, "Saved %s (%.1fs)\n", res.Clip.Path, res.Clip.Duration.Seconds())
			if noPlayback {
				return nil
			}
			return playBack(cmd.Context(), out, r, index)
		},
	}

	cmd.Flags().StringVarP(&rate, "rate", "r", "", "playback speed: slow, normal or fast")
	cmd.Flags().BoolVar(&noPlayback, "no-playback", false, "do not play the recording back")
	return cmd
}

// playBack plays the learner's recording of paragraph index. A missing
// player only warns.
func playBack(parent context.Context, out io.Writer, r *reading.Reader, index int) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	done, err := r.PlayRecording(ctx, index)
	if errors.Is(err, shadowing.ErrNoPlayer) {
		fmt.Fprintln(out, "warning: no audio player configured, skipping playback")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Playing your voice...")
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func sayCmd() *cobra.Command {
	var rate float64

	cmd := &cobra.Command{
		Use:   "say [text]",
		Short: "Speak text, rotating playback rates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			var opts []speech.Option
			if cmd.Flags().Changed("rate") {
				if rate <= 0 {
					return fmt.Errorf("rate must be positive")
				}
				opts = append(opts, speech.WithRate(rate))
			}
			return e.speaker().SpeakAndWait(joinArgs(args), opts...)
		},
	}

	cmd.Flags().Float64VarP(&rate, "rate", "r", 1.0, "explicit rate, bypassing the rotation")
	return cmd
}
