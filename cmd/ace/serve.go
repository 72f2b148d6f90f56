package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pbaille/ace/internal/api"
	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/fetcher"
	"github.com/pbaille/ace/internal/importer"
	"github.com/pbaille/ace/internal/translator"
)

// newImporter builds the import pipeline. Without an API key articles
// are imported untranslated.
func newImporter(e *env) (*importer.Importer, error) {
	var tr importer.Translator
	t, err := translator.New(e.cfg.Translator.APIKey, e.cfg.Translator.Model)
	switch {
	case err == nil:
		tr = t
	case errors.Is(err, translator.ErrNoAPIKey):
		e.log.Info("translation disabled", slog.Any("reason", err))
	default:
		return nil, err
	}
	return importer.New(fetcher.New(nil), tr, e.store, e.log), nil
}

func importCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "import [url]",
		Short: "Import a web article for reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !fetcher.IsURL(args[0]) {
				return fmt.Errorf("not a URL: %s", args[0])
			}

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			c := domain.ArticleCategory(category)
			if !c.Valid() {
				return fmt.Errorf("unknown category %q (want one of %v)", category, domain.ArticleCategories)
			}

			imp, err := newImporter(e)
			if err != nil {
				return err
			}
			if e.cfg.Translator.APIKey == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(translation skipped: ANTHROPIC_API_KEY not set)")
			}

			fmt.Fprint(cmd.OutOrStdout(), "Importing... ")
			stored, err := imp.Import(cmd.Context(), args[0], c)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "failed")
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "done")

			a := stored.Article
			fmt.Fprintf(cmd.OutOrStdout(), "Added article: %s\nTitle: %s\nParagraphs: %d, keywords: %d\n",
				a.ID[:8], truncate(a.Title, 70), len(a.Paragraphs), len(a.Keywords))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(importer.DefaultCategory), "Tech, Business, Culture or Society")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if cmd.Flags().Changed("addr") {
				e.cfg.Server.Addr = addr
			}

			imp, err := newImporter(e)
			if err != nil {
				return err
			}

			server := api.New(api.Deps{
				Catalog:  e.catalog,
				Progress: e.progress,
				Store:    e.store,
				Speaker:  e.speaker(),
				Importer: imp,
				Capture:  e.capture(),
				Player:   e.player(),
				Logger:   e.log,
			}, api.Options{
				Addr:            e.cfg.Server.Addr,
				AllowedOrigins:  e.cfg.Server.AllowedOrigins,
				AdvanceDelay:    e.cfg.Dictation.AdvanceDelay,
				SessionTTL:      e.cfg.Dictation.SessionTTL,
				MaxRecording:    e.cfg.Shadowing.MaxDuration,
				ShutdownTimeout: e.cfg.Server.ShutdownTimeout,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Starting server on %s\n", e.cfg.Server.Addr)
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default from config)")
	return cmd
}
