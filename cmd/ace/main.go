package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/ace/internal/app"
	"github.com/pbaille/ace/internal/catalog"
	"github.com/pbaille/ace/internal/config"
	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/progress"
	"github.com/pbaille/ace/internal/shadowing"
	"github.com/pbaille/ace/internal/speech"
	"github.com/pbaille/ace/internal/store"
)

var (
	configPath string
	dbPath     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ace",
		Short:         "Vocabulary, dictation and reading trainer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./ace.yaml or $ACE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default ~/.ace/ace.db)")

	rootCmd.AddCommand(groupsCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(wordsCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(cardsCmd())
	rootCmd.AddCommand(starCmd())
	rootCmd.AddCommand(missedCmd())
	rootCmd.AddCommand(dictationCmd())
	rootCmd.AddCommand(articlesCmd())
	rootCmd.AddCommand(readCmd())
	rootCmd.AddCommand(shadowCmd())
	rootCmd.AddCommand(sayCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is what every command works on
type env struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *store.Store
	catalog  *catalog.Catalog
	progress *progress.Store
}

func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DB.Path = dbPath
	}

	logger := app.NewLogger(cfg.Log)

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	s, err := store.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:      cfg,
		log:      logger,
		store:    s,
		catalog:  cat,
		progress: progress.NewStore(s, logger),
	}, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return cat, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// library is the catalog plus imported articles
func (e *env) library() (*catalog.Catalog, error) {
	stored, err := e.store.ListArticles("")
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return e.catalog, nil
	}
	extra := make([]domain.Article, len(stored))
	for i, a := range stored {
		extra[i] = a.Article
	}
	return e.catalog.WithArticles(extra...), nil
}

// speaker uses the configured TTS command, or stays silent if it is not
// installed
func (e *env) speaker() *speech.Speaker {
	var engine speech.Engine = speech.NopEngine{}
	if _, err := exec.LookPath(e.cfg.Speech.Command); err == nil {
		engine = speech.NewExecEngine(e.cfg.Speech.Command)
	} else {
		e.log.Warn("speech command not found, running silent", slog.String("command", e.cfg.Speech.Command))
	}
	return speech.NewSpeaker(engine, speech.NewCycler(e.cfg.Speech.Rates...), e.cfg.Speech.Lang, e.log)
}

func (e *env) recorder() *shadowing.Recorder {
	device := shadowing.NewExecDevice(e.cfg.Shadowing.Command, e.cfg.Shadowing.Dir)
	var opts []shadowing.Option
	if p := e.player(); p != nil {
		opts = append(opts, shadowing.WithPlayer(p))
	}
	return shadowing.NewRecorder(device, e.cfg.Shadowing.MaxDuration, e.log, opts...)
}

// capture returns the recording device, or nil if its command is not installed
func (e *env) capture() shadowing.Device {
	if _, err := exec.LookPath(e.cfg.Shadowing.Command); err != nil {
		e.log.Warn("recording command not found, shadowing disabled", slog.String("command", e.cfg.Shadowing.Command))
		return nil
	}
	return shadowing.NewExecDevice(e.cfg.Shadowing.Command, e.cfg.Shadowing.Dir)
}

// player returns the configured clip player, or nil if it is not installed
func (e *env) player() shadowing.Player {
	if _, err := exec.LookPath(e.cfg.Shadowing.Player); err != nil {
		e.log.Warn("player command not found, playback disabled", slog.String("command", e.cfg.Shadowing.Player))
		return nil
	}
	return shadowing.NewExecPlayer(e.cfg.Shadowing.Player)
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s not found: %s", kind, id)
	}
	return err
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
