// Package importer turns a web page into a stored reading article.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/fetcher"
	"github.com/pbaille/ace/internal/translator"
)

// DefaultCategory is used when an import names no category.
const DefaultCategory = domain.ArticleSociety

const summaryLen = 160

type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

type Translator interface {
	Translate(ctx context.Context, title string, paragraphs []string) (*translator.Result, error)
}

type ArticleSaver interface {
	SaveArticle(article domain.Article, sourceURL string) (*domain.StoredArticle, error)
}

// Importer fetches, optionally translates, and stores articles.
type Importer struct {
	fetcher    PageFetcher
	translator Translator
	store      ArticleSaver
	log        *slog.Logger
}

// New creates an Importer. A nil translator imports untranslated.
func New(f PageFetcher, t Translator, s ArticleSaver, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{fetcher: f, translator: t, store: s, log: logger}
}

// Import fetches rawURL and saves it under category. Translation failures
// are logged and the article is kept untranslated.
func (im *Importer) Import(ctx context.Context, rawURL string, category domain.ArticleCategory) (*domain.StoredArticle, error) {
	if category == "" {
		category = DefaultCategory
	}
	if !category.Valid() {
		return nil, fmt.Errorf("import: unknown category %q", category)
	}

	page, err := im.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	article := domain.Article{
		Title:      page.Title,
		Category:   category,
		Paragraphs: translator.Untranslated(page.Paragraphs),
		Keywords:   []domain.Keyword{},
	}
	if article.Title == "" {
		article.Title = page.URL
	}

	if im.translator != nil {
		res, err := im.translator.Translate(ctx, page.Title, page.Paragraphs)
		if err != nil {
			im.log.Warn("translation failed, importing untranslated",
				slog.String("url", page.URL), slog.Any("error", err))
		} else {
			article.Paragraphs = res.Paragraphs
			article.Keywords = res.Keywords
			article.Summary = res.Summary
		}
	}
	if article.Summary == "" {
		article.Summary = summarize(page.Paragraphs)
	}

	stored, err := im.store.SaveArticle(article, page.URL)
	if err != nil {
		return nil, fmt.Errorf("save article: %w", err)
	}

	im.log.Info("article imported",
		slog.String("id", stored.Article.ID),
		slog.String("category", string(category)),
		slog.Int("paragraphs", len(article.Paragraphs)))

	return stored, nil
}

func summarize(paragraphs []string) string {
	if len(paragraphs) == 0 {
		return ""
	}
	s := paragraphs[0]
	if len([]rune(s)) <= summaryLen {
		return s
	}
	cut := string([]rune(s)[:summaryLen])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
