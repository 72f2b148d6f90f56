// Package catalog holds the read-only study content: words, groups,
// categories and articles.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pbaille/ace/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrNotFound is returned by lookups for an unknown id.
var ErrNotFound = errors.New("not found")

// Catalog is the static content set. It is never mutated after load.
type Catalog struct {
	Words      []domain.Word      `yaml:"words"`
	Groups     []domain.WordGroup `yaml:"groups"`
	Categories []string           `yaml:"categories"`
	Articles   []domain.Article   `yaml:"articles"`

	wordIndex map[string]int
}

// Default returns the embedded starter catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.index()
	return &c, nil
}

func (c *Catalog) index() {
	c.wordIndex = make(map[string]int, len(c.Words))
	for i, w := range c.Words {
		if _, dup := c.wordIndex[w.ID]; !dup {
			c.wordIndex[w.ID] = i
		}
	}
}

// Validate reports duplicate word ids and articles with an unknown category.
// Group references to unknown words are tolerated.
func (c *Catalog) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Words))
	for _, w := range c.Words {
		if seen[w.ID] {
			errs = append(errs, fmt.Errorf("duplicate word id %q", w.ID))
		}
		seen[w.ID] = true
	}
	for _, a := range c.Articles {
		if !a.Category.Valid() {
			errs = append(errs, fmt.Errorf("article %q: unknown category %q", a.ID, a.Category))
		}
	}
	return errors.Join(errs...)
}

// WithArticles returns a copy of c with extra articles appended.
// Articles already in c win on id collision.
func (c *Catalog) WithArticles(extra ...domain.Article) *Catalog {
	out := *c
	out.Articles = append([]domain.Article(nil), c.Articles...)
	known := make(map[string]bool, len(c.Articles))
	for _, a := range c.Articles {
		known[a.ID] = true
	}
	for _, a := range extra {
		if known[a.ID] {
			continue
		}
		known[a.ID] = true
		out.Articles = append(out.Articles, a)
	}
	return &out
}

// Word looks up a word by id.
func (c *Catalog) Word(id string) (domain.Word, error) {
	i, ok := c.wordIndex[id]
	if !ok {
		return domain.Word{}, fmt.Errorf("word %q: %w", id, ErrNotFound)
	}
	return c.Words[i], nil
}

// Group looks up a group by id.
func (c *Catalog) Group(id string) (domain.WordGroup, error) {
	for _, g := range c.Groups {
		if g.ID == id {
			return g, nil
		}
	}
	return domain.WordGroup{}, fmt.Errorf("group %q: %w", id, ErrNotFound)
}

// Article looks up an article by id.
func (c *Catalog) Article(id string) (domain.Article, error) {
	for _, a := range c.Articles {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Article{}, fmt.Errorf("article %q: %w", id, ErrNotFound)
}

// ArticlesByCategory returns articles in the category, in catalog order.
// An empty category returns every article.
func (c *Catalog) ArticlesByCategory(category domain.ArticleCategory) []domain.Article {
	out := []domain.Article{}
	for _, a := range c.Articles {
		if category == "" || a.Category == category {
			out = append(out, a)
		}
	}
	return out
}
