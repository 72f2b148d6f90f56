package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/progress"
)

const testCatalog = `
categories: [科技, 金融, Custom]
groups:
  - id: g1
    title: One
    words: [w3, w1, ghost, w1]
  - id: g2
    title: Two
    words: []
words:
  - {id: w1, text: apple, categories: [CET-4, Tech]}
  - {id: w2, text: banana, categories: [Finance]}
  - {id: w3, text: cherry, categories: [Custom, Tech]}
  - {id: w4, text: date, categories: [科技]}
articles:
  - {id: a1, title: One, category: Tech}
  - {id: a2, title: Two, category: Society}
`

func mustParse(t *testing.T, doc string) *Catalog {
	t.Helper()
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	return c
}

func ids(words []domain.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.ID
	}
	return out
}

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.NotEmpty(t, c.Words)
	assert.NotEmpty(t, c.Groups)
	assert.NotEmpty(t, c.Articles)
	assert.Len(t, c.Categories, 10)
	for _, cat := range c.Categories {
		assert.NotEmpty(t, c.Filter(ByCategory(cat), nil), "category %s has no words", cat)
	}
}

func TestFilter_GroupKeepsGroupOrder(t *testing.T) {
	c := mustParse(t, testCatalog)

	got := c.Filter(ByGroup("g1"), nil)
	assert.Equal(t, []string{"w3", "w1"}, ids(got), "group order, unknown ids skipped, no duplicates")

	assert.Empty(t, c.Filter(ByGroup("g2"), nil))
}

func TestFilter_UnknownSelectionsAreEmpty(t *testing.T) {
	c := mustParse(t, testCatalog)

	for name, sel := range map[string]Selection{
		"group":    ByGroup("nope"),
		"category": ByCategory("nope"),
		"empty":    ByCategory(""),
		"kind":     {Kind: "bogus"},
		"nil sets": BySet(progress.Missed),
	} {
		t.Run(name, func(t *testing.T) {
			got := c.Filter(sel, nil)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestFilter_CategoryUsesLookupTable(t *testing.T) {
	c := mustParse(t, testCatalog)

	// 科技 maps to Tech; words tagged with the raw display name match too.
	assert.Equal(t, []string{"w1", "w3", "w4"}, ids(c.Filter(ByCategory("科技"), nil)))
	assert.Equal(t, []string{"w2"}, ids(c.Filter(ByCategory("金融"), nil)))
	// unmapped names are compared directly against tags
	assert.Equal(t, []string{"w3"}, ids(c.Filter(ByCategory("Custom"), nil)))
	assert.Equal(t, []string{"w1", "w3"}, ids(c.Filter(ByCategory("Tech"), nil)))
}

func TestFilter_SetsUseCatalogOrder(t *testing.T) {
	c := mustParse(t, testCatalog)
	store := progress.NewStore(progress.NewMemoryPort(), nil)
	store.Add(progress.Reinforced, "w3")
	store.Add(progress.Reinforced, "ghost")
	store.Add(progress.Reinforced, "w1")
	store.Add(progress.Missed, "w2")

	assert.Equal(t, []string{"w1", "w3"}, ids(c.Filter(BySet(progress.Reinforced), store)))
	assert.Equal(t, []string{"w2"}, ids(c.Filter(BySet(progress.Missed), store)))
}

func TestFilter_ResultDoesNotAliasStore(t *testing.T) {
	c := mustParse(t, testCatalog)
	store := progress.NewStore(progress.NewMemoryPort(), nil)
	store.Add(progress.Missed, "w1")

	words := c.Filter(BySet(progress.Missed), store)
	store.Remove(progress.Missed, "w1")
	store.Add(progress.Missed, "w2")

	assert.Equal(t, []string{"w1"}, ids(words))
	assert.Equal(t, []string{"w2"}, ids(c.Filter(BySet(progress.Missed), store)))

	words[0].Text = "mutated"
	w, err := c.Word("w1")
	require.NoError(t, err)
	assert.Equal(t, "apple", w.Text)
}

func TestLookups(t *testing.T) {
	c := mustParse(t, testCatalog)

	w, err := c.Word("w2")
	require.NoError(t, err)
	assert.Equal(t, "banana", w.Text)

	_, err = c.Word("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Group("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	a, err := c.Article("a2")
	require.NoError(t, err)
	assert.Equal(t, domain.ArticleSociety, a.Category)

	_, err = c.Article("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, c.ArticlesByCategory(domain.ArticleTech), 1)
	assert.Len(t, c.ArticlesByCategory(""), 2)
	assert.Empty(t, c.ArticlesByCategory(domain.ArticleCulture))
}

func TestWithArticles(t *testing.T) {
	c := mustParse(t, testCatalog)

	merged := c.WithArticles(
		domain.Article{ID: "a1", Title: "Imported duplicate"},
		domain.Article{ID: "x1", Title: "Imported", Category: domain.ArticleCulture},
	)

	assert.Len(t, c.Articles, 2, "original untouched")
	require.Len(t, merged.Articles, 3)
	a, err := merged.Article("a1")
	require.NoError(t, err)
	assert.Equal(t, "One", a.Title)
	_, err = merged.Word("w1")
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	c := mustParse(t, `
words:
  - {id: w1, text: a}
  - {id: w1, text: b}
articles:
  - {id: a1, category: Sports}
`)
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate word id "w1"`)
	assert.Contains(t, err.Error(), `unknown category "Sports"`)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Words, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("words: {not: [a list"))
	assert.Error(t, err)
}

func TestCategoryTag(t *testing.T) {
	assert.Equal(t, "CET-4", CategoryTag("大学英语四级"))
	assert.Equal(t, "Social", CategoryTag("社交"))
	assert.Equal(t, "Whatever", CategoryTag("Whatever"))
}
