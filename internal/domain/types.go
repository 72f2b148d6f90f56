package domain

import "time"

// Example is a sentence pair shown on a word card
type Example struct {
	EN string `json:"en" yaml:"en"`
	CN string `json:"cn" yaml:"cn"`
}

// Word represents a vocabulary entry from the catalog
type Word struct {
	ID         string    `json:"id" yaml:"id"`
	Text       string    `json:"text" yaml:"text"`
	Phonetic   string    `json:"phonetic" yaml:"phonetic"`
	POS        string    `json:"pos" yaml:"pos"`
	Definition string    `json:"definition" yaml:"definition"`
	Chinese    string    `json:"chinese" yaml:"chinese"`
	Categories []string  `json:"categories" yaml:"categories"`
	Examples   []Example `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// HasCategory reports whether the word carries the given tag
func (w Word) HasCategory(tag string) bool {
	for _, c := range w.Categories {
		if c == tag {
			return true
		}
	}
	return false
}

// WordGroup is an ordered unit of word IDs
type WordGroup struct {
	ID     string   `json:"id" yaml:"id"`
	Title  string   `json:"title" yaml:"title"`
	Words  []string `json:"words" yaml:"words"`
	Locked bool     `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// ArticleCategory is the fixed set of article sections
type ArticleCategory string

const (
	ArticleTech     ArticleCategory = "Tech"
	ArticleBusiness ArticleCategory = "Business"
	ArticleCulture  ArticleCategory = "Culture"
	ArticleSociety  ArticleCategory = "Society"
)

// ArticleCategories lists the valid article categories in display order
var ArticleCategories = []ArticleCategory{ArticleTech, ArticleBusiness, ArticleCulture, ArticleSociety}

// Valid reports whether c is one of the known categories
func (c ArticleCategory) Valid() bool {
	for _, known := range ArticleCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Paragraph is one source sentence block with its translation
type Paragraph struct {
	EN string `json:"en" yaml:"en"`
	CN string `json:"cn" yaml:"cn"`
}

// Keyword is a highlighted term from an article
type Keyword struct {
	Text string `json:"text" yaml:"text"`
	CN   string `json:"cn" yaml:"cn"`
}

// Article is a curated reading passage
type Article struct {
	ID         string          `json:"id" yaml:"id"`
	Title      string          `json:"title" yaml:"title"`
	Category   ArticleCategory `json:"category" yaml:"category"`
	Summary    string          `json:"summary" yaml:"summary"`
	Image      string          `json:"image,omitempty" yaml:"image,omitempty"`
	Paragraphs []Paragraph     `json:"paragraphs" yaml:"paragraphs"`
	Keywords   []Keyword       `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// StoredArticle is an imported article with its provenance
type StoredArticle struct {
	Article   Article   `json:"article"`
	SourceURL string    `json:"source_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
