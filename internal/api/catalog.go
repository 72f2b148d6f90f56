package api

import (
	"errors"
	"net/http"

	"github.com/pbaille/ace/internal/catalog"
	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/progress"
)

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"groups": s.Catalog.Groups,
	})
}

// CategoryView pairs a display name with the tag it filters on
type CategoryView struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	views := make([]CategoryView, 0, len(s.Catalog.Categories))
	for _, name := range s.Catalog.Categories {
		views = append(views, CategoryView{Name: name, Tag: catalog.CategoryTag(name)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories":         views,
		"article_categories": domain.ArticleCategories,
	})
}

// selectionRequest names exactly one word-list filter
type selectionRequest struct {
	Group    string `json:"group,omitempty"`
	Category string `json:"category,omitempty"`
	Set      string `json:"set,omitempty"`
}

func (q selectionRequest) selection() (catalog.Selection, error) {
	n := 0
	for _, v := range []string{q.Group, q.Category, q.Set} {
		if v != "" {
			n++
		}
	}
	if n != 1 {
		return catalog.Selection{}, errors.New("exactly one of group, category or set is required")
	}

	switch {
	case q.Group != "":
		return catalog.ByGroup(q.Group), nil
	case q.Category != "":
		return catalog.ByCategory(q.Category), nil
	}
	set, err := progress.ParseSet(q.Set)
	if err != nil {
		return catalog.Selection{}, err
	}
	return catalog.BySet(set), nil
}

func (s *Server) listWords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := selectionRequest{
		Group:    q.Get("group"),
		Category: q.Get("category"),
		Set:      q.Get("set"),
	}.selection()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	words := s.Catalog.Filter(sel, s.Progress)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"words": words,
		"count": len(words),
	})
}

// WordView is a word with its progress flags
type WordView struct {
	domain.Word
	Reinforced bool `json:"reinforced"`
	Missed     bool `json:"missed"`
}

func (s *Server) getWord(w http.ResponseWriter, r *http.Request) {
	word, err := s.Catalog.Word(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "word not found")
		return
	}
	writeJSON(w, http.StatusOK, WordView{
		Word:       word,
		Reinforced: s.Progress.Contains(progress.Reinforced, word.ID),
		Missed:     s.Progress.Contains(progress.Missed, word.ID),
	})
}
