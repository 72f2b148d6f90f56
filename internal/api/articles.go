package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/fetcher"
	"github.com/pbaille/ace/internal/store"
)

// ArticleView is an article with where it came from
type ArticleView struct {
	domain.Article
	Imported  bool   `json:"imported"`
	SourceURL string `json:"source_url,omitempty"`
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	category := domain.ArticleCategory(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	var builtin []domain.Article
	if category == "" {
		builtin = s.Catalog.Articles
	} else {
		builtin = s.Catalog.ArticlesByCategory(category)
	}

	views := make([]ArticleView, 0, len(builtin))
	for _, a := range builtin {
		views = append(views, ArticleView{Article: a})
	}

	if s.Store != nil {
		imported, err := s.Store.ListArticles(category)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, a := range imported {
			views = append(views, ArticleView{Article: a.Article, Imported: true, SourceURL: a.SourceURL})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"articles": views,
	})
}

var errArticleNotFound = errors.New("article not found")

// findArticle looks in the catalog, then in the imported articles
func (s *Server) findArticle(id string) (ArticleView, error) {
	if a, err := s.Catalog.Article(id); err == nil {
		return ArticleView{Article: a}, nil
	}
	if s.Store != nil {
		stored, err := s.Store.GetArticle(id)
		if err == nil {
			return ArticleView{Article: stored.Article, Imported: true, SourceURL: stored.SourceURL}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return ArticleView{}, err
		}
	}
	return ArticleView{}, errArticleNotFound
}

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	view, err := s.findArticle(r.PathValue("id"))
	if errors.Is(err, errArticleNotFound) {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ImportRequest is the request body for importing an article
type ImportRequest struct {
	URL      string                 `json:"url"`
	Category domain.ArticleCategory `json:"category,omitempty"`
}

func (s *Server) importArticle(w http.ResponseWriter, r *http.Request) {
	if s.Importer == nil {
		writeError(w, http.StatusServiceUnavailable, "import is not available")
		return
	}

	var req ImportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !fetcher.IsURL(req.URL) {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.Category != "" && !req.Category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	stored, err := s.Importer.Import(r.Context(), strings.TrimSpace(req.URL), req.Category)
	if err != nil {
		s.Logger.Warn("import failed", slog.String("url", req.URL), slog.Any("error", err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, ArticleView{Article: stored.Article, Imported: true, SourceURL: stored.SourceURL})
}

func (s *Server) deleteArticle(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "article store is not available")
		return
	}
	id := r.PathValue("id")
	err := s.Store.DeleteArticle(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.readers.drop(id)
	w.WriteHeader(http.StatusNoContent)
}
