package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/pbaille/ace/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New opens the database at dbPath, creating its directory if needed
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	// wait on a lock held by another ace process instead of failing with SQLITE_BUSY
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// each :memory: connection is its own database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Get reads a value from the kv table
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a value to the kv table
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key; deleting an absent key is not an error
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// SaveArticle stores an imported article, assigning an ID if it has none
func (s *Store) SaveArticle(article domain.Article, sourceURL string) (*domain.StoredArticle, error) {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if !article.Category.Valid() {
		return nil, fmt.Errorf("save article: invalid category %q", article.Category)
	}

	body, err := json.Marshal(article)
	if err != nil {
		return nil, fmt.Errorf("encode article: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO articles (id, category, body, source_url, created_at) VALUES (?, ?, ?, ?, ?)",
		article.ID, string(article.Category), string(body), sourceURL, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}

	return &domain.StoredArticle{
		Article:   article,
		SourceURL: sourceURL,
		CreatedAt: now,
	}, nil
}

// GetArticle retrieves an imported article by ID
func (s *Store) GetArticle(id string) (*domain.StoredArticle, error) {
	row := s.db.QueryRow(
		"SELECT body, source_url, created_at FROM articles WHERE id = ?",
		id,
	)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get article %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return a, nil
}

// ListArticles returns imported articles, newest first. An empty category
// lists all of them.
func (s *Store) ListArticles(category domain.ArticleCategory) ([]domain.StoredArticle, error) {
	query := "SELECT body, source_url, created_at FROM articles"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, string(category))
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.StoredArticle
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	return articles, nil
}

// DeleteArticle removes an imported article
func (s *Store) DeleteArticle(id string) error {
	res, err := s.db.Exec("DELETE FROM articles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete article %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (*domain.StoredArticle, error) {
	var (
		body      string
		sourceURL sql.NullString
		a         domain.StoredArticle
	)
	if err := row.Scan(&body, &sourceURL, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(body), &a.Article); err != nil {
		return nil, fmt.Errorf("decode article: %w", err)
	}
	a.SourceURL = sourceURL.String
	return &a, nil
}
