package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bookcast/ingest/internal/config"
	"github.com/bookcast/ingest/internal/core"
	"github.com/bookcast/ingest/internal/models"
)

// DatabaseClient owns two connection pools: one that connects with the
// anonymous credential and enforces row-level security via forwarded JWT
// claims, and one with the elevated (service role) credential that bypasses
// it. Callers obtain a core.Store scoped to one of the two.
type DatabaseClient struct {
	anon    *sql.DB
	service *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	anon, err := openPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	service := anon
	if cfg.ServiceDatabaseURL != "" && cfg.ServiceDatabaseURL != cfg.DatabaseURL {
		service, err = openPool(ctx, cfg.ServiceDatabaseURL)
		if err != nil {
			_ = anon.Close()
			return nil, err
		}
	}

	if err := EnsureBootstrapped(ctx, service); err != nil {
		_ = anon.Close()
		if service != anon {
			_ = service.Close()
		}
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{anon: anon, service: service}, nil
}

func openPool(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

func (c *DatabaseClient) Close() error {
	var err error
	if c.anon != nil {
		err = c.anon.Close()
	}
	if c.service != nil && c.service != c.anon {
		if cerr := c.service.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Service returns a store backed by the elevated credential.
func (c *DatabaseClient) Service() core.Store {
	return &scopedStore{db: c.service}
}

// WithClaims returns a store that runs every operation with the given JWT
// claims installed as the request.jwt.claims setting, so row-level security
// policies see the caller's identity. claimsJSON comes from the bearer token
// of the triggering request and is captured by value, surviving the handoff
// to a background worker.
func (c *DatabaseClient) WithClaims(claimsJSON string) core.Store {
	return &scopedStore{db: c.anon, claims: claimsJSON}
}

type scopedStore struct {
	db     *sql.DB
	claims string
}

// withTx runs fn inside a transaction, installing the forwarded claims
// first when present. set_config with is_local=true scopes the setting to
// the transaction, so pooled connections never leak identity.
func (s *scopedStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if s.claims != "" {
		if _, err := tx.ExecContext(ctx, `SELECT set_config('request.jwt.claims', $1, true)`, s.claims); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set claims: %w", err)
		}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *scopedStore) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	var (
		b       models.Book
		tocJSON []byte
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		const q = `
			SELECT id, title, author, COALESCE(toc, '[]'::jsonb), created_at
			FROM books WHERE id = $1
		`
		return tx.QueryRowContext(ctx, q, bookID).Scan(&b.ID, &b.Title, &b.Author, &tocJSON, &b.CreatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tocJSON, &b.TOC); err != nil {
		return nil, fmt.Errorf("decode toc: %w", err)
	}
	return &b, nil
}

func (s *scopedStore) UpsertBook(ctx context.Context, book *models.Book) error {
	if book == nil {
		return errors.New("nil book")
	}
	tocJSON, err := json.Marshal(book.TOC)
	if err != nil {
		return fmt.Errorf("encode toc: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		const q = `
			INSERT INTO books (id, title, author, toc)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				title  = CASE WHEN EXCLUDED.title  <> '' THEN EXCLUDED.title  ELSE books.title  END,
				author = CASE WHEN EXCLUDED.author <> '' THEN EXCLUDED.author ELSE books.author END,
				toc    = CASE WHEN EXCLUDED.toc    <> '[]'::jsonb THEN EXCLUDED.toc ELSE books.toc END
		`
		_, err := tx.ExecContext(ctx, q, book.ID, book.Title, book.Author, tocJSON)
		return err
	})
}

func (s *scopedStore) InsertPage(ctx context.Context, page *models.BookPage) error {
	if page == nil {
		return errors.New("nil page")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		const q = `
			INSERT INTO book_pages (book_id, page_number, text, embedding)
			VALUES ($1, $2, $3, $4)
		`
		_, err := tx.ExecContext(ctx, q, page.BookID, page.PageNumber, page.Text, nullableVector(page.Embedding))
		return err
	})
}

func (s *scopedStore) SelectPageTexts(ctx context.Context, bookID string, startPage, endPage int) ([]string, error) {
	var out []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		const q = `
			SELECT text FROM book_pages
			WHERE book_id = $1 AND page_number >= $2 AND page_number <= $3
			ORDER BY page_number
		`
		rows, err := tx.QueryContext(ctx, q, bookID, startPage, endPage)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InsertSections inserts all summaries in a single transaction.
func (s *scopedStore) InsertSections(ctx context.Context, sections []models.SectionSummary) error {
	if len(sections) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		const q = `
			INSERT INTO book_sections
				(book_id, "index", section_title, start_page, end_page, summary, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range sections {
			sec := &sections[i]
			if _, err := stmt.ExecContext(ctx,
				sec.BookID, sec.Index, sec.SectionTitle, sec.StartPage, sec.EndPage, sec.Summary, nullableVector(sec.Embedding),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func nullableVector(v []float32) any {
	if v == nil {
		return nil
	}
	return pgvector.NewVector(v)
}

var _ core.Store = (*scopedStore)(nil)
