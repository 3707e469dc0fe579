package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and ensures the schema exists.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			size BIGINT NOT NULL,
			mime TEXT NOT NULL DEFAULT '',
			text_path TEXT NOT NULL DEFAULT '',
			token_count INTEGER NOT NULL DEFAULT 0,
			tier INTEGER NOT NULL DEFAULT 0,
			page_count INTEGER NOT NULL DEFAULT 0,
			row_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			fail_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chunks (
			doc_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			"index" INTEGER NOT NULL,
			tokens INTEGER NOT NULL,
			text TEXT NOT NULL,
			section TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (doc_id, "index")
		)`)
	if err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}
	return nil
}

func (p *Postgres) CreateDocument(ctx context.Context, doc Document) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO documents
			(id, filename, size, mime, text_path, token_count, tier,
			 page_count, row_count, status, fail_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		doc.ID, doc.Filename, doc.Size, doc.MIME, doc.TextPath, doc.TokenCount,
		doc.Tier, doc.PageCount, doc.RowCount, doc.Status, doc.FailReason, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}
	return nil
}

func (p *Postgres) FinalizeDocument(ctx context.Context, doc Document, chunks []Chunk) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE documents SET
			mime=$2, text_path=$3, token_count=$4, tier=$5,
			page_count=$6, row_count=$7, status=$8, fail_reason=''
		WHERE id=$1`,
		doc.ID, doc.MIME, doc.TextPath, doc.TokenCount, doc.Tier,
		doc.PageCount, doc.RowCount, StatusReady)
	if err != nil {
		return fmt.Errorf("finalizing document %s: %w", doc.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE doc_id=$1`, doc.ID); err != nil {
		return fmt.Errorf("clearing chunks for %s: %w", doc.ID, err)
	}
	for _, c := range chunks {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chunks (doc_id, "index", tokens, text, section)
			VALUES ($1,$2,$3,$4,$5)`,
			doc.ID, c.Index, c.Tokens, c.Text, c.Section); err != nil {
			return fmt.Errorf("inserting chunk %d for %s: %w", c.Index, doc.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE documents SET status=$2, fail_reason=$3 WHERE id=$1`,
		id, StatusFailed, reason)
	if err != nil {
		return fmt.Errorf("marking document %s failed: %w", id, err)
	}
	return nil
}

const docColumns = `id, filename, size, mime, text_path, token_count, tier,
	page_count, row_count, status, fail_reason, created_at`

func (p *Postgres) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+docColumns+` FROM documents WHERE id=$1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("loading document %s: %w", id, err)
	}
	return doc, nil
}

func (p *Postgres) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+docColumns+` FROM documents ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (p *Postgres) GetChunks(ctx context.Context, docID uuid.UUID) ([]Chunk, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT doc_id, "index", tokens, text, section
		FROM chunks WHERE doc_id=$1 ORDER BY "index" ASC`, docID)
	if err != nil {
		return nil, fmt.Errorf("loading chunks for %s: %w", docID, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.DocID, &c.Index, &c.Tokens, &c.Text, &c.Section); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (p *Postgres) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	// chunks go with the document via ON DELETE CASCADE
	if _, err := p.pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Filename, &d.Size, &d.MIME, &d.TextPath,
		&d.TokenCount, &d.Tier, &d.PageCount, &d.RowCount,
		&d.Status, &d.FailReason, &d.CreatedAt)
	return d, err
}
