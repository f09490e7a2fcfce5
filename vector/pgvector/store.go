package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/poiesic/vecsync/ai"
	"github.com/poiesic/vecsync/vector"
)

const (
	defaultTable      = "catalog_documents"
	defaultDimensions = 1536
)

// Store implements vector.Store on Postgres with the pgvector extension.
// Documents are embedded at write time through the configured embedder and
// upserted by their content-hash ID, so unchanged re-ingests overwrite in
// place.
type Store struct {
	pool       *pgxpool.Pool
	embedder   ai.Embedder
	table      string
	dimensions int
	logger     *slog.Logger
}

var _ vector.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTable sets the backing table name. Default is "catalog_documents".
func WithTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// WithDimensions sets the embedding vector width used when creating the
// table. Must match the embedding model. Default is 1536.
func WithDimensions(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.dimensions = n
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New connects to Postgres, registers the pgvector codecs, and ensures the
// document table exists.
func New(ctx context.Context, dsn string, embedder ai.Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	s := &Store{
		pool:       pool,
		embedder:   embedder,
		table:      defaultTable,
		dimensions: defaultDimensions,
		logger:     slog.Default().With("component", "pgvector-store"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id        text PRIMARY KEY,
			content   text NOT NULL,
			metadata  jsonb NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL
		)`, s.table, s.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s USING hnsw (embedding vector_cosine_ops)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_item_id_idx
			ON %s ((metadata->>'id'))`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// AddDocuments embeds a batch of documents and upserts them in one
// pipelined round trip.
func (s *Store) AddDocuments(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	embeddings, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return vector.Classify("embed", err)
	}
	if len(embeddings) != len(docs) {
		return vector.Persistent("embed",
			fmt.Errorf("embedding count mismatch: expected %d, got %d", len(docs), len(embeddings)))
	}

	upsert := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`,
		s.table)

	batch := &pgx.Batch{}
	for i, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return vector.Persistent("add", fmt.Errorf("marshal metadata: %w", err))
		}
		batch.Queue(upsert, doc.ID, doc.Content, meta, pgvec.NewVector(embeddings[i]))
	}

	br := s.pool.SendBatch(ctx, batch)
	var execErr error
	for range docs {
		if _, err := br.Exec(); err != nil && execErr == nil {
			execErr = err
		}
	}
	if err := br.Close(); err != nil && execErr == nil {
		execErr = err
	}
	if execErr != nil {
		return vector.Classify("add", execErr)
	}

	s.logger.Debug("documents written", "count", len(docs))
	return nil
}

// SimilaritySearch returns the topK nearest documents by cosine distance.
func (s *Store) SimilaritySearch(ctx context.Context, query string, topK int) ([]vector.Document, error) {
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, vector.Classify("embed", err)
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, content, metadata FROM %s ORDER BY embedding <=> $1 LIMIT $2`, s.table),
		pgvec.NewVector(embedding), topK)
	if err != nil {
		return nil, vector.Classify("search", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var (
			doc  vector.Document
			meta []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta); err != nil {
			return nil, vector.Classify("search", err)
		}
		if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
			return nil, vector.Persistent("search", fmt.Errorf("unmarshal metadata: %w", err))
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, vector.Classify("search", err)
	}
	return docs, nil
}

// DeleteDocuments removes documents by their store IDs.
func (s *Store) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, s.table), ids)
	if err != nil {
		return vector.Classify("delete", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
