package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/shiori/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath (":memory:" for a private
// in-memory database) and initializes the schema. Parent directories are created if needed.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is per connection, and a single writer avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// DB exposes the handle so other stores (the citation registry) can share the database file.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		file_type TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		upload_time TIMESTAMP NOT NULL,
		processing_status TEXT NOT NULL,
		vectorization_status TEXT NOT NULL,
		extracted_text TEXT NOT NULL DEFAULT '',
		page_count INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		error_code TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_upload_time ON documents(upload_time);

	CREATE TABLE IF NOT EXISTS document_files (
		document_id TEXT PRIMARY KEY,
		content BLOB NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_chunk ON document_chunks(document_id, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

const documentColumns = `id, filename, file_type, size, upload_time, processing_status, vectorization_status,
	extracted_text, page_count, metadata, chunk_count, error_code, error_message, updated_at`

// listColumns replaces the extracted text with an empty string.
const listColumns = `id, filename, file_type, size, upload_time, processing_status, vectorization_status,
	'', page_count, metadata, chunk_count, error_code, error_message, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var doc models.Document
	var fileType, procStatus, vecStatus string
	var metadataJSON sql.NullString
	err := row.Scan(&doc.ID, &doc.Filename, &fileType, &doc.Size, &doc.UploadTime, &procStatus, &vecStatus,
		&doc.ExtractedText, &doc.PageCount, &metadataJSON, &doc.ChunkCount, &doc.ErrorCode, &doc.ErrorMessage, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.FileType = models.FileType(fileType)
	doc.ProcessingStatus = models.Status(procStatus)
	doc.VectorizationStatus = models.Status(vecStatus)
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		doc.Metadata = &models.Metadata{}
		if err := json.Unmarshal([]byte(metadataJSON.String), doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

func marshalMetadata(m *models.Metadata) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// CreateDocument inserts a document. UploadTime and UpdatedAt are set when zero.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	meta, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if doc.UploadTime.IsZero() {
		doc.UploadTime = now
	}
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, string(doc.FileType), doc.Size, doc.UploadTime, string(doc.ProcessingStatus),
		string(doc.VectorizationStatus), doc.ExtractedText, doc.PageCount, meta, doc.ChunkCount,
		doc.ErrorCode, doc.ErrorMessage, doc.UpdatedAt,
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("document %s: %w", doc.ID, models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// UpdateDocument writes every mutable field of doc.
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *models.Document) error {
	meta, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET processing_status = ?, vectorization_status = ?, extracted_text = ?,
		 page_count = ?, metadata = ?, chunk_count = ?, error_code = ?, error_message = ?, updated_at = ?
		 WHERE id = ?`,
		string(doc.ProcessingStatus), string(doc.VectorizationStatus), doc.ExtractedText,
		doc.PageCount, meta, doc.ChunkCount, doc.ErrorCode, doc.ErrorMessage, doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, models.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListDocuments returns documents newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT `+listColumns+` FROM documents ORDER BY upload_time DESC, id LIMIT ? OFFSET ?`, limit, offset)
}

// ListUnfinishedDocuments returns documents with a phase in the processing state, extraction
// still pending, or vectorization pending after extraction produced text.
func (s *SQLiteStorage) ListUnfinishedDocuments(ctx context.Context) ([]*models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE processing_status IN (?, ?)
			OR vectorization_status = ?
			OR (vectorization_status = ? AND processing_status = ? AND extracted_text <> '')
		ORDER BY upload_time, id`,
		string(models.StatusPending), string(models.StatusProcessing),
		string(models.StatusProcessing),
		string(models.StatusPending), string(models.StatusCompleted))
}

// CountDocuments returns the number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// SaveFile stores the uploaded bytes of a document, replacing earlier content.
func (s *SQLiteStorage) SaveFile(ctx context.Context, documentID string, content []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_files (document_id, content) VALUES (?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET content = excluded.content`, documentID, content)
	if err != nil {
		return fmt.Errorf("save file: %w", err)
	}
	return nil
}

// GetFile returns the uploaded bytes of a document.
func (s *SQLiteStorage) GetFile(ctx context.Context, documentID string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx, `SELECT content FROM document_files WHERE document_id = ?`, documentID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file of document %s: %w", documentID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return content, nil
}

// ReplaceChunks deletes the document's chunks and inserts the new ones in one transaction.
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, documentID string, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE documents SET chunk_count = ?, updated_at = ? WHERE id = ?`, len(chunks), now, documentID)
	if err != nil {
		return fmt.Errorf("update chunk count: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", documentID, models.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks (id, document_id, chunk_index, content, embedding, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if c.DocumentID != documentID {
			return fmt.Errorf("chunk %s belongs to %s, not %s: %w", c.ID, c.DocumentID, documentID, models.ErrInvalidArgument)
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Index, c.Content, EncodeVector(c.Embedding), c.CreatedAt); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

const chunkColumns = `id, document_id, chunk_index, content, created_at`

func scanChunk(row scanner) (*models.Chunk, error) {
	var c models.Chunk
	if err := row.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStorage) queryChunks(ctx context.Context, query string, args ...any) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()
	var chunks []*models.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetChunksByDocumentID returns the document's chunks in index order.
func (s *SQLiteStorage) GetChunksByDocumentID(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	return s.queryChunks(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
}

// GetChunk returns one chunk.
func (s *SQLiteStorage) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	c, err := scanChunk(s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM document_chunks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	return c, nil
}

// GetChunks loads the given chunks.
func (s *SQLiteStorage) GetChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error) {
	out := make(map[string]*models.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	chunks, err := s.queryChunks(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		out[c.ID] = c
	}
	return out, nil
}

// FindChunksContaining scans chunk text for needle.
func (s *SQLiteStorage) FindChunksContaining(ctx context.Context, needle string, documentIDs []string, limit int) ([]*models.Chunk, error) {
	if needle == "" || limit <= 0 {
		return nil, nil
	}
	query := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE instr(lower(content), lower(?)) > 0`
	args := []any{needle}
	if len(documentIDs) > 0 {
		query += ` AND document_id IN (` + placeholders(len(documentIDs)) + `)`
		args = append(args, stringArgs(documentIDs)...)
	}
	query += ` ORDER BY document_id, chunk_index LIMIT ?`
	args = append(args, limit)
	return s.queryChunks(ctx, query, args...)
}

// ForEachChunkVector loads every chunk that has an embedding and calls fn for each. Rows are read
// fully before fn runs so fn may use the store.
func (s *SQLiteStorage) ForEachChunkVector(ctx context.Context, fn func(*models.Chunk) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, chunk_index, embedding FROM document_chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("query chunk vectors: %w", err)
	}
	var chunks []*models.Chunk
	for rows.Next() {
		var c models.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &blob); err != nil {
			rows.Close()
			return err
		}
		c.Embedding = DecodeVector(blob)
		chunks = append(chunks, &c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	for _, c := range chunks {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// CountChunks returns the number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// EncodeVector packs a vector as little-endian float32s. A nil vector encodes to nil.
func EncodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
