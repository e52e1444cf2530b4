package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	res, err := r.db.sqlDB.ExecContext(ctx, `
INSERT INTO documents (user_id, name, storage_path, unit_count, byte_size, source_type, processed, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		doc.UserID, doc.Name, doc.StoragePath, doc.UnitCount, doc.ByteSize,
		string(doc.SourceType), doc.Processed, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read inserted document id: %w", err)
	}
	doc.ID = id
	return nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	res, err := r.db.sqlDB.ExecContext(ctx, `
UPDATE documents
SET storage_path = ?, unit_count = ?, byte_size = ?, processed = ?
WHERE id = ?
`, doc.StoragePath, doc.UnitCount, doc.ByteSize, doc.Processed, doc.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document",
			fmt.Errorf("id %d", doc.ID))
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	return r.get(ctx, `WHERE id = ?`, id)
}

// GetByName resolves a document by display name. Multi-partition delete
// matches by name because the same content carries different row ids in
// each partition.
func (r *DocumentRepository) GetByName(ctx context.Context, name string) (*domain.Document, error) {
	return r.get(ctx, `WHERE name = ? ORDER BY id LIMIT 1`, name)
}

func (r *DocumentRepository) get(ctx context.Context, where string, arg any) (*domain.Document, error) {
	row := r.db.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, name, storage_path, unit_count, byte_size, source_type, processed, created_at
FROM documents `+where, arg)

	var doc domain.Document
	var sourceType string
	err := row.Scan(&doc.ID, &doc.UserID, &doc.Name, &doc.StoragePath, &doc.UnitCount,
		&doc.ByteSize, &sourceType, &doc.Processed, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", err)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.SourceType = domain.SourceType(sourceType)
	return &doc, nil
}

// Delete removes the document row; unit rows cascade.
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.sqlDB.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
