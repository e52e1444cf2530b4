package sqlite

import (
	"context"
	"fmt"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

type UnitRepository struct {
	db *DB
}

func NewUnitRepository(db *DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// InsertBatch inserts units in one transaction and fills in their assigned
// ids. Callers pass units in ordinal order so assigned ids follow source
// order.
func (r *UnitRepository) InsertBatch(ctx context.Context, units []*domain.Unit) error {
	if len(units) == 0 {
		return nil
	}
	tx, err := r.db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unit insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO units (document_id, ordinal, start_offset_seconds, raw_text, analysis, processed_at)
VALUES (?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare unit insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range units {
		res, err := stmt.ExecContext(ctx, u.DocumentID, u.Ordinal, u.StartOffsetSeconds,
			u.RawText, u.Analysis, u.ProcessedAt)
		if err != nil {
			return fmt.Errorf("insert unit ordinal %d: %w", u.Ordinal, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read inserted unit id: %w", err)
		}
		u.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit insert tx: %w", err)
	}
	return nil
}

func (r *UnitRepository) ListByDocument(ctx context.Context, documentID int64) ([]domain.Unit, error) {
	rows, err := r.db.sqlDB.QueryContext(ctx, `
SELECT id, document_id, ordinal, start_offset_seconds, raw_text, analysis, processed_at
FROM units
WHERE document_id = ?
ORDER BY ordinal
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var out []domain.Unit
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.DocumentID, &u.Ordinal, &u.StartOffsetSeconds,
			&u.RawText, &u.Analysis, &u.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UnitRepository) IDsByDocument(ctx context.Context, documentID int64) ([]int64, error) {
	rows, err := r.db.sqlDB.QueryContext(ctx, `SELECT id FROM units WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query unit ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unit id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *UnitRepository) ListAnalyzed(ctx context.Context) ([]domain.IndexableUnit, error) {
	return r.listAnalyzed(ctx, ``)
}

func (r *UnitRepository) ListAnalyzedByDocument(ctx context.Context, documentID int64) ([]domain.IndexableUnit, error) {
	return r.listAnalyzed(ctx, `AND u.document_id = ?`, documentID)
}

func (r *UnitRepository) listAnalyzed(ctx context.Context, extra string, args ...any) ([]domain.IndexableUnit, error) {
	rows, err := r.db.sqlDB.QueryContext(ctx, `
SELECT u.id, u.document_id, u.ordinal, u.start_offset_seconds, u.raw_text, u.analysis, u.processed_at,
       d.name, d.source_type
FROM units u
JOIN documents d ON d.id = u.document_id
WHERE u.analysis != '' `+extra+`
ORDER BY u.document_id, u.ordinal
`, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyzed units: %w", err)
	}
	defer rows.Close()

	var out []domain.IndexableUnit
	for rows.Next() {
		var u domain.IndexableUnit
		var sourceType string
		if err := rows.Scan(&u.ID, &u.DocumentID, &u.Ordinal, &u.StartOffsetSeconds,
			&u.RawText, &u.Analysis, &u.ProcessedAt, &u.DocumentName, &sourceType); err != nil {
			return nil, fmt.Errorf("scan analyzed unit: %w", err)
		}
		u.SourceType = domain.SourceType(sourceType)
		out = append(out, u)
	}
	return out, rows.Err()
}
