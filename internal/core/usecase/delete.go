package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
)

// DeleteDocument removes a document everywhere it exists. The id identifies
// the master-partition row; other partitions are matched by display name
// because each partition assigned its own id at commit time.
type DeleteDocument struct {
	partitions ports.PartitionProvider
	remote     ports.RemoteStore
	logger     *slog.Logger
}

func NewDeleteDocument(partitions ports.PartitionProvider, remote ports.RemoteStore, logger *slog.Logger) *DeleteDocument {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteDocument{partitions: partitions, remote: remote, logger: logger}
}

func (uc *DeleteDocument) Delete(ctx context.Context, documentID int64) error {
	master, err := uc.partitions.Open(ctx, uc.partitions.Master())
	if err != nil {
		return fmt.Errorf("open master partition: %w", err)
	}
	doc, err := master.Documents().GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("resolve document: %w", err)
	}

	for _, cohort := range uc.partitions.Cohorts() {
		if err := uc.deleteFromPartition(ctx, cohort, doc); err != nil {
			return fmt.Errorf("delete from partition %s: %w", cohort, err)
		}
	}

	if doc.StoragePath != "" {
		if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
			uc.logger.Warn("local source removal failed", "path", doc.StoragePath, "error", err)
		}
	}
	uc.logger.Info("document deleted", "document_id", documentID, "name", doc.Name)
	return nil
}

func (uc *DeleteDocument) deleteFromPartition(ctx context.Context, cohort string, doc *domain.Document) error {
	part, err := uc.partitions.Open(ctx, cohort)
	if err != nil {
		return err
	}

	local, err := part.Documents().GetByName(ctx, doc.Name)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			return nil
		}
		return fmt.Errorf("resolve by name: %w", err)
	}

	// Index entries first: RemoveDocument needs the unit rows that the
	// cascading row delete would destroy.
	if err := part.Index().RemoveDocument(ctx, local.ID); err != nil {
		return fmt.Errorf("remove from index: %w", err)
	}
	if err := part.Documents().Delete(ctx, local.ID); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}

	uc.syncAfterDelete(ctx, part, local)
	return nil
}

// syncAfterDelete pushes the shrunken artifacts and drops the remote copy of
// the source file. Best effort, like every remote interaction.
func (uc *DeleteDocument) syncAfterDelete(ctx context.Context, part ports.Partition, doc *domain.Document) {
	if part.FolderKey() == "" {
		return
	}
	for _, path := range part.Artifacts() {
		if err := uc.remote.Upload(ctx, path, part.FolderKey()); err != nil {
			uc.logger.Warn("artifact sync after delete failed",
				"partition", part.Name(), "path", path, "error", err)
		}
	}
	if doc.SourceType == domain.SourcePaged && doc.StoragePath != "" {
		if err := uc.remote.Delete(ctx, filepath.Base(doc.StoragePath), part.FolderKey()); err != nil {
			uc.logger.Warn("remote source delete failed",
				"partition", part.Name(), "name", doc.Name, "error", err)
		}
	}
}
