package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shehbaz-7/Learnwave/internal/core/ports"
)

// MaintainIndex is the disaster-recovery surface: explicit reloads and full
// rebuilds of partition indices.
type MaintainIndex struct {
	partitions ports.PartitionProvider
	logger     *slog.Logger
}

func NewMaintainIndex(partitions ports.PartitionProvider, logger *slog.Logger) *MaintainIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintainIndex{partitions: partitions, logger: logger}
}

// Reload re-reads the master index from disk. A loaded index that is empty
// while the record store still holds analyzed units means the persisted
// files were lost or corrupt, so the reload escalates to a full rebuild.
func (uc *MaintainIndex) Reload(ctx context.Context) error {
	master, err := uc.partitions.Open(ctx, uc.partitions.Master())
	if err != nil {
		return fmt.Errorf("open master partition: %w", err)
	}
	if err := master.Index().Load(ctx); err != nil {
		return fmt.Errorf("reload master index: %w", err)
	}
	if master.Index().Size() > 0 {
		return nil
	}

	units, err := master.Units().ListAnalyzed(ctx)
	if err != nil {
		return fmt.Errorf("check analyzed units: %w", err)
	}
	if len(units) == 0 {
		return nil
	}

	uc.logger.Warn("loaded index empty but record store has analyzed units, rebuilding",
		"partition", master.Name(), "units", len(units))
	return master.Index().RebuildFull(ctx)
}

func (uc *MaintainIndex) RebuildPartition(ctx context.Context, cohort string) error {
	part, err := uc.partitions.Open(ctx, cohort)
	if err != nil {
		return fmt.Errorf("open partition %s: %w", cohort, err)
	}
	if err := part.Index().RebuildFull(ctx); err != nil {
		return fmt.Errorf("rebuild partition %s: %w", cohort, err)
	}
	uc.logger.Info("partition rebuilt", "partition", cohort, "vectors", part.Index().Size())
	return nil
}
