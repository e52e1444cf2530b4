package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
)

const manifestFileName = "sync_manifest.json"

// PullSync mirrors remote partition folders into the local data directory.
// It is the consumer side of the orchestrator's upload sync: a manifest of
// remote modification times decides which files actually need downloading.
//
// Pull works on bare directories, not opened partitions: it must run before
// the partition provider opens the database files it may overwrite.
type PullSync struct {
	cohorts map[string]string
	remote  ports.RemoteStore
	dataDir string
	logger  *slog.Logger
}

func NewPullSync(cohorts map[string]string, remote ports.RemoteStore, dataDir string, logger *slog.Logger) *PullSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &PullSync{cohorts: cohorts, remote: remote, dataDir: dataDir, logger: logger}
}

// Pull downloads every remote file newer than the manifest records, for
// every cohort with a remote folder. Individual file failures are logged
// and skipped so one bad download never blocks the rest.
func (uc *PullSync) Pull(ctx context.Context) error {
	manifest, err := uc.loadManifest()
	if err != nil {
		uc.logger.Warn("manifest unreadable, pulling everything", "error", err)
		manifest = domain.SyncManifest{}
	}

	names := make([]string, 0, len(uc.cohorts))
	for name := range uc.cohorts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, cohort := range names {
		if err := uc.pullCohort(ctx, cohort, manifest); err != nil {
			return fmt.Errorf("pull cohort %s: %w", cohort, err)
		}
	}
	return uc.saveManifest(manifest)
}

func (uc *PullSync) pullCohort(ctx context.Context, cohort string, manifest domain.SyncManifest) error {
	folderKey := uc.cohorts[cohort]
	if folderKey == "" {
		return nil
	}

	files, err := uc.remote.List(ctx, folderKey)
	if err != nil {
		return fmt.Errorf("list remote folder: %w", err)
	}

	dir := filepath.Join(uc.dataDir, "partitions", cohort)
	for _, file := range files {
		manifestKey := cohort + "/" + file.Name
		if entry, ok := manifest[manifestKey]; ok && entry.ModifiedTime == file.ModifiedTime {
			continue
		}

		if err := uc.remote.Download(ctx, file.ID, filepath.Join(dir, file.Name)); err != nil {
			uc.logger.Error("download failed, skipping",
				"cohort", cohort, "name", file.Name, "error", err)
			continue
		}
		manifest[manifestKey] = domain.ManifestEntry{ModifiedTime: file.ModifiedTime}
		uc.logger.Info("pulled remote file", "cohort", cohort, "name", file.Name)
	}
	return nil
}

func (uc *PullSync) manifestPath() string {
	return filepath.Join(uc.dataDir, manifestFileName)
}

func (uc *PullSync) loadManifest() (domain.SyncManifest, error) {
	raw, err := os.ReadFile(uc.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SyncManifest{}, nil
		}
		return nil, err
	}
	var manifest domain.SyncManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (uc *PullSync) saveManifest(manifest domain.SyncManifest) error {
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(uc.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(uc.manifestPath(), raw, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
