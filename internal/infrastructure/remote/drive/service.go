// Package drive syncs partition artifacts with per-cohort Google Drive
// folders. Every failure here is reported and survivable: local partitions
// stay authoritative and a later sync converges.
package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

type Store struct {
	svc    *drive.Service
	logger *slog.Logger
}

// New builds a Drive client from a service-account credentials file.
func New(ctx context.Context, credentialsFile string, logger *slog.Logger) (*Store, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{svc: svc, logger: logger}, nil
}

func (s *Store) List(ctx context.Context, folderKey string) ([]domain.RemoteFile, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderKey)
	var out []domain.RemoteFile
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, modifiedTime)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		response, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list drive folder: %w", err)
		}
		for _, f := range response.Files {
			out = append(out, domain.RemoteFile{
				ID:           f.Id,
				Name:         f.Name,
				ModifiedTime: f.ModifiedTime,
			})
		}
		pageToken = response.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

// Upload sends a local artifact into the folder, updating in place when a
// file of the same name already exists so partitions never accumulate stale
// duplicates.
func (s *Store) Upload(ctx context.Context, localPath, folderKey string) error {
	name := filepath.Base(localPath)
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	existingID, err := s.findByName(ctx, name, folderKey)
	if err != nil {
		return err
	}

	if existingID != "" {
		_, err = s.svc.Files.Update(existingID, &drive.File{}).Media(f).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s on drive: %w", name, err)
		}
		s.logger.Info("artifact updated on remote", "name", name, "folder", folderKey)
		return nil
	}

	_, err = s.svc.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{folderKey},
	}).Media(f).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("upload %s to drive: %w", name, err)
	}
	s.logger.Info("artifact uploaded to remote", "name", name, "folder", folderKey)
	return nil
}

func (s *Store) Download(ctx context.Context, fileID, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	response, err := s.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("download drive file: %w", err)
	}
	defer response.Body.Close()

	return writeAtomic(localPath, response.Body)
}

// writeAtomic lands the stream in a temp file and renames it over localPath,
// so a mid-copy failure never leaves a truncated partition artifact where
// the provider will open it.
func writeAtomic(localPath string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(localPath), filepath.Base(localPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write downloaded file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("finalize downloaded file: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name, folderKey string) error {
	fileID, err := s.findByName(ctx, name, folderKey)
	if err != nil {
		return err
	}
	if fileID == "" {
		return nil
	}
	if err := s.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete %s from drive: %w", name, err)
	}
	s.logger.Info("artifact deleted from remote", "name", name, "folder", folderKey)
	return nil
}

func (s *Store) findByName(ctx context.Context, name, folderKey string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", name, folderKey)
	response, err := s.svc.Files.List().Q(query).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search drive for %s: %w", name, err)
	}
	if len(response.Files) == 0 {
		return "", nil
	}
	return response.Files[0].Id, nil
}
