package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/storage"
)

// ErrBackupUnsupported is returned when the active store cannot be backed up.
var ErrBackupUnsupported = errors.New("backup not supported by the active data backend")

// Backuper writes a consistent copy of the live store into a directory.
type Backuper interface {
	Backup(ctx context.Context, dir string) (string, error)
}

// BackupService creates and lists database backups.
type BackupService struct {
	backuper Backuper
	dir      string
}

// NewBackupService wires the service. backuper may be nil for stores without
// backup support.
func NewBackupService(backuper Backuper, dir string) *BackupService {
	return &BackupService{backuper: backuper, dir: dir}
}

// Dir returns the directory backups are written to.
func (s *BackupService) Dir() string {
	return s.dir
}

func (s *BackupService) Create(ctx context.Context) (storage.BackupInfo, error) {
	if s.backuper == nil {
		return storage.BackupInfo{}, ErrBackupUnsupported
	}
	path, err := s.backuper.Backup(ctx, s.dir)
	if err != nil {
		return storage.BackupInfo{}, fmt.Errorf("create backup: %w", err)
	}
	backups, err := storage.ListBackups(s.dir)
	if err != nil {
		return storage.BackupInfo{}, err
	}
	for _, b := range backups {
		if b.Path == path {
			return b, nil
		}
	}
	slog.WarnContext(ctx, "Backup written but not listed", "path", path)
	return storage.BackupInfo{Path: path}, nil
}

// List returns existing backups, newest first.
func (s *BackupService) List(_ context.Context) ([]storage.BackupInfo, error) {
	return storage.ListBackups(s.dir)
}
