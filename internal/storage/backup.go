package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupPrefix = "budget-backup-"

// BackupInfo describes a backup file on disk.
type BackupInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Backup writes a consistent copy of the live database into dir and returns
// its path.
func (r *SQLiteRepository) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	dst := filepath.Join(dir, fmt.Sprintf("%s%d.db", backupPrefix, time.Now().Unix()))
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(dir, fmt.Sprintf("%s%d.db", backupPrefix, time.Now().UnixNano()))
	}

	if _, err := r.db.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return "", fmt.Errorf("vacuum into backup: %w", err)
	}

	slog.InfoContext(ctx, "Database backup written", "path", dst)
	return dst, nil
}

// ListBackups returns the backups in dir, newest first. A missing directory
// yields an empty list.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) || filepath.Ext(e.Name()) != ".db" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat backup %s: %w", e.Name(), err)
		}
		backups = append(backups, BackupInfo{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

// Restore replaces the database at dst with the backup at src. The
// repository using dst must be closed first.
func Restore(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	tmp := dst + ".restore"
	if err := copyFile(src, tmp); err != nil {
		return err
	}

	// Opening runs migrations, so an older backup is upgraded before it goes live.
	repo, err := NewSQLiteRepository(tmp)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("validate backup: %w", err)
	}
	if err := repo.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close restored database: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dst + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", dst+suffix, err)
		}
		os.Remove(tmp + suffix)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}

	slog.Warn("Database restored from backup", "backup", src, "path", dst)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create restore file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy backup: %w", err)
	}
	return out.Close()
}
