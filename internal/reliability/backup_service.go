// Package reliability keeps the record databases recoverable: scheduled snapshots,
// optional off-site upload and routine SQLite maintenance.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/database"
	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/rs/zerolog"
)

const (
	archivePrefix    = "reinsurance-backup-"
	archiveSuffix    = ".tar.gz"
	archiveTimestamp = "2006-01-02-150405"
	metadataFile     = "backup-metadata.json"

	// minBackupsToKeep survive rotation regardless of age
	minBackupsToKeep = 3
)

// BackupMetadata is written into every archive.
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Version   string             `json:"version"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes one database file in an archive.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo is a stored archive.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupResult summarizes one CreateBackup call.
type BackupResult struct {
	Archive   string             `json:"archive"`
	Path      string             `json:"path"`
	SizeBytes int64              `json:"size_bytes"`
	Remote    string             `json:"remote,omitempty"`
	Databases []DatabaseMetadata `json:"databases"`
	Duration  time.Duration      `json:"duration_ns"`
}

// BackupService snapshots the databases into a tar.gz archive under dataDir/backups
// and optionally ships it to an ObjectStore.
type BackupService struct {
	databases     map[string]*database.DB
	backupDir     string
	store         ObjectStore
	retentionDays int
	events        *events.Manager
	now           func() time.Time
	mu            sync.Mutex
	log           zerolog.Logger
}

// NewBackupService creates a backup service. store and eventManager may be nil.
// retentionDays <= 0 keeps archives forever.
func NewBackupService(
	databases map[string]*database.DB,
	dataDir string,
	store ObjectStore,
	retentionDays int,
	eventManager *events.Manager,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		databases:     databases,
		backupDir:     filepath.Join(dataDir, "backups"),
		store:         store,
		retentionDays: retentionDays,
		events:        eventManager,
		now:           time.Now,
		log:           log.With().Str("service", "backup").Logger(),
	}
}

// BackupDir returns where local archives are kept.
func (s *BackupService) BackupDir() string {
	return s.backupDir
}

// DatabaseNames returns the backed-up database names in stable order.
func (s *BackupService) DatabaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name, db := range s.databases {
		if db != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CreateBackup snapshots every database with VACUUM INTO, archives the copies with a
// checksummed manifest, uploads the archive when a store is configured and rotates
// old archives. Concurrent calls are serialized.
func (s *BackupService) CreateBackup(ctx context.Context) (*BackupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	stamp := s.now().UTC()
	s.log.Info().Msg("Starting backup")

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	stagingDir, err := os.MkdirTemp(s.backupDir, "staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	names := s.DatabaseNames()
	metadata := BackupMetadata{
		Timestamp: stamp,
		Version:   "1",
		Databases: make([]DatabaseMetadata, 0, len(names)),
	}
	files := make([]string, 0, len(names)+1)

	for _, name := range names {
		filename := name + ".db"
		path := filepath.Join(stagingDir, filename)

		if err := s.databases[name].VacuumInto(ctx, path); err != nil {
			return nil, fmt.Errorf("failed to snapshot %s: %w", name, err)
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s snapshot: %w", name, err)
		}
		checksum, err := fileChecksum(path)
		if err != nil {
			return nil, fmt.Errorf("failed to checksum %s snapshot: %w", name, err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      name,
			Filename:  filename,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		files = append(files, filename)
	}

	if err := writeMetadata(filepath.Join(stagingDir, metadataFile), metadata); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}
	files = append(files, metadataFile)

	archiveName := archivePrefix + stamp.Format(archiveTimestamp) + archiveSuffix
	archivePath := filepath.Join(s.backupDir, archiveName)
	if err := createArchive(archivePath, stagingDir, files); err != nil {
		_ = os.Remove(archivePath)
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	result := &BackupResult{
		Archive:   archiveName,
		Path:      archivePath,
		SizeBytes: info.Size(),
		Databases: metadata.Databases,
	}

	if s.store != nil {
		if err := s.upload(ctx, archivePath, archiveName, info.Size()); err != nil {
			return nil, err
		}
		result.Remote = archiveName
	}

	if err := s.Rotate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	result.Duration = time.Since(start)
	s.log.Info().
		Str("archive", archiveName).
		Int64("size_bytes", result.SizeBytes).
		Bool("uploaded", result.Remote != "").
		Dur("duration_ms", result.Duration).
		Msg("Backup completed")

	s.events.EmitTyped("reliability", &events.BackupCompletedData{
		Path:      archivePath,
		Remote:    result.Remote,
		SizeBytes: result.SizeBytes,
	})
	return result, nil
}

func (s *BackupService) upload(ctx context.Context, path, key string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if err := s.store.Upload(ctx, key, f, size); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	return nil
}

// ListBackups returns local archives, newest first.
func (s *BackupService) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, ok := parseArchiveName(e.Name())
		if !ok {
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		backups = append(backups, BackupInfo{
			Filename:  e.Name(),
			Timestamp: ts,
			SizeBytes: size,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}
	sortNewestFirst(backups)
	return backups, nil
}

// ListRemoteBackups returns archives in the object store, newest first.
func (s *BackupService) ListRemoteBackups(ctx context.Context) ([]BackupInfo, error) {
	if s.store == nil {
		return []BackupInfo{}, nil
	}
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		ts, ok := parseArchiveName(obj.Key)
		if !ok {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: ts,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}
	sortNewestFirst(backups)
	return backups, nil
}

// Rotate deletes archives older than the retention period, locally and remotely.
// The newest minBackupsToKeep archives are always kept.
func (s *BackupService) Rotate(ctx context.Context) error {
	if s.retentionDays <= 0 {
		return nil
	}
	cutoff := s.now().AddDate(0, 0, -s.retentionDays)

	local, err := s.ListBackups()
	if err != nil {
		return err
	}
	deleted := 0
	for _, b := range expired(local, cutoff) {
		if err := os.Remove(filepath.Join(s.backupDir, b.Filename)); err != nil {
			s.log.Warn().Err(err).Str("filename", b.Filename).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	if s.store != nil {
		remote, err := s.ListRemoteBackups(ctx)
		if err != nil {
			return err
		}
		for _, b := range expired(remote, cutoff) {
			if err := s.store.Delete(ctx, b.Filename); err != nil {
				s.log.Warn().Err(err).Str("filename", b.Filename).Msg("Failed to delete old remote backup")
				continue
			}
			deleted++
		}
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Int("retention_days", s.retentionDays).Msg("Rotated old backups")
	}
	return nil
}

// expired expects backups sorted newest first.
func expired(backups []BackupInfo, cutoff time.Time) []BackupInfo {
	var out []BackupInfo
	for i, b := range backups {
		if i < minBackupsToKeep {
			continue
		}
		if b.Timestamp.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out
}

func parseArchiveName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
	ts, err := time.Parse(archiveTimestamp, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func sortNewestFirst(backups []BackupInfo) {
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(metadata)
}

func createArchive(archivePath, sourceDir string, files []string) (err error) {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	for _, name := range files {
		if err := addFileToArchive(tw, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addFileToArchive(tw *tar.Writer, path, nameInArchive string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if err := tw.WriteHeader(&tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode().Perm()),
		ModTime: info.ModTime(),
	}); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
