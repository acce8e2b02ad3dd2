// backup.go - Scheduled database backups.
//
// Runs pg_dump on an interval, gzips the output, applies a retention
// policy, and optionally copies each archive to the MinIO bucket under
// a backups/ prefix.
package server

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BackupConfig contains configuration for database backup operations.
type BackupConfig struct {
	Enabled       bool          // Enable automated backups
	Interval      time.Duration // Backup interval (e.g. 24h for daily)
	RetentionDays int           // Number of days to retain local backups
	BackupDir     string        // Directory to store backup files
	DatabaseURL   string        // PostgreSQL connection string
	UploadToS3    bool          // Copy archives to the MinIO bucket
	S3Prefix      string        // Object key prefix for uploaded archives
}

// BackupManager handles scheduled database backups.
type BackupManager struct {
	config   BackupConfig
	minio    *minio.Client
	bucket   string
	stopChan chan struct{}
}

// NewBackupManager creates a new backup manager. The MinIO client may
// be nil; uploads are then skipped regardless of configuration.
func NewBackupManager(config BackupConfig, mc *minio.Client, bucket string) *BackupManager {
	return &BackupManager{
		config:   config,
		minio:    mc,
		bucket:   bucket,
		stopChan: make(chan struct{}),
	}
}

// Start begins the automated backup scheduler.
func (bm *BackupManager) Start() {
	if !bm.config.Enabled {
		Info("database backups disabled", nil)
		return
	}

	if err := os.MkdirAll(bm.config.BackupDir, 0750); err != nil {
		Error("failed to create backup directory", map[string]any{
			"dir": bm.config.BackupDir,
		}, err)
		return
	}

	Info("database backup scheduler started", map[string]any{
		"interval":       bm.config.Interval.String(),
		"retention_days": bm.config.RetentionDays,
		"backup_dir":     bm.config.BackupDir,
		"upload_to_s3":   bm.config.UploadToS3,
	})

	go func() {
		// First backup right away, then on the ticker.
		if err := bm.performBackup(); err != nil {
			Error("initial backup failed", nil, err)
		}

		ticker := time.NewTicker(bm.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := bm.performBackup(); err != nil {
					Error("scheduled backup failed", nil, err)
				}
			case <-bm.stopChan:
				Info("backup scheduler stopped", nil)
				return
			}
		}
	}()
}

// Stop halts the backup scheduler.
func (bm *BackupManager) Stop() {
	close(bm.stopChan)
}

// performBackup executes one backup cycle.
func (bm *BackupManager) performBackup() error {
	start := time.Now()

	filename := fmt.Sprintf("prep-backup-%s.sql.gz", start.Format("20060102-150405"))
	backupPath := filepath.Join(bm.config.BackupDir, filename)

	if err := bm.dumpDatabase(backupPath); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	fileInfo, err := os.Stat(backupPath)
	if err != nil {
		return fmt.Errorf("stat backup file: %w", err)
	}

	Info("database backup completed", map[string]any{
		"filename":    filename,
		"size_bytes":  fileInfo.Size(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if bm.config.UploadToS3 && bm.minio != nil {
		if err := bm.uploadToS3(backupPath, filename); err != nil {
			Error("failed to upload backup to S3", map[string]any{"filename": filename}, err)
		} else {
			Info("backup uploaded to S3", map[string]any{
				"bucket": bm.bucket,
				"key":    bm.objectKey(filename),
			})
		}
	}

	if err := bm.cleanupOldBackups(); err != nil {
		Warn("failed to cleanup old backups", map[string]any{"error": err.Error()})
	}

	return nil
}

// dumpDatabase runs pg_dump and gzips its output into outputPath.
// pg_dump accepts a connection URI directly, so the DATABASE_URL is
// passed through unparsed.
func (bm *BackupManager) dumpDatabase(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	gzWriter := gzip.NewWriter(file)
	defer func() { _ = gzWriter.Close() }()

	cmd := exec.Command("pg_dump",
		"--format=plain",
		"--no-owner",
		"--no-acl",
		"--dbname="+bm.config.DatabaseURL,
	)
	cmd.Stdout = gzWriter
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("pg_dump failed: %w", err)
	}
	return nil
}

func (bm *BackupManager) objectKey(filename string) string {
	prefix := bm.config.S3Prefix
	if prefix == "" {
		prefix = "backups"
	}
	return prefix + "/" + filename
}

// uploadToS3 copies a finished archive into the MinIO bucket.
func (bm *BackupManager) uploadToS3(localPath, filename string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	_, err = bm.minio.PutObject(ctx, bm.bucket, bm.objectKey(filename),
		file, info.Size(), minio.PutObjectOptions{ContentType: "application/gzip"})
	return err
}

// cleanupOldBackups removes local archives older than the retention period.
func (bm *BackupManager) cleanupOldBackups() error {
	cutoffTime := time.Now().AddDate(0, 0, -bm.config.RetentionDays)

	files, err := os.ReadDir(bm.config.BackupDir)
	if err != nil {
		return fmt.Errorf("read backup directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), "prep-backup-") {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			filePath := filepath.Join(bm.config.BackupDir, file.Name())
			if err := os.Remove(filePath); err != nil {
				Warn("failed to remove old backup", map[string]any{
					"file":  file.Name(),
					"error": err.Error(),
				})
			} else {
				Info("removed old backup", map[string]any{
					"file": file.Name(),
					"age":  time.Since(info.ModTime()).String(),
				})
			}
		}
	}

	return nil
}

// ListBackups returns available local archives, newest first.
func (bm *BackupManager) ListBackups() ([]BackupInfo, error) {
	files, err := os.ReadDir(bm.config.BackupDir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), "prep-backup-") {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  file.Name(),
			Size:      info.Size(),
			Timestamp: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// BackupInfo contains metadata about a backup archive.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size_bytes"`
	Timestamp time.Time `json:"timestamp"`
}

func parseDurationEnv(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}

// LoadBackupConfig loads backup configuration from environment variables.
func LoadBackupConfig() BackupConfig {
	enabled := getenvDefault("PREP_BACKUP_ENABLED", "false") == "true"

	interval := 24 * time.Hour
	if raw := os.Getenv("PREP_BACKUP_INTERVAL"); raw != "" {
		if d, err := parseDurationEnv(raw); err == nil {
			interval = d
		}
	}

	retentionDays := 7
	if raw := os.Getenv("PREP_BACKUP_RETENTION_DAYS"); raw != "" {
		if days, err := strconv.Atoi(raw); err == nil && days > 0 {
			retentionDays = days
		}
	}

	return BackupConfig{
		Enabled:       enabled,
		Interval:      interval,
		RetentionDays: retentionDays,
		BackupDir:     getenvDefault("PREP_BACKUP_DIR", "/var/backups/prep-portal"),
		DatabaseURL:   getenvDefault("DATABASE_URL", ""),
		UploadToS3:    getenvDefault("PREP_BACKUP_S3_ENABLED", "false") == "true",
		S3Prefix:      getenvDefault("PREP_BACKUP_S3_PREFIX", "backups"),
	}
}

func getenvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
