// Package reliability provides database backup and restore plumbing: atomic
// local snapshots via VACUUM INTO, compressed archives shipped to S3, and
// retention pruning of old remote archives.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/database"
)

// BackupService stages consistent copies of the databases and uploads them as
// one compressed archive per run. cache.db is excluded: it is disposable by
// construction.
type BackupService struct {
	databases map[string]*database.DB
	cfg       *config.Config
	uploader  *manager.Uploader
	s3Client  *s3.Client
	log       zerolog.Logger
}

// NewBackupService creates a backup service. Returns an error when backup
// credentials are configured but the S3 client cannot be built.
func NewBackupService(databases map[string]*database.DB, cfg *config.Config, log zerolog.Logger) (*BackupService, error) {
	svc := &BackupService{
		databases: databases,
		cfg:       cfg,
		log:       log.With().Str("service", "backup").Logger(),
	}

	if !cfg.BackupEnabled() {
		return svc, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.BackupRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.BackupKeyID, cfg.BackupSecretKey, ""),
		),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	svc.s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BackupEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BackupEndpoint)
			o.UsePathStyle = true
		}
	})
	svc.uploader = manager.NewUploader(svc.s3Client)
	return svc, nil
}

// Backup stages every database, verifies the copies, archives them, and
// uploads the archive. With no S3 configuration the staged archive stays
// local under <data_dir>/backups.
func (s *BackupService) Backup() error {
	started := time.Now()
	stageDir, err := os.MkdirTemp("", "quantfolio-backup-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stageDir)

	var staged []string
	for name, db := range s.databases {
		if name == "cache" {
			continue
		}
		backupPath := filepath.Join(stageDir, name+".db")
		if err := s.stageDatabase(db, backupPath); err != nil {
			return fmt.Errorf("failed to stage %s: %w", name, err)
		}
		if err := s.verifyBackup(backupPath); err != nil {
			return fmt.Errorf("staged copy of %s failed verification: %w", name, err)
		}
		staged = append(staged, backupPath)
	}
	sort.Strings(staged)

	archiveName := fmt.Sprintf("quantfolio_%s.tar.gz", started.UTC().Format("2006-01-02_150405"))
	archivePath := filepath.Join(stageDir, archiveName)
	if err := s.writeArchive(archivePath, staged); err != nil {
		return err
	}

	if s.uploader == nil {
		localDir := filepath.Join(s.cfg.DataDir, "backups")
		if err := os.MkdirAll(localDir, 0o755); err != nil {
			return fmt.Errorf("failed to create local backup directory: %w", err)
		}
		localPath := filepath.Join(localDir, archiveName)
		if err := copyFile(archivePath, localPath); err != nil {
			return err
		}
		s.log.Info().Str("path", localPath).Msg("Backup archived locally (no S3 configured)")
		return nil
	}

	if err := s.upload(archivePath, archiveName); err != nil {
		return err
	}
	if err := s.pruneRemote(); err != nil {
		// Upload succeeded; stale archives only cost storage.
		s.log.Warn().Err(err).Msg("Failed to prune old backups")
	}

	s.log.Info().
		Dur("duration_ms", time.Since(started)).
		Str("archive", archiveName).
		Msg("Backup completed")
	return nil
}

// stageDatabase copies one database atomically with VACUUM INTO, producing a
// compacted copy with no WAL sidecar.
func (s *BackupService) stageDatabase(db *database.DB, backupPath string) error {
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", backupPath)); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return fmt.Errorf("failed to stat backup: %w", err)
	}
	s.log.Debug().
		Str("database", db.Name()).
		Float64("size_mb", float64(info.Size())/1024/1024).
		Msg("Database staged")
	return nil
}

// verifyBackup opens the staged copy and runs an integrity check.
func (s *BackupService) verifyBackup(backupPath string) error {
	db, err := sql.Open("sqlite", backupPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open staged copy: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned %q", result)
	}
	return nil
}

// writeArchive bundles the staged files into one tar.gz.
func (s *BackupService) writeArchive(archivePath string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, path := range files {
		if err := addToArchive(tw, path); err != nil {
			return err
		}
	}
	return nil
}

func addToArchive(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header: %w", err)
	}
	header.Name = filepath.Base(path)

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", path, err)
	}
	return nil
}

// upload ships the archive to the configured bucket.
func (s *BackupService) upload(archivePath, archiveName string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	_, err = s.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.BackupBucket),
		Key:    aws.String("backups/" + archiveName),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Str("bucket", s.cfg.BackupBucket).
		Str("key", "backups/"+archiveName).
		Msg("Backup uploaded")
	return nil
}

// RestoreLatest downloads the newest remote archive and unpacks the database
// copies into <data_dir>/restore/<archive-name>. It never touches the live
// databases; swapping the staged files in is a deliberate operator step.
func (s *BackupService) RestoreLatest() (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("restore requires S3 backup configuration")
	}

	var latestKey string
	var latestTime time.Time
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.BackupBucket),
		Prefix: aws.String("backups/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return "", fmt.Errorf("failed to list backups: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil || !strings.HasSuffix(*obj.Key, ".tar.gz") {
				continue
			}
			if obj.LastModified.After(latestTime) {
				latestKey = *obj.Key
				latestTime = *obj.LastModified
			}
		}
	}
	if latestKey == "" {
		return "", fmt.Errorf("no backup archives found in bucket %s", s.cfg.BackupBucket)
	}

	archiveFile, err := os.CreateTemp("", "quantfolio-restore-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("failed to create restore download: %w", err)
	}
	defer os.Remove(archiveFile.Name())
	defer archiveFile.Close()

	downloader := manager.NewDownloader(s.s3Client)
	if _, err := downloader.Download(context.Background(), archiveFile, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.BackupBucket),
		Key:    aws.String(latestKey),
	}); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", latestKey, err)
	}

	stageName := strings.TrimSuffix(filepath.Base(latestKey), ".tar.gz")
	stageDir := filepath.Join(s.cfg.DataDir, "restore", stageName)
	if err := s.extractArchive(archiveFile.Name(), stageDir); err != nil {
		return "", err
	}

	s.log.Info().
		Str("archive", latestKey).
		Str("staged_to", stageDir).
		Msg("Backup staged for restore")
	return stageDir, nil
}

// extractArchive unpacks the .db members of a backup archive into dir,
// verifying each staged copy before reporting success.
func (s *BackupService) extractArchive(archivePath, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create restore directory: %w", err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}
		name := filepath.Base(header.Name)
		if header.Typeflag != tar.TypeReg || !strings.HasSuffix(name, ".db") {
			continue
		}
		dst := filepath.Join(dir, name)
		out, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", dst, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("failed to extract %s: %w", name, err)
		}
		out.Close()
		if err := s.verifyBackup(dst); err != nil {
			return fmt.Errorf("restored copy of %s failed verification: %w", name, err)
		}
	}
	return nil
}

// pruneRemote deletes archives older than the retention window.
func (s *BackupService) pruneRemote() error {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.BackupRetention)

	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.BackupBucket),
		Prefix: aws.String("backups/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list backups: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if !strings.HasSuffix(*obj.Key, ".tar.gz") || !obj.LastModified.Before(cutoff) {
				continue
			}

			_, err := s.s3Client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
				Bucket: aws.String(s.cfg.BackupBucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", *obj.Key, err)
			}
			s.log.Debug().Str("key", *obj.Key).Msg("Old backup pruned")
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}
