package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"
)

// PortfolioLister enumerates the portfolios to maintain.
type PortfolioLister interface {
	PortfolioIDs() ([]string, error)
}

// SnapshotExtender fills in missing snapshot days up to today.
type SnapshotExtender interface {
	ExtendToToday(portfolioID string) error
}

// MaterializeJob extends every portfolio's snapshot series to today. Runs
// nightly so weekends and quiet days still get their carry-forward snapshots.
type MaterializeJob struct {
	portfolios PortfolioLister
	extender   SnapshotExtender
	log        zerolog.Logger
}

// NewMaterializeJob creates the nightly materialization job.
func NewMaterializeJob(portfolios PortfolioLister, extender SnapshotExtender, log zerolog.Logger) *MaterializeJob {
	return &MaterializeJob{
		portfolios: portfolios,
		extender:   extender,
		log:        log.With().Str("job", "materialize").Logger(),
	}
}

// Name returns the job name
func (j *MaterializeJob) Name() string { return "nightly_materialize" }

// Run extends all portfolios. Per-portfolio failures are logged and counted
// rather than aborting the sweep; one broken portfolio must not starve the
// rest of their snapshots.
func (j *MaterializeJob) Run() error {
	ids, err := j.portfolios.PortfolioIDs()
	if err != nil {
		return fmt.Errorf("failed to list portfolios: %w", err)
	}

	failures := 0
	for _, id := range ids {
		if err := j.extender.ExtendToToday(id); err != nil {
			j.log.Error().Err(err).Str("portfolio_id", id).Msg("Failed to extend snapshots")
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d portfolios failed to materialize", failures, len(ids))
	}
	return nil
}

// CacheCleaner removes expired cache entries.
type CacheCleaner interface {
	CleanupExpired() (int64, error)
}

// CacheCleanupJob prunes expired derived-figure cache entries.
type CacheCleanupJob struct {
	cache CacheCleaner
	log   zerolog.Logger
}

// NewCacheCleanupJob creates the cache cleanup job.
func NewCacheCleanupJob(cache CacheCleaner, log zerolog.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cache: cache,
		log:   log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string { return "cache_cleanup" }

// Run removes expired entries.
func (j *CacheCleanupJob) Run() error {
	deleted, err := j.cache.CleanupExpired()
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.log.Debug().Int64("deleted", deleted).Msg("Expired cache entries removed")
	}
	return nil
}

// Checkpointer forces a WAL checkpoint on one database.
type Checkpointer interface {
	WALCheckpoint(mode string) error
}

// CheckpointJob checkpoints the WAL of every managed database so the -wal
// files stay bounded between backups.
type CheckpointJob struct {
	databases []Checkpointer
	log       zerolog.Logger
}

// NewCheckpointJob creates the WAL checkpoint job.
func NewCheckpointJob(databases []Checkpointer, log zerolog.Logger) *CheckpointJob {
	return &CheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *CheckpointJob) Name() string { return "wal_checkpoint" }

// Run checkpoints all databases.
func (j *CheckpointJob) Run() error {
	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			return err
		}
	}
	return nil
}

// BackupRunner uploads a backup archive.
type BackupRunner interface {
	Backup() error
}

// BackupJob runs the nightly database backup.
type BackupJob struct {
	backup BackupRunner
	log    zerolog.Logger
}

// NewBackupJob creates the backup job.
func NewBackupJob(backup BackupRunner, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backup: backup,
		log:    log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string { return "database_backup" }

// Run performs the backup.
func (j *BackupJob) Run() error {
	return j.backup.Backup()
}
