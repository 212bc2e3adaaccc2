package storage

import (
	"path/filepath"

	"codeberg.org/mutker/sensorchart/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/sensorchart/measurements.db"
	defaultBatchSize    = 50
	defaultBatchTimeout = 5
)

type Config struct {
	DBPath string
	// BackupDir receives a copy of the database before an incompatible
	// schema is replaced. Empty means a "backups" directory next to DBPath.
	BackupDir       string
	BackupOnMigrate bool
	// BatchSize is the number of buffered records that triggers a flush.
	BatchSize int
	// BatchTimeout is the flush interval in seconds. Zero flushes only on
	// a full batch and on Close.
	BatchTimeout int
	// Persist enables writing live records. When false, NewWriter returns
	// a writer that drops them.
	Persist bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:          defaultDBPath,
		BackupOnMigrate: true,
		BatchSize:       defaultBatchSize,
		BatchTimeout:    defaultBatchTimeout,
		Persist:         true,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "batch size and timeout must not be negative")
	}
	return nil
}

func (c Config) backupDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
