package storage

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/logger"
	"codeberg.org/mutker/sensorchart/internal/measurement"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite measurement store. It serves history queries, alert
// configuration and calibration, and buffers live records for batched
// insertion.
type Store struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []measurement.Record
	closed        bool
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

func Open(cfg Config, log logger.Logger) (*Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Int("batch_timeout", cfg.BatchTimeout).
		Msg("Measurement store initialized")

	s := &Store{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]measurement.Record, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.BatchSize > 0 && cfg.BatchTimeout > 0 {
		s.flushTicker = time.NewTicker(time.Duration(cfg.BatchTimeout) * time.Second)
		go s.flusher()
	} else {
		close(s.flushDoneChan)
	}

	return s, nil
}

// NewWriter returns the store itself, or a writer that drops records when
// persistence is disabled.
func (s *Store) NewWriter() Writer {
	if !s.cfg.Persist {
		s.logger.Debug().Msg("Record persistence disabled, using no-op writer")
		return nopWriter{}
	}
	return s
}

// Write buffers r and flushes once the batch is full.
func (s *Store) Write(ctx context.Context, r measurement.Record) error {
	errFactory := errors.New()

	if r.SensorID == "" || r.Timestamp.IsZero() {
		return errFactory.WithMessage(ErrInvalidRecord, "record needs a sensor ID and a timestamp")
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errFactory.New(ErrClosed)
	}

	s.buffer = append(s.buffer, r)
	if len(s.buffer) >= s.cfg.BatchSize {
		return s.flush()
	}
	return nil
}

// Flush writes buffered records now.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdownChan)
	if s.flushTicker != nil {
		s.flushTicker.Stop()
	}
	<-s.flushDoneChan

	s.mu.Lock()
	err := s.flush()
	s.mu.Unlock()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to flush records on close")
	}

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := s.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	s.logger.Info().Msg("Measurement store closed gracefully")

	return nil
}

func (s *Store) flusher() {
	defer close(s.flushDoneChan)

	for {
		select {
		case <-s.flushTicker.C:
			s.mu.Lock()
			if err := s.flush(); err != nil {
				s.logger.Error().Err(err).Msg("Periodic flush failed")
			}
			s.mu.Unlock()
		case <-s.shutdownChan:
			return
		}
	}
}

// flush must be called with s.mu held. On failure the buffer is kept for
// the next attempt.
func (s *Store) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertRecordSQL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for i := range s.buffer {
		if _, err := stmt.Exec(recordValues(&s.buffer[i])...); err != nil {
			s.logger.Error().Err(err).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				s.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	s.logger.Debug().Int("records", len(s.buffer)).Msg("Flushed records to database")
	s.buffer = s.buffer[:0]

	return nil
}

func recordValues(r *measurement.Record) []any {
	values := make([]any, 0, len(columns)+2)
	values = append(values, r.SensorID, r.Timestamp.UnixMilli())
	for _, c := range columns {
		if v, ok := r.Value(c.quantity); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		} else {
			values = append(values, nil)
		}
	}
	return values
}

type nopWriter struct{}

func (nopWriter) Write(context.Context, measurement.Record) error { return nil }
func (nopWriter) Flush() error                                    { return nil }
func (nopWriter) Close() error                                    { return nil }
