package storage

import "codeberg.org/mutker/sensorchart/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("storage_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("storage_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("storage_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("storage_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("storage_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Record Errors
	ErrInvalidRecord = errors.ErrorCode("storage_invalid_record")
	ErrQueryFailed   = errors.ErrorCode("storage_query_failed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
	ErrClosed           = errors.ErrClosed
)
