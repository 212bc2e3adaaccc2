package storage

import (
	"database/sql"
	"strings"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/logger"
	"codeberg.org/mutker/sensorchart/internal/measurement"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS records (
	       sensor_id        TEXT NOT NULL,
	       timestamp        INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       temperature      REAL,
	       humidity         REAL,
	       pressure         REAL,
	       co2              REAL,
	       pm1              REAL,
	       pm25             REAL,
	       pm4              REAL,
	       pm10             REAL,
	       voc              REAL,
	       nox              REAL,
	       luminosity       REAL,
	       sound_instant    REAL,
	       sound_average    REAL,
	       sound_peak       REAL,
	       voltage          REAL,
	       rssi             REAL,
	       acceleration_x   REAL,
	       acceleration_y   REAL,
	       acceleration_z   REAL,
	       movement_counter REAL,
	       PRIMARY KEY (sensor_id, timestamp)
	   );
	   CREATE TABLE IF NOT EXISTS alerts (
	       sensor_id TEXT NOT NULL,
	       kind      TEXT NOT NULL,
	       enabled   INTEGER NOT NULL CHECK (enabled IN (0, 1)),
	       lower     REAL,
	       upper     REAL,
	       PRIMARY KEY (sensor_id, kind)
	   );
	   CREATE TABLE IF NOT EXISTS calibrations (
	       sensor_id          TEXT PRIMARY KEY,
	       temperature_offset REAL NOT NULL DEFAULT 0,
	       humidity_offset    REAL NOT NULL DEFAULT 0,
	       pressure_offset    REAL NOT NULL DEFAULT 0
	   );`

	upsertAlertSQL = `
    INSERT INTO alerts (sensor_id, kind, enabled, lower, upper)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT (sensor_id, kind) DO UPDATE SET
        enabled = excluded.enabled,
        lower = excluded.lower,
        upper = excluded.upper`

	selectAlertSQL = `
    SELECT enabled, lower, upper
    FROM alerts
    WHERE sensor_id = ? AND kind = ?`

	upsertCalibrationSQL = `
    INSERT INTO calibrations (sensor_id, temperature_offset, humidity_offset, pressure_offset)
    VALUES (?, ?, ?, ?)
    ON CONFLICT (sensor_id) DO UPDATE SET
        temperature_offset = excluded.temperature_offset,
        humidity_offset = excluded.humidity_offset,
        pressure_offset = excluded.pressure_offset`

	selectCalibrationSQL = `
    SELECT temperature_offset, humidity_offset, pressure_offset
    FROM calibrations
    WHERE sensor_id = ?`
)

// columns maps record quantities to the records table, in table order.
var columns = []struct {
	quantity measurement.Quantity
	name     string
}{
	{measurement.QuantityTemperature, "temperature"},
	{measurement.QuantityHumidity, "humidity"},
	{measurement.QuantityPressure, "pressure"},
	{measurement.QuantityCO2, "co2"},
	{measurement.QuantityPM1, "pm1"},
	{measurement.QuantityPM25, "pm25"},
	{measurement.QuantityPM4, "pm4"},
	{measurement.QuantityPM10, "pm10"},
	{measurement.QuantityVOC, "voc"},
	{measurement.QuantityNOx, "nox"},
	{measurement.QuantityLuminosity, "luminosity"},
	{measurement.QuantitySoundInstant, "sound_instant"},
	{measurement.QuantitySoundAverage, "sound_average"},
	{measurement.QuantitySoundPeak, "sound_peak"},
	{measurement.QuantityVoltage, "voltage"},
	{measurement.QuantityRSSI, "rssi"},
	{measurement.QuantityAccelerationX, "acceleration_x"},
	{measurement.QuantityAccelerationY, "acceleration_y"},
	{measurement.QuantityAccelerationZ, "acceleration_z"},
	{measurement.QuantityMovementCounter, "movement_counter"},
}

var (
	insertRecordSQL    = buildInsertRecordSQL()
	selectRangeSQL     = buildSelectRecordsSQL("timestamp >= ?")
	selectSinceSQL     = buildSelectRecordsSQL("timestamp > ?")
	selectBucketedSQL  = buildSelectBucketedSQL()
	selectTimeSpanSQL  = `SELECT MIN(timestamp), MAX(timestamp) FROM records WHERE sensor_id = ? AND timestamp >= ?`
	countRecordsSQL    = `SELECT COUNT(*) FROM records WHERE sensor_id = ?`
	deleteOlderThanSQL = `DELETE FROM records WHERE timestamp < ?`
)

func columnNames() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}

func buildInsertRecordSQL() string {
	names := columnNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)+2), ", ")
	return "INSERT OR REPLACE INTO records (sensor_id, timestamp, " +
		strings.Join(names, ", ") + ") VALUES (" + placeholders + ")"
}

func buildSelectRecordsSQL(condition string) string {
	return "SELECT sensor_id, timestamp, " + strings.Join(columnNames(), ", ") +
		" FROM records WHERE sensor_id = ? AND " + condition + " ORDER BY timestamp"
}

// buildSelectBucketedSQL averages every column per bucket. Buckets are
// anchored at the first timestamp of the range and stamped with their
// newest sample. Parameters: sensor ID, since, start, width, limit.
func buildSelectBucketedSQL() string {
	averages := make([]string, len(columns))
	for i, c := range columns {
		averages[i] = "AVG(" + c.name + ")"
	}
	return "SELECT sensor_id, MAX(timestamp), " + strings.Join(averages, ", ") +
		" FROM records WHERE sensor_id = ? AND timestamp >= ?" +
		" GROUP BY (timestamp - ?) / ? ORDER BY MAX(timestamp) LIMIT ?"
}

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "create_tables",
			Error: err.Error(),
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "record_version",
			Error: err.Error(),
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the current schema version
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
