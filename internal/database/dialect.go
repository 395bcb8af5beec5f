package database

type dialect struct {
	name   string
	schema []string
	// insertIgnore prefixes inserts that skip rows violating a unique key
	insertIgnore  string
	upsertSetting string
}

var dialects = map[string]dialect{
	"mysql":  mysqlDialect,
	"sqlite": sqliteDialect,
}

var mysqlDialect = dialect{
	name:         "mysql",
	insertIgnore: "INSERT IGNORE",
	upsertSetting: `INSERT INTO settings (setting_key, setting_value, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value), updated_at = VALUES(updated_at)`,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS measurements (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			location VARCHAR(255) NOT NULL,
			pollutant VARCHAR(16) NOT NULL,
			timestamp DATETIME(6) NOT NULL,
			concentration DOUBLE NOT NULL,
			unit VARCHAR(16) NOT NULL,
			UNIQUE KEY uq_measurements (location, pollutant, timestamp),
			INDEX idx_measurements_timestamp (timestamp)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS aqi_snapshots (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			location VARCHAR(255) NOT NULL,
			timestamp DATETIME(6) NOT NULL,
			pollutant VARCHAR(16) NOT NULL,
			aqi INT NOT NULL,
			category VARCHAR(64) NOT NULL,
			INDEX idx_aqi_snapshots_location (location, timestamp)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS training_runs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			location VARCHAR(255) NOT NULL,
			pollutant VARCHAR(16) NOT NULL,
			trained_at DATETIME(6) NOT NULL,
			samples INT NOT NULL,
			train_r2 DOUBLE NOT NULL,
			holdout_r2 DOUBLE NOT NULL,
			version BIGINT UNSIGNED NOT NULL,
			INDEX idx_training_runs_series (location, pollutant, trained_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS locations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			country VARCHAR(64) NOT NULL DEFAULT '',
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			UNIQUE KEY uq_locations_name (name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS favorites (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			location_id VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			country VARCHAR(64) NOT NULL DEFAULT '',
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			added_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_favorites_location (location_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			location_id VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			country VARCHAR(64) NOT NULL DEFAULT '',
			viewed_at DATETIME(6) NOT NULL,
			INDEX idx_history_viewed (viewed_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS settings (
			setting_key VARCHAR(128) PRIMARY KEY,
			setting_value TEXT NOT NULL,
			updated_at DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}

var sqliteDialect = dialect{
	name:         "sqlite",
	insertIgnore: "INSERT OR IGNORE",
	upsertSetting: `INSERT INTO settings (setting_key, setting_value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(setting_key) DO UPDATE SET setting_value = excluded.setting_value, updated_at = excluded.updated_at`,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS measurements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location TEXT NOT NULL,
			pollutant TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			concentration REAL NOT NULL,
			unit TEXT NOT NULL,
			UNIQUE (location, pollutant, timestamp)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_timestamp ON measurements (timestamp)`,

		`CREATE TABLE IF NOT EXISTS aqi_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			pollutant TEXT NOT NULL,
			aqi INTEGER NOT NULL,
			category TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aqi_snapshots_location ON aqi_snapshots (location, timestamp)`,

		`CREATE TABLE IF NOT EXISTS training_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location TEXT NOT NULL,
			pollutant TEXT NOT NULL,
			trained_at DATETIME NOT NULL,
			samples INTEGER NOT NULL,
			train_r2 REAL NOT NULL,
			holdout_r2 REAL NOT NULL,
			version INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_training_runs_series ON training_runs (location, pollutant, trained_at)`,

		`CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			country TEXT NOT NULL DEFAULT '',
			latitude REAL NOT NULL,
			longitude REAL NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS favorites (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT '',
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			added_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id TEXT NOT NULL,
			name TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT '',
			viewed_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_viewed ON history (viewed_at)`,

		`CREATE TABLE IF NOT EXISTS settings (
			setting_key TEXT PRIMARY KEY,
			setting_value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	},
}
