package config

import (
	"fmt"
	"os"
)

type DatabaseConfig struct {
	Driver string
	DSN    string
}

// GetDatabaseConfig picks the SQL driver from DB_DRIVER. sqlite (the default)
// stores into SQLITE_PATH, mysql uses GetDatabaseDSN.
func GetDatabaseConfig() DatabaseConfig {
	switch driver := getEnv("DB_DRIVER", "sqlite"); driver {
	case "mysql":
		return DatabaseConfig{Driver: "mysql", DSN: GetDatabaseDSN()}
	default:
		return DatabaseConfig{Driver: driver, DSN: getEnv("SQLITE_PATH", "data/airwatch.db")}
	}
}

// Returns the MySQL connection string
// It checks for environment variables first, then falls back to a default
func GetDatabaseDSN() string {
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_NAME")

	if user != "" && password != "" && host != "" && port != "" && database != "" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, password, host, port, database)
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		return dsn
	}

	return "airwatch:airwatch@tcp(localhost:3306)/airwatch?parseTime=true"
}
