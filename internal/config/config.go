package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables

    "github.com/joho/godotenv" // optional .env file for local development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBDriver       string // "mysql" or "sqlite"
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    DBPath         string // sqlite database file
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is applied first when it
// exists; variables already set in the environment win.  Required variables
// are enforced by must() and missing values cause the program to exit with a
// fatal log message.  MySQL connection settings are only required when
// DB_DRIVER is mysql.
func Load() Config {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("config: ignoring .env: %v", err)
    }
    cfg := Config{
        Env:            must("APP_ENV"),                          // environment (dev/test/prod)
        Port:           must("APP_PORT"),                         // port to bind the HTTP server
        DBDriver:       envStr("DB_DRIVER", "mysql"),             // storage engine
        DBPass:         os.Getenv("DB_PASS"),                     // database password (empty allowed)
        DBPath:         envStr("DB_PATH", "parking.db"),          // sqlite file
        JWTSecret:      must("JWT_SECRET"),                       // secret used for signing JWTs
        AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),       // TTL for access tokens in minutes
        RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),      // TTL for refresh tokens in days
        BcryptCost:     envInt("BCRYPT_COST", 10),                // bcrypt cost factor
    }
    if cfg.DBDriver == "mysql" {
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
