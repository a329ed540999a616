package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	RPCAddr  string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// RPCWorkers bounds concurrent RPC request handling; 0 means twice
	// the CPU count.
	RPCWorkers int

	// AdminEmail/AdminPassword seed the admin account at bootstrap.
	// An empty password skips user seeding.
	AdminEmail    string
	AdminPassword string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("WARDEN_HTTP_ADDR", "0.0.0.0:8080"),
		RPCAddr:  EnvString("WARDEN_RPC_ADDR", "127.0.0.1:5555"),
		LogLevel: EnvString("WARDEN_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("WARDEN_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("WARDEN_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("WARDEN_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("WARDEN_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("WARDEN_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("WARDEN_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("WARDEN_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("WARDEN_DB_MIN_CONNS", 0),

		RPCWorkers: EnvInt("WARDEN_RPC_WORKERS", 0),

		AdminEmail:    EnvString("WARDEN_ADMIN_EMAIL", ""),
		AdminPassword: EnvString("WARDEN_ADMIN_PASSWORD", ""),
	}
}
