package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultServiceName     = "catalog-api"
	defaultUsersAPIURL     = "http://users-api:4001"
	defaultUsersTimeout    = 5 * time.Second
	defaultMongoDatabase   = "shop"
	defaultMigrationsPath  = "migrations/catalog"
	defaultShutdownTimeout = 10 * time.Second

	defaultDBMaxOpenConns    = 25
	defaultDBMaxIdleConns    = 5
	defaultDBConnMaxLifetime = 5 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

// Backend selects which persistence engine the service runs on.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendMongo    Backend = "mongo"
)

type Catalog struct {
	Backend        Backend
	DatabaseURL    string
	MongoURI       string
	MongoDatabase  string
	RabbitMQURL    string
	UsersAPIURL    string
	UsersTimeout   time.Duration
	HTTPAddr       string
	ServiceName    string
	MigrationsPath string

	ShutdownTimeout   time.Duration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBPingTimeout     time.Duration
	ReadHeaderTimeout time.Duration
}

// LoadCatalog reads configuration from the environment. Exactly one of
// DATABASE_URL (relational backend) and MONGO_URI (document backend) must be
// set; the active backend follows from which one is present. RABBITMQ_URL is
// optional: without it the service runs with change events disabled.
func LoadCatalog() (Catalog, error) {
	cfg := Catalog{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MongoURI:       getEnv("MONGO_URI", ""),
		MongoDatabase:  getEnv("MONGO_DATABASE", defaultMongoDatabase),
		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		UsersAPIURL:    getEnv("USERS_API_URL", defaultUsersAPIURL),
		UsersTimeout:   getEnvSeconds("USERS_TIMEOUT", defaultUsersTimeout),
		HTTPAddr:       getEnv("HTTP_ADDR", defaultHTTPAddr),
		ServiceName:    getEnv("SERVICE_NAME", defaultServiceName),
		MigrationsPath: getEnv("MIGRATIONS_PATH", defaultMigrationsPath),

		ShutdownTimeout:   defaultShutdownTimeout,
		DBMaxOpenConns:    defaultDBMaxOpenConns,
		DBMaxIdleConns:    defaultDBMaxIdleConns,
		DBConnMaxLifetime: defaultDBConnMaxLifetime,
		DBPingTimeout:     defaultDBPingTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	switch {
	case cfg.DatabaseURL != "" && cfg.MongoURI != "":
		return Catalog{}, fmt.Errorf("DATABASE_URL and MONGO_URI are mutually exclusive")
	case cfg.DatabaseURL != "":
		cfg.Backend = BackendPostgres
	case cfg.MongoURI != "":
		cfg.Backend = BackendMongo
	default:
		return Catalog{}, fmt.Errorf("one of DATABASE_URL or MONGO_URI is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	sec, err := strconv.Atoi(value)
	if err != nil || sec < 1 {
		return fallback
	}
	return time.Duration(sec) * time.Second
}
