package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig is the environment surface read by WithEnv. Unset variables
// leave the corresponding setting untouched.
type envConfig struct {
	Port             string `env:"PORT" env-description:"HTTP listen port"`
	Environment      string `env:"ENVIRONMENT" env-description:"development, production or testing"`
	LogLevel         string `env:"LOG_LEVEL" env-description:"debug, info, warn or error"`
	DatabaseURL      string `env:"DATABASE_URL" env-description:"metadata store connection string"`
	DBSchema         string `env:"DB_SCHEMA" env-description:"Postgres schema"`
	StorageURL       string `env:"STORAGE_URL" env-description:"blob store connection string"`
	DefaultContainer string `env:"DEFAULT_CONTAINER" env-description:"container for application images"`
	FetchConcurrency int    `env:"FETCH_CONCURRENCY" env-description:"parallel blob downloads per query"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-description:"comma separated origins allowed by CORS"`

	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION"`
}

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT - Server port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//	LOG_LEVEL - Log level (default: debug in development, info in production)
//	CORS_ALLOWED_ORIGINS - comma separated CORS origins (default: "*" in development only)
//
// Metadata store:
//
//	DATABASE_URL - one of:
//	  - "memory" or empty - in-memory store (default)
//	  - "postgres://..." or "postgresql://..." - PostgreSQL
//	  - "sqlite:///path/to/images.db" - SQLite file
//	  - "badger:///path/to/dir" - Badger directory
//	  - "mongodb://host/database" or "mongodb+srv://..." - MongoDB
//	DB_SCHEMA - Postgres schema
//
// Blob store:
//
//	STORAGE_URL - one of:
//	  - "memory://" - in-memory storage (default)
//	  - "file:///path/to/data" - filesystem storage
//	  - "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true&create_bucket=true"
//	AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION - S3 credentials and region
//
// Catalog:
//
//	DEFAULT_CONTAINER - container for application images (default: "appimages")
//	FETCH_CONCURRENCY - parallel blob downloads per query (default: 1)
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if env.Port != "" {
			c.Port = env.Port
		}
		if env.Environment != "" {
			c.Environment = env.Environment
		}
		if env.LogLevel != "" {
			c.LogLevel = env.LogLevel
		}
		if len(env.CORSAllowedOrigins) > 0 {
			if err := WithCORSOrigins(env.CORSAllowedOrigins...)(c); err != nil {
				return err
			}
		}
		if env.DBSchema != "" {
			c.DBSchema = env.DBSchema
		}
		if env.DefaultContainer != "" {
			c.DefaultContainer = env.DefaultContainer
		}
		if env.FetchConcurrency != 0 {
			c.FetchConcurrency = env.FetchConcurrency
		}

		if env.AWSRegion != "" {
			c.Storage.S3.Region = env.AWSRegion
		}
		if env.AWSAccessKeyID != "" {
			c.Storage.S3.AccessKeyID = env.AWSAccessKeyID
		}
		if env.AWSSecretAccessKey != "" {
			c.Storage.S3.SecretAccessKey = env.AWSSecretAccessKey
		}

		if err := applyDatabaseURL(env.DatabaseURL, c); err != nil {
			return err
		}
		return applyStorageURL(env.StorageURL, c)
	}
}

// WithDatabaseURL selects the metadata store from a URL in the DATABASE_URL
// format. An empty URL changes nothing.
func WithDatabaseURL(raw string) Option {
	return func(c *ServerConfig) error {
		return applyDatabaseURL(raw, c)
	}
}

// WithStorageURL selects the blob store from a URL in the STORAGE_URL
// format. An empty URL changes nothing.
func WithStorageURL(raw string) Option {
	return func(c *ServerConfig) error {
		return applyStorageURL(raw, c)
	}
}

// EnvUsage returns a description of the environment variables WithEnv reads.
func EnvUsage() string {
	usage, err := cleanenv.GetDescription(&envConfig{}, nil)
	if err != nil {
		return ""
	}
	return usage
}

// applyDatabaseURL detects the metadata store type from the URL scheme
func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = DatabasePostgres
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "sqlite://"):
		c.DatabaseType = DatabaseSQLite
		c.DatabaseURL = strings.TrimPrefix(dbURL, "sqlite://")
	case strings.HasPrefix(dbURL, "badger://"):
		c.DatabaseType = DatabaseBadger
		c.DatabaseURL = strings.TrimPrefix(dbURL, "badger://")
	case strings.HasPrefix(dbURL, "mongodb://"), strings.HasPrefix(dbURL, "mongodb+srv://"):
		c.DatabaseType = DatabaseMongo
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgresql://...', 'sqlite://...', 'badger://...' or 'mongodb://...')", dbURL)
	}
	return nil
}

// applyStorageURL detects the blob store type from STORAGE_URL
func applyStorageURL(storageURL string, c *ServerConfig) error {
	switch {
	case storageURL == "":
		return nil
	case storageURL == "memory" || storageURL == "memory://":
		c.Storage = StorageConfig{Type: StorageMemory}
		return nil
	case strings.HasPrefix(storageURL, "file://"):
		path := strings.TrimPrefix(storageURL, "file://")
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.Storage = StorageConfig{Type: StorageFS, BaseDir: path}
		return nil
	case strings.HasPrefix(storageURL, "s3://"):
		return applyS3Storage(storageURL, c)
	}
	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
}

// applyS3Storage configures S3 storage from URL. Credentials and a region
// already on the config are kept; a region in the query wins.
// Format: s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true
func applyS3Storage(raw string, c *ServerConfig) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	q := u.Query()
	s3 := c.Storage.S3
	s3.Bucket = u.Host
	s3.Endpoint = q.Get("endpoint")
	if region := q.Get("region"); region != "" {
		s3.Region = region
	}
	if s3.Region == "" {
		s3.Region = "us-east-1"
	}
	if s3.UsePathStyle, err = queryBool(q, "path_style"); err != nil {
		return err
	}
	if s3.CreateBucketIfNotExist, err = queryBool(q, "create_bucket"); err != nil {
		return err
	}

	c.Storage = StorageConfig{Type: StorageS3, S3: s3}
	return nil
}

func queryBool(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for STORAGE_URL %s: %w", key, err)
	}
	return parsed, nil
}
