package config

import (
	"fmt"
	"strings"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *ServerConfig) error {
		c.LogLevel = level
		return nil
	}
}

// WithCORSOrigins sets the origins allowed by CORS. Blank entries are dropped.
func WithCORSOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		var kept []string
		for _, origin := range origins {
			if origin = strings.TrimSpace(origin); origin != "" {
				kept = append(kept, origin)
			}
		}
		c.CORSAllowedOrigins = kept
		return nil
	}
}

// WithDatabase configures the metadata store. For sqlite and badger, url is
// a filesystem path.
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case DatabaseMemory:
			url = ""
		case DatabasePostgres, DatabaseSQLite, DatabaseBadger, DatabaseMongo:
			if url == "" {
				return fmt.Errorf("database URL is required for %s", dbType)
			}
		default:
			return fmt.Errorf("unsupported database type: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithMemoryStorage keeps blobs in process memory
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.Storage = StorageConfig{Type: StorageMemory}
		return nil
	}
}

// WithFilesystemStorage stores each container as a directory under baseDir
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Storage = StorageConfig{Type: StorageFS, BaseDir: baseDir}
		return nil
	}
}

// WithS3Storage stores blobs in an S3 bucket, one key prefix per container
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1" // Default region
		}
		c.Storage.Type = StorageS3
		c.Storage.BaseDir = ""
		c.Storage.S3.Bucket = bucket
		c.Storage.S3.Region = region
		return nil
	}
}

// WithS3Credentials sets static AWS credentials for S3 storage
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		c.Storage.S3.AccessKeyID = accessKeyID
		c.Storage.S3.SecretAccessKey = secretAccessKey
		return nil
	}
}

// WithS3Endpoint sets a custom S3 endpoint (for MinIO, LocalStack, etc.)
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.Storage.S3.Endpoint = endpoint
		c.Storage.S3.UsePathStyle = usePathStyle
		return nil
	}
}

// WithS3CreateBucket creates the bucket on first use when it is missing
func WithS3CreateBucket(create bool) Option {
	return func(c *ServerConfig) error {
		c.Storage.S3.CreateBucketIfNotExist = create
		return nil
	}
}

// WithS3Encryption enables server-side encryption for S3 storage
func WithS3Encryption(algorithm, kmsKeyID string) Option {
	return func(c *ServerConfig) error {
		if algorithm != "AES256" && algorithm != "aws:kms" {
			return fmt.Errorf("SSE algorithm must be 'AES256' or 'aws:kms', got: %s", algorithm)
		}
		c.Storage.S3.EnableSSE = true
		c.Storage.S3.SSEAlgorithm = algorithm
		c.Storage.S3.SSEKMSKeyID = kmsKeyID
		return nil
	}
}

// WithDefaultContainer sets the container for application-wide images
func WithDefaultContainer(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("default container cannot be empty")
		}
		c.DefaultContainer = name
		return nil
	}
}

// WithFetchConcurrency sets how many blobs a catalog query downloads at once
func WithFetchConcurrency(n int) Option {
	return func(c *ServerConfig) error {
		if n < 1 {
			return fmt.Errorf("fetch concurrency must be at least 1, got: %d", n)
		}
		c.FetchConcurrency = n
		return nil
	}
}
