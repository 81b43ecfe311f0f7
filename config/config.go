package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the engine's tunables. Every field has a default so the
// engine can start against a bare-minimum .env or environment.
type Config struct {
	// Block engine
	BlockSizeBytes int64

	// Cache
	CacheMaxBytes int64
	CacheMaxCount int

	// Import pipeline
	EncryptWorkers        int
	UploadWorkers         int
	ReaderChannelCapacity int

	// Object store (MinIO)
	MinioEndpoint  string
	MinioBucket    string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioRegion    string
	ObjectStoreTimeoutMS int

	// Cache backend (Redis)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Metadata store (MySQL via GORM)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Key provider
	MasterKeyHex string
	ActiveKID    string

	// Logging
	LogLevel      string
	LogOutputPath string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via an optional
// .env file) or defaults. It never fails: missing required secrets
// (master key, object-store credentials) simply surface later as
// connection errors when the corresponding client is initialized.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found or error loading .env, relying on existing environment variables and defaults")
	}

	return &Config{
		BlockSizeBytes: getEnvInt64("BLOCK_SIZE_BYTES", 1<<20),

		CacheMaxBytes: getEnvInt64("CACHE_MAX_BYTES", 1<<30),
		CacheMaxCount: getEnvInt("CACHE_MAX_COUNT", 10_000),

		EncryptWorkers:        getEnvInt("ENCRYPT_WORKERS", 0), // 0 => 2x NumCPU, resolved by the pipeline
		UploadWorkers:         getEnvInt("UPLOAD_WORKERS", 20),
		ReaderChannelCapacity: getEnvInt("READER_CHANNEL_CAPACITY", 10),

		MinioEndpoint:        getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioBucket:          getEnv("MINIO_BUCKET", "vaultfm"),
		MinioAccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:          getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:          getEnv("MINIO_REGION", "us-east-1"),
		ObjectStoreTimeoutMS: getEnvInt("OBJECT_STORE_TIMEOUT_MS", 30_000),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "vaultfm"),

		MasterKeyHex: os.Getenv("MASTER_KEY_HEX"),
		ActiveKID:    getEnv("ACTIVE_KID", "k1"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogOutputPath: getEnv("LOG_OUTPUT_PATH", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}
