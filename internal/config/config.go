package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Embedding  EmbeddingConfig
	Qdrant     QdrantConfig
	Classifier ClassifierConfig
	Auth       AuthConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type StorageConfig struct {
	UploadPath      string
	MaxFileSize     int64
	ResumeExtension string
	BatchTTL        time.Duration
	MaxBatches      int
	CleanupInterval time.Duration
	QueuedTimeout   time.Duration
}

type EmbeddingConfig struct {
	Provider     string
	Model        string
	Dimension    int
	GeminiAPIKey string
	OpenAIAPIKey string
	OpenAIURL    string
	TEIURL       string
}

type QdrantConfig struct {
	Ranker     string
	URL        string
	APIKey     string
	Collection string
}

type ClassifierConfig struct {
	VectorizerPath string
	ModelPath      string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	TokenTTL  time.Duration
	UsersFile string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderTEI    = "tei"

	RankerMemory = "memory"
	RankerQdrant = "qdrant"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8000"),
			Env:         getEnv("ENV", "development"),
			CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("STORE_DRIVER", DriverMemory),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "resume_matcher"),
		},
		Storage: StorageConfig{
			UploadPath:      getEnv("UPLOAD_PATH", "./temp"),
			MaxFileSize:     getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			ResumeExtension: strings.ToLower(getEnv("RESUME_EXTENSION", ".pdf")),
			BatchTTL:        getEnvAsDuration("BATCH_TTL", "1h"),
			MaxBatches:      getEnvAsInt("MAX_BATCHES", 100),
			CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", "1m"),
			QueuedTimeout:   getEnvAsDuration("QUEUED_TIMEOUT", "3h"),
		},
		Embedding: EmbeddingConfig{
			Provider:     getEnv("EMBEDDING_PROVIDER", ProviderGemini),
			Model:        getEnv("EMBEDDING_MODEL", ""),
			Dimension:    getEnvAsInt("EMBEDDING_DIMENSION", 768),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
			OpenAIURL:    getEnv("OPENAI_BASE_URL", ""),
			TEIURL:       getEnv("TEI_URL", "http://localhost:8080"),
		},
		Qdrant: QdrantConfig{
			Ranker:     getEnv("RANKER", RankerMemory),
			URL:        getEnv("QDRANT_URL", "http://localhost:6334"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "resume_matcher_batches"),
		},
		Classifier: ClassifierConfig{
			VectorizerPath: getEnv("VECTORIZER_PATH", "./artifacts/vectorizer.json"),
			ModelPath:      getEnv("CLASSIFIER_PATH", "./artifacts/classifier.json"),
		},
		Auth: AuthConfig{
			Enabled:   getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvAsDuration("TOKEN_TTL", "30m"),
			UsersFile: getEnv("USERS_FILE", "./users.toml"),
		},
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", false),
		},
	}
}

// Validate reports combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("unknown STORE_DRIVER: %q", c.Database.Driver)
	}

	switch c.Embedding.Provider {
	case ProviderGemini:
		if c.Embedding.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini embedding provider")
		}
	case ProviderOpenAI:
		if c.Embedding.OpenAIAPIKey == "" && c.Embedding.OpenAIURL == "" {
			return fmt.Errorf("OPENAI_API_KEY or OPENAI_BASE_URL is required for the openai embedding provider")
		}
	case ProviderTEI:
		if c.Embedding.TEIURL == "" {
			return fmt.Errorf("TEI_URL is required for the tei embedding provider")
		}
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER: %q", c.Embedding.Provider)
	}

	switch c.Qdrant.Ranker {
	case RankerMemory, RankerQdrant:
	default:
		return fmt.Errorf("unknown RANKER: %q", c.Qdrant.Ranker)
	}

	if !strings.HasPrefix(c.Storage.ResumeExtension, ".") {
		return fmt.Errorf("RESUME_EXTENSION must start with a dot, got %q", c.Storage.ResumeExtension)
	}

	if c.Storage.BatchTTL <= 0 {
		return fmt.Errorf("BATCH_TTL must be positive")
	}

	if c.Storage.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive")
	}

	if c.Storage.QueuedTimeout <= 0 {
		return fmt.Errorf("QUEUED_TIMEOUT must be positive")
	}

	if c.Storage.MaxBatches < 0 {
		return fmt.Errorf("MAX_BATCHES must not be negative")
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is set")
	}

	return nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
