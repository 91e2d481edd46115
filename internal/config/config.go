package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the recovery service.
type Config struct {
	Environment string

	Server        ServerConfig
	Redis         RedisConfig
	Scylla        ScyllaConfig
	Kafka         KafkaConfig
	Clickhouse    ClickhouseConfig
	Elasticsearch ElasticsearchConfig
	KMS           KMSConfig
	Recovery      RecoveryConfig
	Hashing       HashingConfig
	Bucketing     BucketingConfig
	Logging       LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	AutoCertDir  string
	Domain       string
	Email        string
	CertFile     string
	KeyFile      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

type ElasticsearchConfig struct {
	URL      string
	Index    string
	Username string
	Password string
}

type KMSConfig struct {
	Enabled bool
	Region  string
	KeyID   string
}

// RecoveryConfig carries the policy knobs for the account-recovery flow.
// The limiter itself is policy-agnostic; call sites pass these values in.
type RecoveryConfig struct {
	// AllowedDomain restricts recovery to institutional addresses,
	// e.g. "campus.edu". Empty disables the domain check.
	AllowedDomain string

	VerifyMaxAttempts int
	VerifyWindow      time.Duration

	TokenTTL time.Duration

	MinPasswordLength int
}

type HashingConfig struct {
	// BcryptCost applies to both stored answers and credentials.
	BcryptCost int
}

type BucketingConfig struct {
	UserBuckets  int
	EventBuckets int
}

type LoggingConfig struct {
	Level  string
	Format string
}

var (
	loaded *Config
	once   sync.Once
)

// LoadConfig reads configuration from the environment, loading a .env
// file first when present. Subsequent calls return the same instance.
func LoadConfig() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		loaded = &Config{
			Environment: getEnv("ENVIRONMENT", "development"),
			Server: ServerConfig{
				Host:         getEnv("SERVER_HOST", "0.0.0.0"),
				Port:         getEnvInt("SERVER_PORT", 8080),
				TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
				EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
				AutoCert:     getEnvBool("SERVER_AUTO_CERT", false),
				AutoCertDir:  getEnv("SERVER_AUTOCERT_DIR", "/var/lib/recovery/certs"),
				Domain:       getEnv("SERVER_DOMAIN", "localhost"),
				Email:        getEnv("SERVER_ACME_EMAIL", ""),
				CertFile:     getEnv("SERVER_CERT_FILE", ""),
				KeyFile:      getEnv("SERVER_KEY_FILE", ""),
				ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			},
			Redis: RedisConfig{
				URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvInt("REDIS_DB", 0),
				PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
			},
			Scylla: ScyllaConfig{
				Nodes:    getEnvList("SCYLLA_NODES", []string{"localhost:9042"}),
				Keyspace: getEnv("SCYLLA_KEYSPACE", "nightmarket"),
				Username: getEnv("SCYLLA_USERNAME", ""),
				Password: getEnv("SCYLLA_PASSWORD", ""),
			},
			Kafka: KafkaConfig{
				Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
				Topic:   getEnv("KAFKA_SECURITY_EVENTS_TOPIC", "recovery-security-events"),
			},
			Clickhouse: ClickhouseConfig{
				URL:      getEnv("CLICKHOUSE_URL", "http://localhost:8123"),
				Database: getEnv("CLICKHOUSE_DATABASE", "nightmarket_audit"),
				Username: getEnv("CLICKHOUSE_USERNAME", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Elasticsearch: ElasticsearchConfig{
				URL:      getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
				Index:    getEnv("ELASTICSEARCH_EVENTS_INDEX", "recovery-events"),
				Username: getEnv("ELASTICSEARCH_USERNAME", ""),
				Password: getEnv("ELASTICSEARCH_PASSWORD", ""),
			},
			KMS: KMSConfig{
				Enabled: getEnvBool("KMS_ENABLED", false),
				Region:  getEnv("KMS_REGION", "us-east-1"),
				KeyID:   getEnv("KMS_KEY_ID", ""),
			},
			Recovery: RecoveryConfig{
				AllowedDomain:     getEnv("RECOVERY_ALLOWED_DOMAIN", "campus.edu"),
				VerifyMaxAttempts: getEnvInt("RECOVERY_VERIFY_MAX_ATTEMPTS", 5),
				VerifyWindow:      getEnvDuration("RECOVERY_VERIFY_WINDOW", time.Hour),
				TokenTTL:          getEnvDuration("RECOVERY_TOKEN_TTL", 10*time.Minute),
				MinPasswordLength: getEnvInt("RECOVERY_MIN_PASSWORD_LENGTH", 12),
			},
			Hashing: HashingConfig{
				BcryptCost: getEnvInt("HASHING_BCRYPT_COST", 12),
			},
			Bucketing: BucketingConfig{
				UserBuckets:  getEnvInt("BUCKETING_USER_BUCKETS", 64),
				EventBuckets: getEnvInt("BUCKETING_EVENT_BUCKETS", 16),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		}
	})

	return loaded
}

// Get returns the loaded configuration, loading it on first use.
func Get() *Config {
	return LoadConfig()
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
