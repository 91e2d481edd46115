package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"golang.org/x/sync/errgroup"

	"recovery-service/internal/bucketing"
	"recovery-service/internal/client"
	"recovery-service/internal/config"
	"recovery-service/internal/encryption"
	"recovery-service/internal/hashing"
	"recovery-service/internal/limiter"
	"recovery-service/internal/repository/scylla"
	"recovery-service/internal/service"
	"recovery-service/internal/tls"
	"recovery-service/internal/token"
	"recovery-service/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.Manager
	bucketingManager  *bucketing.Manager

	// Storage-backed components
	userDirectory scylla.UserDirectory
	tokenStore    token.Store
	rateLimiter   limiter.Limiter

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		tlsConfig := &tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		}
		factory.tlsManager = tls.NewTLSManager(tlsConfig)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	factory.initializeManagers()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if c, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = c
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if c, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = c
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// Elasticsearch
	if c, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
	} else {
		f.esClient = c
		if err := f.esClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch health check: %w", err))
		} else {
			util.Info("Elasticsearch client initialized and healthy")
		}
	}

	// ClickHouse
	if c, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
	} else {
		f.clickhouseClient = c
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse health check: %w", err))
		} else {
			util.Info("ClickHouse client initialized and healthy")
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes hashing, encryption, and bucketing managers
func (f *Factory) initializeManagers() {
	f.hasher = hashing.NewHasher(f.config)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			util.Warn("Failed to load AWS config - falling back to local keys", util.ErrorField(err))
		} else {
			kmsClient = kms.NewFromConfig(awsCfg)
		}
	}

	f.encryptionManager = encryption.NewManager(f.config, kmsClient)
	f.bucketingManager = bucketing.NewManager(f.config)

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("encryption_initialized", f.encryptionManager != nil),
		util.Bool("bucketing_initialized", f.bucketingManager != nil),
	)
}

// ==============================
// Storage-backed Components
// ==============================

func (f *Factory) UserDirectory() scylla.UserDirectory {
	if f.userDirectory == nil {
		f.userDirectory = scylla.NewScyllaUserDirectory(
			f.ScyllaClient(),
			f.BucketingManager(),
			util.Get(),
		)
	}
	return f.userDirectory
}

// TokenStore returns the verification token store. Redis-backed when the
// client came up; a process-local store otherwise, which only serves
// single-instance development runs.
func (f *Factory) TokenStore() token.Store {
	if f.tokenStore == nil {
		if f.redisClient != nil {
			f.tokenStore = token.NewRedisStore(f.redisClient)
		} else {
			util.Warn("Using in-memory token store - not suitable for multi-instance deployments")
			f.tokenStore = token.NewMemoryStore()
		}
	}
	return f.tokenStore
}

// RateLimiter returns the verification attempt limiter, with the same
// Redis-or-memory selection as TokenStore.
func (f *Factory) RateLimiter() limiter.Limiter {
	if f.rateLimiter == nil {
		if f.redisClient != nil {
			f.rateLimiter = limiter.NewRedisLimiter(f.redisClient)
		} else {
			util.Warn("Using in-memory rate limiter - not suitable for multi-instance deployments")
			mem := limiter.NewMemoryLimiter()
			mem.StartSweeper(context.Background(), time.Minute)
			f.rateLimiter = mem
		}
	}
	return f.rateLimiter
}

// ==============================
// Service Factory
// ==============================

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(
			f.config,
			f.UserDirectory(),
			f.Hasher(),
			f.EncryptionManager(),
			f.BucketingManager(),
			f.TokenStore(),
			f.RateLimiter(),
			f.kafkaProducer,
			f.clickhouseClient,
			f.esClient,
			util.Get(),
		)
	}
	return f.serviceFactory
}

// ==============================
// Health Checks
// ==============================

// HealthCheck probes every backing client concurrently and returns a
// map of component name to failure for whatever is unhealthy.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	var mu sync.Mutex
	healthErrors := make(map[string]error)
	record := func(name string, err error) {
		if err != nil {
			mu.Lock()
			healthErrors[name] = err
			mu.Unlock()
		}
	}

	var g errgroup.Group

	if f.redisClient != nil {
		g.Go(func() error {
			record("redis", f.redisClient.HealthCheck(ctx))
			return nil
		})
	} else {
		record("redis", fmt.Errorf("redis client not initialized"))
	}

	if f.scyllaClient != nil {
		g.Go(func() error {
			record("scylla", f.scyllaClient.HealthCheck())
			return nil
		})
	} else {
		record("scylla", fmt.Errorf("scylla client not initialized"))
	}

	if f.esClient != nil {
		g.Go(func() error {
			record("elasticsearch", f.esClient.HealthCheck())
			return nil
		})
	} else {
		record("elasticsearch", fmt.Errorf("elasticsearch client not initialized"))
	}

	if f.clickhouseClient != nil {
		g.Go(func() error {
			record("clickhouse", f.clickhouseClient.HealthCheck(ctx))
			return nil
		})
	} else {
		record("clickhouse", fmt.Errorf("clickhouse client not initialized"))
	}

	if f.kafkaProducer != nil {
		g.Go(func() error {
			record("kafka", f.kafkaProducer.HealthCheck(ctx))
			return nil
		})
	}

	if f.hasher == nil {
		record("hasher", fmt.Errorf("hasher not initialized"))
	}
	if f.encryptionManager == nil {
		record("encryption", fmt.Errorf("encryption manager not initialized"))
	}
	if f.bucketingManager == nil {
		record("bucketing", fmt.Errorf("bucketing manager not initialized"))
	}

	_ = g.Wait()
	return healthErrors
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			util.Info("Elasticsearch client closed")
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
			util.Info("Encryption manager cache cleared")
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) ScyllaClient() *scylla.ScyllaClient {
	return f.scyllaClient
}

func (f *Factory) Hasher() *hashing.Hasher {
	return f.hasher
}

func (f *Factory) EncryptionManager() *encryption.Manager {
	return f.encryptionManager
}

func (f *Factory) BucketingManager() *bucketing.Manager {
	return f.bucketingManager
}
