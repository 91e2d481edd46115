package service

import (
	"go.uber.org/zap"

	"recovery-service/internal/bucketing"
	"recovery-service/internal/client"
	"recovery-service/internal/config"
	"recovery-service/internal/encryption"
	"recovery-service/internal/hashing"
	"recovery-service/internal/limiter"
	"recovery-service/internal/repository/scylla"
	"recovery-service/internal/token"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg           *config.Config
	directory     scylla.UserDirectory
	hasher        *hashing.Hasher
	encryptionMgr *encryption.Manager
	bucketingMgr  *bucketing.Manager
	tokens        token.Store
	rateLimiter   limiter.Limiter
	kafka         *client.KafkaProducer
	clickhouse    *client.ClickHouseClient
	es            *client.ESClient
	logger        *zap.Logger

	questionService *QuestionService
	eventService    *SecurityEventService
	recoveryService *RecoveryService
	accountService  *AccountService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(
	cfg *config.Config,
	directory scylla.UserDirectory,
	hasher *hashing.Hasher,
	encryptionMgr *encryption.Manager,
	bucketingMgr *bucketing.Manager,
	tokens token.Store,
	rateLimiter limiter.Limiter,
	kafka *client.KafkaProducer,
	clickhouse *client.ClickHouseClient,
	es *client.ESClient,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:           cfg,
		directory:     directory,
		hasher:        hasher,
		encryptionMgr: encryptionMgr,
		bucketingMgr:  bucketingMgr,
		tokens:        tokens,
		rateLimiter:   rateLimiter,
		kafka:         kafka,
		clickhouse:    clickhouse,
		es:            es,
		logger:        logger,
	}
}

// QuestionService returns the question service instance (singleton)
func (f *ServiceFactory) QuestionService() *QuestionService {
	if f.questionService == nil {
		f.questionService = NewQuestionService(f.directory, f.hasher, f.logger)
	}
	return f.questionService
}

// SecurityEventService returns the event service instance (singleton)
func (f *ServiceFactory) SecurityEventService() *SecurityEventService {
	if f.eventService == nil {
		f.eventService = NewSecurityEventService(f.kafka, f.clickhouse, f.es, f.bucketingMgr, f.logger)
	}
	return f.eventService
}

// RecoveryService returns the recovery service instance (singleton)
func (f *ServiceFactory) RecoveryService() *RecoveryService {
	if f.recoveryService == nil {
		f.recoveryService = NewRecoveryService(
			f.directory,
			f.QuestionService(),
			f.tokens,
			f.rateLimiter,
			f.SecurityEventService(),
			f.hasher,
			f.cfg,
			f.logger,
		)
	}
	return f.recoveryService
}

// AccountService returns the account service instance (singleton)
func (f *ServiceFactory) AccountService() *AccountService {
	if f.accountService == nil {
		f.accountService = NewAccountService(f.directory, f.hasher, f.encryptionMgr, f.logger)
	}
	return f.accountService
}
