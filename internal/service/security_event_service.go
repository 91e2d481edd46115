package service

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recovery-service/internal/bucketing"
	"recovery-service/internal/client"
	"recovery-service/internal/models"
	"recovery-service/internal/util"
)

const eventFanoutTimeout = 5 * time.Second

// SecurityEventService fans recovery audit events out to Kafka,
// ClickHouse and Elasticsearch. Emission is best effort: a sink being
// down is logged and never fails the request that produced the event.
type SecurityEventService struct {
	kafka      *client.KafkaProducer
	clickhouse *client.ClickHouseClient
	es         *client.ESClient
	bucketing  *bucketing.Manager
}

// NewSecurityEventService creates a new security event service. Any sink
// may be nil and is then skipped.
func NewSecurityEventService(
	kafka *client.KafkaProducer,
	clickhouse *client.ClickHouseClient,
	es *client.ESClient,
	bucketing *bucketing.Manager,
	logger *zap.Logger,
) *SecurityEventService {
	return &SecurityEventService{
		kafka:      kafka,
		clickhouse: clickhouse,
		es:         es,
		bucketing:  bucketing,
	}
}

// Record builds the event envelope and dispatches it in the background.
// The caller's context is not reused so that request cancellation does
// not drop audit events mid-flight.
func (s *SecurityEventService) Record(eventType, userID, emailHash string, ip net.IP, detail string) {
	now := time.Now().UTC()
	event := &models.SecurityEvent{
		EventBucket: s.bucketing.EventBucket(emailHash),
		EventID:     uuid.New().String(),
		EventDate:   s.bucketing.DateBucket(now),
		EventTime:   now,
		EventType:   eventType,
		UserID:      userID,
		EmailHash:   emailHash,
		IPAddress:   ip,
		Detail:      detail,
	}

	go s.dispatch(event)
}

func (s *SecurityEventService) dispatch(event *models.SecurityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), eventFanoutTimeout)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		util.Error("Failed to marshal security event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return
	}

	g, ctx := errgroup.WithContext(ctx)

	if s.kafka != nil {
		g.Go(func() error {
			if err := s.kafka.Produce(ctx, []byte(event.EmailHash), payload); err != nil {
				util.Warn("Failed to publish security event to Kafka",
					zap.String("event_id", event.EventID),
					zap.Error(err))
			}
			return nil
		})
	}

	if s.clickhouse != nil {
		g.Go(func() error {
			err := s.clickhouse.Exec(ctx, `
                INSERT INTO security_events
                    (event_bucket, event_id, event_date, event_time, event_type, user_id, email_hash, ip_address, detail)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				event.EventBucket, event.EventID, event.EventDate, event.EventTime,
				event.EventType, event.UserID, event.EmailHash, ipString(event.IPAddress), event.Detail)
			if err != nil {
				util.Warn("Failed to insert security event into ClickHouse",
					zap.String("event_id", event.EventID),
					zap.Error(err))
			}
			return nil
		})
	}

	if s.es != nil {
		g.Go(func() error {
			res, err := s.es.IndexEvent(event.EventID, event)
			if err != nil {
				util.Warn("Failed to index security event in Elasticsearch",
					zap.String("event_id", event.EventID),
					zap.Error(err))
				return nil
			}
			defer res.Body.Close()
			if res.IsError() {
				util.Warn("Elasticsearch rejected security event",
					zap.String("event_id", event.EventID),
					zap.String("status", res.Status()))
			}
			return nil
		})
	}

	_ = g.Wait()
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
