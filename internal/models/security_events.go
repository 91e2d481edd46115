package models

import (
	"net"
	"time"
)

// Security event types emitted by the recovery flow.
const (
	EventQuestionsFetched   = "recovery.questions_fetched"
	EventQuestionsSaved     = "recovery.questions_saved"
	EventAnswersVerified    = "recovery.answers_verified"
	EventVerificationFailed = "recovery.verification_failed"
	EventRateLimited        = "recovery.rate_limited"
	EventPasswordReset      = "recovery.password_reset"
	EventResetRejected      = "recovery.reset_rejected"
)

// SecurityEvent is the audit record fanned out to Kafka, ClickHouse and
// Elasticsearch. EmailHash, never the address, identifies the target.
type SecurityEvent struct {
	EventBucket int       `db:"event_bucket" json:"event_bucket"`
	EventID     string    `db:"event_id" json:"event_id"`
	EventDate   string    `db:"event_date" json:"event_date"`
	EventTime   time.Time `db:"event_time" json:"event_time"`
	EventType   string    `db:"event_type" json:"event_type"`
	UserID      string    `db:"user_id" json:"user_id,omitempty"`
	EmailHash   string    `db:"email_hash" json:"email_hash,omitempty"`
	IPAddress   net.IP    `db:"ip_address" json:"ip_address,omitempty"`
	Detail      string    `db:"detail" json:"detail,omitempty"`
}
