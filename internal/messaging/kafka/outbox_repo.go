package kafka

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultOutboxBatchSize = 50
	// DefaultOutboxMaxAttempts is the number of failed publishes after which
	// a row is parked as dead and no longer polled.
	DefaultOutboxMaxAttempts = 10

	outboxBaseBackoff = 15 * time.Second
	outboxMaxBackoff  = 10 * time.Minute
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
	OutboxStatusDead    = "dead"
)

type OutboxEvent struct {
	ID            string
	RequestID     string
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	Payload       []byte
	Status        string
	RetryCount    int
	NextRetryAt   time.Time
}

// NewOutboxEvent encodes payload as JSON and returns a pending row. Rows of
// one aggregate share a Kafka key, so consumers see them in write order.
func NewOutboxEvent(requestID, aggregateType, aggregateID, eventType, topic string, payload any) (OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	event := OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     requestID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Topic:         topic,
		Payload:       body,
		Status:        OutboxStatusPending,
	}
	return event, ValidateOutboxEvent(event)
}

// RetryBackoff doubles from 15s per failed attempt, capped at 10m.
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := outboxBaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= outboxMaxBackoff {
			return outboxMaxBackoff
		}
	}
	return d
}

// OutboxRepository stores events next to the compensation write that
// produced them, in the same transaction. The producer worker relays them.
//
//go:generate mockgen -source=outbox_repo.go -destination=mock/outbox_repo_mock.go -package=mock
type OutboxRepository interface {
	WithTx(tx *sql.Tx) OutboxRepository
	Create(ctx context.Context, event OutboxEvent) error
	ListPending(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, id string) error
	// MarkFailed records a failed publish of event and returns the row's new
	// status: failed while attempts remain, dead afterwards.
	MarkFailed(ctx context.Context, event OutboxEvent, reason string) (string, error)
}

type OutboxOption func(*outboxRepository)

func WithOutboxClock(now func() time.Time) OutboxOption {
	return func(r *outboxRepository) { r.now = now }
}

func WithOutboxMaxAttempts(n int) OutboxOption {
	return func(r *outboxRepository) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

type outboxRepository struct {
	db          *sql.DB
	tx          *sql.Tx
	now         func() time.Time
	maxAttempts int
}

func NewOutboxRepository(db *sql.DB, opts ...OutboxOption) OutboxRepository {
	r := &outboxRepository{
		db:          db,
		now:         func() time.Time { return time.Now().UTC() },
		maxAttempts: DefaultOutboxMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *outboxRepository) WithTx(tx *sql.Tx) OutboxRepository {
	clone := *r
	clone.tx = tx
	return &clone
}

const insertOutboxSQL = `
INSERT INTO outbox_events (
	id, request_id, aggregate_type, aggregate_id, event_type, topic, payload, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *outboxRepository) Create(ctx context.Context, event OutboxEvent) error {
	if err := ValidateOutboxEvent(event); err != nil {
		return err
	}

	_, err := r.execer().ExecContext(ctx, insertOutboxSQL,
		event.ID, event.RequestID, event.AggregateType,
		event.AggregateID, event.EventType, event.Topic, event.Payload, event.Status,
	)
	return err
}

// Dead rows are left out; they need an operator to requeue them.
const listPendingOutboxSQL = `
SELECT
	id::text,
	COALESCE(request_id, ''),
	aggregate_type,
	aggregate_id::text,
	event_type,
	topic,
	payload,
	status,
	retry_count,
	COALESCE(next_retry_at, created_at)
FROM outbox_events
WHERE status IN ($1, $2)
	AND (next_retry_at IS NULL OR next_retry_at <= $3)
ORDER BY created_at ASC
LIMIT $4
`

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]OutboxEvent, error) {
	if limit <= 0 {
		limit = DefaultOutboxBatchSize
	}

	rows, err := r.db.QueryContext(ctx, listPendingOutboxSQL,
		OutboxStatusPending, OutboxStatusFailed, r.now(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]OutboxEvent, 0, limit)
	for rows.Next() {
		e, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanOutboxEvent(row interface{ Scan(dest ...any) error }) (OutboxEvent, error) {
	var e OutboxEvent
	err := row.Scan(
		&e.ID,
		&e.RequestID,
		&e.AggregateType,
		&e.AggregateID,
		&e.EventType,
		&e.Topic,
		&e.Payload,
		&e.Status,
		&e.RetryCount,
		&e.NextRetryAt,
	)
	return e, err
}

const markSentOutboxSQL = `
UPDATE outbox_events
SET status = $2, processed_at = $3, error_message = NULL, updated_at = $3
WHERE id = $1
`

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	_, err := r.execer().ExecContext(ctx, markSentOutboxSQL, id, OutboxStatusSent, r.now())
	return err
}

const markFailedOutboxSQL = `
UPDATE outbox_events
SET status = $2, retry_count = $3, error_message = LEFT($4, 500), next_retry_at = $5, updated_at = $6
WHERE id = $1
`

func (r *outboxRepository) MarkFailed(ctx context.Context, event OutboxEvent, reason string) (string, error) {
	attempt := event.RetryCount + 1
	status := OutboxStatusFailed
	if attempt >= r.maxAttempts {
		status = OutboxStatusDead
	}

	now := r.now()
	_, err := r.execer().ExecContext(ctx, markFailedOutboxSQL,
		event.ID, status, attempt, reason, now.Add(RetryBackoff(attempt)), now,
	)
	if err != nil {
		return "", err
	}
	return status, nil
}

func (r *outboxRepository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func ValidateOutboxEvent(event OutboxEvent) error {
	switch {
	case event.ID == "":
		return errors.New("outbox id is required")
	case event.AggregateID == "":
		return errors.New("outbox aggregate id is required")
	case event.Topic == "":
		return errors.New("outbox topic is required")
	case len(event.Payload) == 0:
		return errors.New("outbox payload is required")
	}
	switch event.Status {
	case OutboxStatusPending, OutboxStatusSent, OutboxStatusFailed, OutboxStatusDead:
		return nil
	default:
		return fmt.Errorf("invalid outbox status: %s", event.Status)
	}
}
