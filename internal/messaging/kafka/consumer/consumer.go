package consumer

import (
	"context"
	"encoding/json"
	"time"

	"go-hris-ledger/internal/events"
	"go-hris-ledger/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// ProfileProvisioner creates the empty compensation profile of a new
// employee. It must be idempotent.
type ProfileProvisioner interface {
	EnsureProfile(ctx context.Context, companyID, employeeID string, dateOfJoining *time.Time) error
}

func ConsumeEmployeeLifecycle(
	ctx context.Context,
	reader MessageReader,
	provisioner ProfileProvisioner,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.employee_lifecycle")
	log.Info("employee lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("employee lifecycle consumer stopped")
				return
			}
			log.Error("fetch employee lifecycle message failed", zap.Error(err))
			continue
		}

		if !handleEmployeeCreated(ctx, msg, provisioner, log) {
			// Left uncommitted; redelivered after a rebalance or restart.
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit employee lifecycle message failed", zap.Error(err))
		}
	}
}

// handleEmployeeCreated reports whether msg is done with and can be
// committed. Undecodable and unrelated messages are skipped.
func handleEmployeeCreated(
	ctx context.Context,
	msg kafkago.Message,
	provisioner ProfileProvisioner,
	log *zap.Logger,
) bool {
	var event events.EmployeeCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode employee_created event failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		return true
	}

	if event.EventType != "" && event.EventType != events.EmployeeCreatedEventType {
		log.Debug("skipping employee lifecycle event", zap.String("event_type", event.EventType))
		return true
	}

	if event.RequestID != "" {
		ctx = contextutil.WithRequestID(ctx, event.RequestID)
	}

	if err := provisioner.EnsureProfile(ctx, event.CompanyID, event.EmployeeID, event.DateOfJoining); err != nil {
		log.Error("ensure compensation profile failed",
			zap.String("request_id", event.RequestID),
			zap.String("employee_id", event.EmployeeID),
			zap.String("company_id", event.CompanyID),
			zap.Error(err),
		)
		return false
	}

	log.Info("compensation profile ensured from employee_created event",
		zap.String("request_id", event.RequestID),
		zap.String("employee_id", event.EmployeeID),
		zap.String("company_id", event.CompanyID),
	)
	return true
}
