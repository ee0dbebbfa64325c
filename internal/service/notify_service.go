package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hrdesk/notify-service/internal/config"
	"github.com/hrdesk/notify-service/internal/model"
	"github.com/hrdesk/notify-service/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Broker is the transport the publisher hands messages to. Fire-and-forget;
// the outcome comes back through HandleConfirm.
type Broker interface {
	Publish(ctx context.Context, body []byte, msgID string) error
}

// NotifyService is the publish side of the pipeline: it owns outbox record
// creation, the broker hand-off and the confirm listener.
type NotifyService struct {
	repo   repo.RepositoryInterface
	broker Broker
	notify config.NotifyConfig
	rabbit config.RabbitConfig
	log    *zap.SugaredLogger
}

// NewNotifyService returns NotifyService.
func NewNotifyService(r repo.RepositoryInterface, b Broker, notify config.NotifyConfig, rabbit config.RabbitConfig, logger *zap.SugaredLogger) *NotifyService {
	return &NotifyService{repo: r, broker: b, notify: notify, rabbit: rabbit, log: logger}
}

// CreateEmployee inserts the employee and its welcome-notification outbox
// record in one transaction, then hands the message to the broker without
// blocking the caller. The returned msgID correlates every later retry,
// confirm and delivery of this event.
func (s *NotifyService) CreateEmployee(ctx context.Context, e *model.Employee) (string, error) {
	e.ContractTerm = model.ComputeContractTerm(e.BeginContract, e.EndContract)

	rec := s.newRecord()
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateEmployee(ctx, tx, e); err != nil {
			return err
		}
		rec.EmployeeID = e.ID
		return s.repo.CreateOutboxRecord(ctx, tx, rec)
	})
	if err != nil {
		return "", err
	}

	s.sendAsync(rec.MsgID, rec.EmployeeID)
	return rec.MsgID, nil
}

// PublishWelcome starts a fresh notification attempt chain for an existing
// employee (manual re-publish path for FAILED records, always a new msgID).
func (s *NotifyService) PublishWelcome(ctx context.Context, employeeID uint64) (string, error) {
	if _, err := s.repo.GetEmployeeByID(ctx, employeeID); err != nil {
		return "", err
	}

	rec := s.newRecord()
	rec.EmployeeID = employeeID
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.CreateOutboxRecord(ctx, tx, rec)
	})
	if err != nil {
		return "", err
	}

	s.sendAsync(rec.MsgID, employeeID)
	return rec.MsgID, nil
}

// HandleConfirm is the broker confirm callback. Runs on the broker client's
// goroutine, concurrently with the scheduler and publishers.
func (s *NotifyService) HandleConfirm(msgID string, ack bool, cause string) {
	if !ack {
		// record stays PENDING; the scheduler re-drives it
		s.log.Warnf("msg %s rejected by broker: %s", msgID, cause)
		return
	}
	ok, err := s.repo.MarkConfirmed(context.Background(), msgID)
	if err != nil {
		s.log.Errorf("msg %s confirm update: %v", msgID, err)
		return
	}
	if !ok {
		s.log.Debugf("msg %s late confirm ignored", msgID)
		return
	}
	s.log.Infof("msg %s PENDING -> CONFIRMED", msgID)
}

// Send publishes the current employee state under msgID. Shared by the
// initial publish and every scheduler retry so payloads are always re-fetched.
func (s *NotifyService) Send(ctx context.Context, msgID string, employeeID uint64) error {
	emp, err := s.repo.GetEmployeeByID(ctx, employeeID)
	if err != nil {
		return err
	}
	body, err := json.Marshal(model.FromEmployee(emp))
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, body, msgID)
}

// GetEmployee fetches one employee.
func (s *NotifyService) GetEmployee(ctx context.Context, id uint64) (*model.Employee, error) {
	return s.repo.GetEmployeeByID(ctx, id)
}

// Stats exposes pending/confirmed/failed counts for alerting.
func (s *NotifyService) Stats(ctx context.Context) (repo.StatusCounts, error) {
	return s.repo.CountByStatus(ctx)
}

// Repo exposes underlying repository (unit tests helper).
func (s *NotifyService) Repo() repo.RepositoryInterface {
	return s.repo
}

func (s *NotifyService) newRecord() *model.OutboxRecord {
	return &model.OutboxRecord{
		MsgID:        uuid.NewString(),
		Exchange:     s.rabbit.Exchange,
		RoutingKey:   s.rabbit.RoutingKey,
		Status:       model.StatusPending,
		AttemptCount: 1,
		NextRetryAt:  time.Now().Add(s.notify.AckTimeout),
	}
}

// sendAsync hands the message to the broker off the caller's goroutine. The
// business event has already committed, so a synchronous broker failure is
// only logged; the PENDING record is what guarantees eventual delivery.
func (s *NotifyService) sendAsync(msgID string, employeeID uint64) {
	go func() {
		if err := s.Send(context.Background(), msgID, employeeID); err != nil {
			s.log.Warnf("msg %s initial publish: %v", msgID, err)
		}
	}()
}
