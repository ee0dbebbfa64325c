package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hrdesk/notify-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrEmployeeNotFound is returned when an entity ref no longer resolves.
var ErrEmployeeNotFound = errors.New("employee not found")

// StatusCounts is the observability surface for stuck/failed deliveries.
type StatusCounts struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Failed    int64 `json:"failed"`
}

// RepositoryInterface restricts Repo methods (unit test mocks).
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	CreateEmployee(ctx context.Context, tx *gorm.DB, e *model.Employee) error
	GetEmployeeByID(ctx context.Context, id uint64) (*model.Employee, error)
	CreateOutboxRecord(ctx context.Context, tx *gorm.DB, rec *model.OutboxRecord) error
	GetOutboxRecord(ctx context.Context, msgID string) (*model.OutboxRecord, error)
	MarkConfirmed(ctx context.Context, msgID string) (bool, error)
	MarkFailed(ctx context.Context, msgID string) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxRecord, error)
	ClaimRetry(ctx context.Context, msgID string, expectedAttempt int, nextRetryAt time.Time) (bool, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
}

// Repository implements RepositoryInterface on gorm.
type Repository struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// CreateEmployee inserts an employee row.
func (r *Repository) CreateEmployee(ctx context.Context, tx *gorm.DB, e *model.Employee) error {
	return tx.WithContext(ctx).Create(e).Error
}

// GetEmployeeByID re-fetches current employee state; used on every (re)publish.
func (r *Repository) GetEmployeeByID(ctx context.Context, id uint64) (*model.Employee, error) {
	var e model.Employee
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return &e, nil
}

// CreateOutboxRecord durably records the intent to send before any broker I/O.
// Runs inside the caller's transaction so the record commits atomically with
// the triggering business write.
func (r *Repository) CreateOutboxRecord(ctx context.Context, tx *gorm.DB, rec *model.OutboxRecord) error {
	return tx.WithContext(ctx).Create(rec).Error
}

// GetOutboxRecord loads one record by message id.
func (r *Repository) GetOutboxRecord(ctx context.Context, msgID string) (*model.OutboxRecord, error) {
	var rec model.OutboxRecord
	if err := r.db.WithContext(ctx).Where("msg_id=?", msgID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkConfirmed transitions PENDING->CONFIRMED. Returns false when the record
// was not PENDING anymore (late or duplicate confirm), which is a no-op.
func (r *Repository) MarkConfirmed(ctx context.Context, msgID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.OutboxRecord{}).
		Where("msg_id=? AND status=?", msgID, model.StatusPending).
		Updates(map[string]interface{}{"status": model.StatusConfirmed, "updated_at": time.Now()})
	return res.RowsAffected > 0, res.Error
}

// MarkFailed transitions PENDING->FAILED (terminal, attempt cap reached).
func (r *Repository) MarkFailed(ctx context.Context, msgID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.OutboxRecord{}).
		Where("msg_id=? AND status=?", msgID, model.StatusPending).
		Updates(map[string]interface{}{"status": model.StatusFailed, "updated_at": time.Now()})
	return res.RowsAffected > 0, res.Error
}

// ListDue pulls PENDING records past their retry deadline.
func (r *Repository) ListDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxRecord, error) {
	var recs []model.OutboxRecord
	err := r.db.WithContext(ctx).
		Where("status=? AND next_retry_at<=?", model.StatusPending, now).
		Order("next_retry_at").Limit(limit).Find(&recs).Error
	return recs, err
}

// ClaimRetry atomically claims a record for one retry attempt. The expected
// attempt count acts as an optimistic lock: a concurrent sweep or confirm
// loses the claim and must skip the record.
func (r *Repository) ClaimRetry(ctx context.Context, msgID string, expectedAttempt int, nextRetryAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.OutboxRecord{}).
		Where("msg_id=? AND status=? AND attempt_count=?", msgID, model.StatusPending, expectedAttempt).
		Updates(map[string]interface{}{
			"attempt_count": expectedAttempt + 1,
			"next_retry_at": nextRetryAt,
			"updated_at":    time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// CountByStatus returns pending/confirmed/failed totals.
func (r *Repository) CountByStatus(ctx context.Context) (StatusCounts, error) {
	var counts StatusCounts
	type row struct {
		Status model.OutboxStatus
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.OutboxRecord{}).
		Select("status, count(*) as n").Group("status").Scan(&rows).Error
	if err != nil {
		return counts, err
	}
	for _, rw := range rows {
		switch rw.Status {
		case model.StatusPending:
			counts.Pending = rw.N
		case model.StatusConfirmed:
			counts.Confirmed = rw.N
		case model.StatusFailed:
			counts.Failed = rw.N
		}
	}
	return counts, nil
}
