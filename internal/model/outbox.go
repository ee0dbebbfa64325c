package model

import "time"

// Outbox delivery status. Transitions are forward-only:
// PENDING -> CONFIRMED or PENDING -> FAILED.
type OutboxStatus int

const (
	StatusPending   OutboxStatus = 0
	StatusConfirmed OutboxStatus = 1
	StatusFailed    OutboxStatus = 2
)

func (s OutboxStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// OutboxRecord tracks one notification attempt chain. MsgID is generated once
// per business event and reused across every retry; records are never deleted.
type OutboxRecord struct {
	MsgID        string       `gorm:"primaryKey;size:36"`
	EmployeeID   uint64       `gorm:"not null;index"`
	Exchange     string       `gorm:"size:128;not null"`
	RoutingKey   string       `gorm:"size:128;not null"`
	Status       OutboxStatus `gorm:"not null;default:0;index"`
	AttemptCount int          `gorm:"not null;default:1"`
	NextRetryAt  time.Time    `gorm:"not null;index"`
	CreatedAt    time.Time    `gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime"`
}

func (OutboxRecord) TableName() string { return "notify_outbox" }
