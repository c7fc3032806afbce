package leave

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

const (
	TypeAnnual = "Annual"
	TypeSick   = "Sick"
	TypeCasual = "Casual"
)

type Leave struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_leaves_user_created"`

	Type string    `gorm:"type:varchar(20);not null"`
	From time.Time `gorm:"column:from_date;type:date;not null"`
	To   time.Time `gorm:"column:to_date;type:date;not null"`
	// Days is taken from the request and never recomputed from the range.
	Days int `gorm:"type:int;not null"`

	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	ApproverID     *uuid.UUID `gorm:"type:uuid"`
	ApproverRemark string     `gorm:"type:text"`
	DecidedAt      *time.Time

	CreatedAt time.Time `gorm:"index:idx_leaves_user_created"`
	UpdatedAt time.Time

	Owner    *LeaveOwner    `gorm:"foreignKey:UserID;references:ID"`
	Approver *LeaveApprover `gorm:"foreignKey:ApproverID;references:ID"`
}

// LeaveOwner is the read-only projection of the owning user.
type LeaveOwner struct {
	ID                uuid.UUID `gorm:"primaryKey"`
	Name              string    `gorm:"column:name"`
	Email             string    `gorm:"column:email"`
	Role              string    `gorm:"column:role"`
	LeaveBalance      int       `gorm:"column:leave_balance"`
	TotalLeaveBalance int       `gorm:"column:total_leave_balance"`
}

func (LeaveOwner) TableName() string {
	return "users"
}

type LeaveApprover struct {
	ID   uuid.UUID `gorm:"primaryKey"`
	Name string    `gorm:"column:name"`
}

func (LeaveApprover) TableName() string {
	return "users"
}
