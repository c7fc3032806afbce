package user

import (
	"time"

	"github.com/google/uuid"
)

const DefaultLeaveBalance = 20

type User struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Name              string    `gorm:"column:name;type:varchar(255);not null"`
	Email             string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	Password          string    `gorm:"column:password;type:text;not null"`
	Role              string    `gorm:"column:role;type:varchar(20);not null;default:'employee'"`
	LeaveBalance      int       `gorm:"column:leave_balance;not null;default:20"`
	TotalLeaveBalance int       `gorm:"column:total_leave_balance;not null;default:20"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
