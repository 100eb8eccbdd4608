package models

import "time"

// User is an operator account allowed to submit and inspect batches.
type User struct {
	UserID   int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	Email    string     `gorm:"column:email;unique" json:"email"`
	FullName string     `gorm:"column:full_name" json:"full_name"`
	Password string     `gorm:"column:password" json:"-"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
