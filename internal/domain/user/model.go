package user

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus represents the status of a directory user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is a read-only directory entry. The task core only consumes it to
// resolve display names when tasks are assigned; it never mutates users.
type User struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	Name      string     `json:"name" gorm:"not null"`
	Email     string     `json:"email" gorm:"uniqueIndex:idx_user_email;not null"`
	Status    UserStatus `json:"status" gorm:"not null;default:'active';index:idx_user_status"`
	Role      string     `json:"role" gorm:"not null;default:'member'"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"not null;default:current_timestamp"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// UserListResponse represents the response for listing directory users
type UserListResponse struct {
	Users []User `json:"users"`
}
