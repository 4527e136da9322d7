package models

import "time"

// UserRole represents the role of a user in the system
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// IsValid checks if the role is one of the known roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// CanManageContent reports whether the role may create or modify exams and questions
func (r UserRole) CanManageContent() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// User represents an authenticated user. Identity is owned by Casdoor;
// this model mirrors the fields the service needs.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey;size:255"`
	Email         string    `json:"email" gorm:"size:255;index"`
	FullName      string    `json:"full_name" gorm:"size:255"`
	Role          UserRole  `json:"role" gorm:"size:20;default:'student'"`
	AvatarURL     *string   `json:"avatar_url,omitempty" gorm:"size:500"`
	EmailVerified bool      `json:"email_verified" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
