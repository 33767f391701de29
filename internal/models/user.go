package models

import "time"

// Role identifies what a user is allowed to do on the platform. It is stored
// explicitly and assigned exactly once at registration; a user is always
// either a teacher or a student, never both.
type Role string

const (
	// RoleTeacher marks users who own classrooms and grade submissions.
	RoleTeacher Role = "teacher"
	// RoleStudent marks users who join classrooms and submit projects.
	RoleStudent Role = "student"
)

// User represents an account on the platform.
type User struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Email        string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string          `gorm:"size:255;not null" json:"-"`
	Role         Role            `gorm:"size:16;not null;default:student" json:"role"`
	Profile      *TeacherProfile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsTeacher reports whether the user holds the teacher role.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// IsStudent reports whether the user holds the student role.
func (u User) IsStudent() bool {
	return u.Role == RoleStudent
}

// TeacherProfile carries teacher-only metadata, created together with the
// owning user at teacher registration and removed with it.
type TeacherProfile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Department string    `gorm:"size:100" json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}
