package models

import "time"

// Role is a member's role within a class.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// MembershipStatus is the state of a membership. Joins go straight to active
// unless the deployment requires teacher approval.
type MembershipStatus string

const (
	StatusPending MembershipStatus = "pending"
	StatusActive  MembershipStatus = "active"
)

// Class is a course with one teacher and shared materials.
type Class struct {
	ID          string    `json:"class_id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	TeacherID   string    `json:"teacher_id" db:"teacher_id"`
	InviteCode  string    `json:"invite_code,omitempty" db:"invite_code"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Membership links a user to a class.
type Membership struct {
	ClassID  string           `json:"class_id" db:"class_id"`
	UserID   string           `json:"user_id" db:"user_id"`
	Role     Role             `json:"role" db:"role"`
	Status   MembershipStatus `json:"status" db:"status"`
	JoinedAt time.Time        `json:"joined_at" db:"joined_at"`
}

// Member is a membership joined with the member's account details.
type Member struct {
	Membership
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ClassSummary is a class as listed for one user.
type ClassSummary struct {
	Class
	Role         Role             `json:"role"`
	Status       MembershipStatus `json:"status"`
	TeacherName  string           `json:"teacher_name"`
	TeacherEmail string           `json:"teacher_email"`
}

// ClassDetail is the full view of a class for one of its members.
// InviteCode (on the embedded Class) is only set for the teacher.
type ClassDetail struct {
	Class
	TeacherName string    `json:"teacher_name"`
	IsTeacher   bool      `json:"is_teacher"`
	Members     []*Member `json:"members"`
}
