package model

import "time"

// Role is a user's permission level within the club.
type Role string

const (
	RoleMember      Role = "member"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

// Level returns the numeric rank of the role (higher = more authority).
// Unknown roles rank below member.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleCoordinator:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// CanAssignWork reports whether the role carries work-assignment
// authority: creating tasks, approving them, and reassigning people.
func (r Role) CanAssignWork() bool {
	return r == RoleCoordinator || r == RoleAdmin
}

// User is a club member account.
type User struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	Role        Role      `json:"role" db:"role"`
	AvatarColor string    `json:"avatar_color" db:"avatar_color"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
}

// Actor identifies the user performing an operation. The identity
// layer resolves credentials; everything below it only sees this pair.
type Actor struct {
	ID   string
	Role Role
}
