package models

import "fmt"

type UserRole string

const (
	RoleOrganizer UserRole = "ORGANIZER"
	RoleDelegate  UserRole = "DELEGATE"
)

func ParseUserRole(s string) (UserRole, error) {
	switch role := UserRole(s); role {
	case RoleOrganizer, RoleDelegate:
		return role, nil
	default:
		return "", fmt.Errorf("invalid role %q: must be either ORGANIZER or DELEGATE", s)
	}
}

type User struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	PasswordHash  string   `json:"-"`
	Role          UserRole `json:"role"`
	AssignedTeams []string `json:"assignedTeams"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
