package models

import (
	"fmt"
	"time"
)

type PlayerStatus string

const (
	StatusPending  PlayerStatus = "PENDING"
	StatusApproved PlayerStatus = "APPROVED"
	StatusRejected PlayerStatus = "REJECTED"
)

// NoTeamLabel is shown as the team name of a player without a team.
const NoTeamLabel = "Sin equipo"

func (s PlayerStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func ParsePlayerStatus(s string) (PlayerStatus, error) {
	status := PlayerStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid player status %q: must be one of PENDING, APPROVED, REJECTED", s)
	}
	return status, nil
}

type Player struct {
	ID               string       `json:"id"`
	CategoryID       string       `json:"categoryId"`
	TeamID           *string      `json:"teamId"`
	FirstName        string       `json:"firstName"`
	LastName         string       `json:"lastName"`
	BirthDate        *string      `json:"birthDate"`
	PhotoURL         *string      `json:"photoUrl"`
	DocumentPhotoURL *string      `json:"documentPhotoUrl"`
	Status           PlayerStatus `json:"status"`
	CreatedAt        time.Time    `json:"createdAt"`

	// Resolved on read.
	TeamName     string `json:"teamName,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
}

// ResolveTeamName picks the display name for a player's team: the joined
// team name when the reference resolves, the raw stored value otherwise.
func ResolveTeamName(joinedName *string, teamID *string) string {
	if joinedName != nil && *joinedName != "" {
		return *joinedName
	}
	if teamID != nil && *teamID != "" {
		return *teamID
	}
	return NoTeamLabel
}

// DanglingTeamRef is a player whose team_id resolves to no team.
type DanglingTeamRef struct {
	PlayerID   string `json:"playerId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	CategoryID string `json:"categoryId"`
	TeamID     string `json:"teamId"`
}
