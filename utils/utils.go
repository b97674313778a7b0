package utils

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = bcrypt.DefaultCost

// Префиксы идентификаторов сущностей.
const (
	PrefixCategory = "cat"
	PrefixTeam     = "team"
	PrefixPlayer   = "player"
	PrefixUser     = "user"
)

// NewID returns "<prefix>_<uuid>".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// LegacyTeamID derives the id the old roster data used for a team name:
// "Los Halcones" becomes "team_los_halcones".
func LegacyTeamID(name string) string {
	s := slug.Make(name)
	if s == "" {
		return ""
	}
	return PrefixTeam + "_" + strings.ReplaceAll(s, "-", "_")
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

// IsPasswordHash reports whether stored looks like a bcrypt hash rather than
// a legacy plaintext password.
func IsPasswordHash(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}

// CheckPassword compares password with the stored value. Legacy plaintext
// values are compared directly; needsRehash is true in that case.
func CheckPassword(password, stored string) (ok bool, needsRehash bool, err error) {
	if !IsPasswordHash(stored) {
		return password == stored && stored != "", true, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, false, nil
}
