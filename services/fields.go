package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/repositories"
	"github.com/Dosada05/roster-system/utils"
)

type fieldKind int

const (
	kindRequiredText fieldKind = iota // non-empty string
	kindNullableText                  // string or null; "" stores null
	kindDate                          // null or a date in one of birthDateLayouts
	kindCategoryRef                   // id of an existing category
	kindTeamRef                       // id of an existing team, or null
	kindPlayerStatus                  // models.PlayerStatus
	kindUserRole                      // models.UserRole
	kindPassword                      // non-empty string, stored hashed
	kindStringList                    // array of strings, stored as JSON text
)

// fieldSpec maps an external (JSON) field name to its column and value kind.
type fieldSpec struct {
	Name   string
	Column string
	Kind   fieldKind
}

// Порядок полей в таблице определяет порядок колонок в UPDATE.
var playerFields = []fieldSpec{
	{Name: "categoryId", Column: "category_id", Kind: kindCategoryRef},
	{Name: "teamId", Column: "team_id", Kind: kindTeamRef},
	{Name: "firstName", Column: "first_name", Kind: kindRequiredText},
	{Name: "lastName", Column: "last_name", Kind: kindRequiredText},
	{Name: "birthDate", Column: "birth_date", Kind: kindDate},
	{Name: "photoUrl", Column: "photo_url", Kind: kindNullableText},
	{Name: "documentPhotoUrl", Column: "document_photo_url", Kind: kindNullableText},
	{Name: "status", Column: "status", Kind: kindPlayerStatus},
}

var userFields = []fieldSpec{
	{Name: "username", Column: "username", Kind: kindRequiredText},
	{Name: "password", Column: "password", Kind: kindPassword},
	{Name: "role", Column: "role", Kind: kindUserRole},
	{Name: "assignedTeams", Column: "assigned_teams", Kind: kindStringList},
}

// Accepted birth date formats: the legacy dd/mm/yyyy and ISO dates.
var birthDateLayouts = []string{"02/01/2006", "2006-01-02"}

// fieldValue is one decoded, kind-checked field of a partial update.
type fieldValue struct {
	Spec fieldSpec
	Null bool
	Text string
	List []string
}

// decodePatch validates a partial update body against a field table. The
// "id" key is ignored; unknown keys and values of the wrong type are
// validation errors. The result follows the table order.
func decodePatch(fields []fieldSpec, body map[string]json.RawMessage) ([]fieldValue, error) {
	index := make(map[string]fieldSpec, len(fields))
	for _, f := range fields {
		index[f.Name] = f
	}

	var unknown []string
	for key := range body {
		if key == "id" {
			continue
		}
		if _, ok := index[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: unknown field(s): %s", ErrValidationFailed, strings.Join(unknown, ", "))
	}

	values := make([]fieldValue, 0, len(body))
	for _, spec := range fields {
		raw, ok := body[spec.Name]
		if !ok {
			continue
		}
		v, err := decodeField(spec, raw)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	if len(values) == 0 {
		return nil, ErrNoFieldsToUpdate
	}
	return values, nil
}

func decodeField(spec fieldSpec, raw json.RawMessage) (fieldValue, error) {
	v := fieldValue{Spec: spec}
	isNull := len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))

	if spec.Kind == kindStringList {
		if isNull {
			v.List = []string{}
			return v, nil
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return v, fmt.Errorf("%w: %s must be an array of strings", ErrValidationFailed, spec.Name)
		}
		v.List = uniqueIDs(list)
		return v, nil
	}

	if isNull {
		switch spec.Kind {
		case kindNullableText, kindDate, kindTeamRef:
			v.Null = true
			return v, nil
		default:
			return v, fmt.Errorf("%w: %s must not be null", ErrValidationFailed, spec.Name)
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return v, fmt.Errorf("%w: %s must be a string", ErrValidationFailed, spec.Name)
	}

	switch spec.Kind {
	case kindRequiredText, kindCategoryRef:
		s = strings.TrimSpace(s)
		if s == "" {
			return v, fmt.Errorf("%w: %s must not be empty", ErrValidationFailed, spec.Name)
		}
	case kindPassword:
		if s == "" {
			return v, fmt.Errorf("%w: %s must not be empty", ErrValidationFailed, spec.Name)
		}
	case kindNullableText, kindTeamRef:
		s = strings.TrimSpace(s)
		if s == "" {
			v.Null = true
			return v, nil
		}
	case kindDate:
		s = strings.TrimSpace(s)
		if s == "" {
			v.Null = true
			return v, nil
		}
		if err := validateBirthDate(s); err != nil {
			return v, err
		}
	case kindPlayerStatus:
		if _, err := models.ParsePlayerStatus(s); err != nil {
			return v, fmt.Errorf("%w: %w", ErrInvalidPlayerStatus, err)
		}
	case kindUserRole:
		if _, err := models.ParseUserRole(s); err != nil {
			return v, fmt.Errorf("%w: %w", ErrInvalidUserRole, err)
		}
	}

	v.Text = s
	return v, nil
}

func validateBirthDate(s string) error {
	for _, layout := range birthDateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: birthDate %q must be formatted as dd/mm/yyyy or yyyy-mm-dd", ErrValidationFailed, s)
}

// toAssignments converts decoded fields into column assignments. check runs
// for every field before conversion and may reject references.
func toAssignments(values []fieldValue, check func(fieldValue) error) ([]repositories.Assignment, error) {
	assignments := make([]repositories.Assignment, 0, len(values))
	for _, v := range values {
		if check != nil {
			if err := check(v); err != nil {
				return nil, err
			}
		}

		var value interface{}
		switch {
		case v.Spec.Kind == kindStringList:
			encoded, err := repositories.EncodeAssignedTeams(v.List)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s: %w", v.Spec.Name, err)
			}
			value = encoded
		case v.Null:
			value = nil
		case v.Spec.Kind == kindPassword:
			hashed, err := utils.HashPassword(v.Text)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password: %w", err)
			}
			value = hashed
		default:
			value = v.Text
		}

		assignments = append(assignments, repositories.Assignment{Column: v.Spec.Column, Value: value})
	}
	return assignments, nil
}
