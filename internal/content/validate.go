package content

import (
	"errors"
	"fmt"
	"strings"
)

var ErrValidation = errors.New("validation failed")

// ValidationError lists the required fields that were blank.
type ValidationError struct {
	Entity string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Entity, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func ValidateService(s Service) error {
	return require("service", map[string]string{
		"title":       s.Title,
		"description": s.Description,
	}, "title", "description")
}

func ValidateTeamMember(m TeamMember) error {
	return require("team member", map[string]string{
		"name": m.Name,
		"role": m.Role,
	}, "name", "role")
}

func ValidateJob(j Job) error {
	return require("job", map[string]string{
		"title":       j.Title,
		"department":  j.Department,
		"type":        j.Type,
		"location":    j.Location,
		"description": j.Description,
	}, "title", "department", "type", "location", "description")
}

func require(entity string, values map[string]string, order ...string) error {
	var missing []string
	for _, field := range order {
		if strings.TrimSpace(values[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Entity: entity, Fields: missing}
}

// CleanList trims entries and drops blank ones, as the admin forms submit one
// item per line.
func CleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
