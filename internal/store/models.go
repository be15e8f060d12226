// Package store implements the remote content store: the services, teams,
// jobs and profiles tables, reachable either through Supabase's REST API or a
// direct Postgres connection.
package store

import "errors"

// ErrNotFound is returned when a lookup or delete matches no row.
var ErrNotFound = errors.New("not found")

const (
	TableServices = "services"
	TableTeams    = "teams"
	TableJobs     = "jobs"
	TableProfiles = "profiles"
)

// Profile is an admin login record.
type Profile struct {
	ID           string
	Email        string
	PasswordHash string
}
