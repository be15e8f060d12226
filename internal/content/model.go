// Package content defines the site's editable entities and the aggregate
// that is persisted as a single blob by the local store.
package content

import (
	"time"
)

// DateLayout is the calendar-date format used for Job.PostedDate.
const DateLayout = "2006-01-02"

type Service struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Details             string   `json:"details,omitempty"`
	DetailedTitle       string   `json:"detailedTitle,omitempty"`
	DetailedDescription string   `json:"detailedDescription,omitempty"`
	DetailedContent     string   `json:"detailedContent,omitempty"`
	ProcessSteps        []string `json:"processSteps"`
	Features            []string `json:"features"`
	Benefits            []string `json:"benefits"`
}

type TeamMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Bio   string `json:"bio,omitempty"`
	Image Image  `json:"image"`
}

type Job struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Department   string   `json:"department"`
	Type         string   `json:"type"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	PostedDate   string   `json:"postedDate"`
}

// AdminData is the unit of local persistence.
type AdminData struct {
	Team     []TeamMember `json:"team"`
	Services []Service    `json:"services"`
	Jobs     []Job        `json:"jobs"`
}

// Today returns the current UTC calendar date in DateLayout.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// NormalizeService replaces nil slices with empty ones.
func NormalizeService(s Service) Service {
	s.ProcessSteps = nonNil(s.ProcessSteps)
	s.Features = nonNil(s.Features)
	s.Benefits = nonNil(s.Benefits)
	return s
}

func NormalizeJob(j Job) Job {
	j.Requirements = nonNil(j.Requirements)
	return j
}

func NormalizeServices(services []Service) []Service {
	out := make([]Service, 0, len(services))
	for _, s := range services {
		out = append(out, NormalizeService(s))
	}
	return out
}

func NormalizeJobs(jobs []Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, NormalizeJob(j))
	}
	return out
}

func NormalizeTeam(team []TeamMember) []TeamMember {
	out := make([]TeamMember, 0, len(team))
	return append(out, team...)
}

// Normalize returns a copy of data whose collections and nested slices are
// all non-nil.
func (d AdminData) Normalize() AdminData {
	return AdminData{
		Team:     NormalizeTeam(d.Team),
		Services: NormalizeServices(d.Services),
		Jobs:     NormalizeJobs(d.Jobs),
	}
}

// Clone returns a deep copy of data.
func (d AdminData) Clone() AdminData {
	out := d.Normalize()
	for i := range out.Services {
		out.Services[i] = CloneService(out.Services[i])
	}
	for i := range out.Jobs {
		out.Jobs[i].Requirements = append([]string{}, out.Jobs[i].Requirements...)
	}
	return out
}

// CloneService returns a copy of s that shares no slice storage with it.
func CloneService(s Service) Service {
	s = NormalizeService(s)
	s.ProcessSteps = append([]string{}, s.ProcessSteps...)
	s.Features = append([]string{}, s.Features...)
	s.Benefits = append([]string{}, s.Benefits...)
	return s
}

func CloneServices(services []Service) []Service {
	out := make([]Service, 0, len(services))
	for _, s := range services {
		out = append(out, CloneService(s))
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
