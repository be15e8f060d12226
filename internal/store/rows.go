package store

import (
	"sort"
	"time"

	"medibilling/portal/internal/content"
)

// Wire representations of the remote tables. Optional columns are pointers so
// that a NULL never reaches the entity; it maps to "" or an empty slice.

type ServiceRow struct {
	ID                  string   `json:"id,omitempty"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Details             *string  `json:"details"`
	DetailedTitle       *string  `json:"detailed_title"`
	DetailedDescription *string  `json:"detailed_description"`
	DetailedContent     *string  `json:"detailed_content"`
	ProcessSteps        []string `json:"process_steps"`
	Features            []string `json:"features"`
	Benefits            []string `json:"benefits"`
	CreatedAt           string   `json:"created_at,omitempty"`
}

type TeamRow struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Bio       *string `json:"bio"`
	Image     *string `json:"image"`
	CreatedAt string  `json:"created_at,omitempty"`
}

type JobRow struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Department   string   `json:"department"`
	Type         string   `json:"type"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	PostedDate   *string  `json:"posted_date"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

type ProfileRow struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

func (r ServiceRow) Entity() content.Service {
	return content.NormalizeService(content.Service{
		ID:                  r.ID,
		Title:               r.Title,
		Description:         r.Description,
		Details:             deref(r.Details),
		DetailedTitle:       deref(r.DetailedTitle),
		DetailedDescription: deref(r.DetailedDescription),
		DetailedContent:     deref(r.DetailedContent),
		ProcessSteps:        r.ProcessSteps,
		Features:            r.Features,
		Benefits:            r.Benefits,
	})
}

func ServiceRowFrom(s content.Service) ServiceRow {
	s = content.NormalizeService(s)
	return ServiceRow{
		ID:                  s.ID,
		Title:               s.Title,
		Description:         s.Description,
		Details:             &s.Details,
		DetailedTitle:       &s.DetailedTitle,
		DetailedDescription: &s.DetailedDescription,
		DetailedContent:     &s.DetailedContent,
		ProcessSteps:        s.ProcessSteps,
		Features:            s.Features,
		Benefits:            s.Benefits,
	}
}

func (r TeamRow) Entity() content.TeamMember {
	return content.TeamMember{
		ID:    r.ID,
		Name:  r.Name,
		Role:  r.Role,
		Bio:   deref(r.Bio),
		Image: content.RemoteImage(deref(r.Image)),
	}
}

// TeamRowFrom maps a member to its row. The image must already be resolved;
// a pending image is sent as "".
func TeamRowFrom(m content.TeamMember) TeamRow {
	image := m.Image.URL()
	return TeamRow{
		ID:    m.ID,
		Name:  m.Name,
		Role:  m.Role,
		Bio:   &m.Bio,
		Image: &image,
	}
}

func (r JobRow) Entity() content.Job {
	return content.NormalizeJob(content.Job{
		ID:           r.ID,
		Title:        r.Title,
		Department:   r.Department,
		Type:         r.Type,
		Location:     r.Location,
		Description:  r.Description,
		Requirements: r.Requirements,
		PostedDate:   deref(r.PostedDate),
	})
}

// JobRowFrom maps a job to its row, defaulting posted_date to today.
func JobRowFrom(j content.Job) JobRow {
	j = content.NormalizeJob(j)
	posted := j.PostedDate
	if posted == "" {
		posted = content.Today()
	}
	return JobRow{
		ID:           j.ID,
		Title:        j.Title,
		Department:   j.Department,
		Type:         j.Type,
		Location:     j.Location,
		Description:  j.Description,
		Requirements: j.Requirements,
		PostedDate:   &posted,
	}
}

func (r ProfileRow) Profile() Profile {
	return Profile{ID: r.ID, Email: r.Email, PasswordHash: r.PasswordHash}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// sortByCreated orders rows by their created_at timestamp. Rows whose
// timestamp cannot be parsed compare as the zero time.
func sortByCreated[T any](rows []T, createdAt func(T) string, ascending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := parseTimestamp(createdAt(rows[i])), parseTimestamp(createdAt(rows[j]))
		if ascending {
			return a.Before(b)
		}
		return a.After(b)
	})
}

// sortJobs puts the newest posting first, using created_at to break ties
// between jobs posted on the same day.
func sortJobs(rows []JobRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := deref(rows[i].PostedDate), deref(rows[j].PostedDate)
		if a != b {
			return a > b
		}
		return parseTimestamp(rows[i].CreatedAt).After(parseTimestamp(rows[j].CreatedAt))
	})
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
}

func parseTimestamp(value string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
