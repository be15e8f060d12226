package store

import (
	"testing"

	"medibilling/portal/internal/content"
)

func TestServiceRowMapsNullsToEmptyValues(t *testing.T) {
	row := ServiceRow{ID: "s1", Title: "Coding", Description: "d"}
	got := row.Entity()
	if got.Details != "" || got.DetailedContent != "" {
		t.Fatalf("expected empty optional strings, got %+v", got)
	}
	if got.ProcessSteps == nil || got.Features == nil || got.Benefits == nil {
		t.Fatalf("expected non-nil lists, got %+v", got)
	}
}

func TestServiceRowFromKeepsAllFields(t *testing.T) {
	svc := content.Service{
		ID:              "s1",
		Title:           "Coding",
		Description:     "d",
		DetailedContent: "<p>x</p>",
		Features:        []string{"a"},
	}
	row := ServiceRowFrom(svc)
	if deref(row.DetailedContent) != "<p>x</p>" {
		t.Fatalf("detailed content lost: %+v", row)
	}
	if row.Benefits == nil {
		t.Fatal("expected benefits to be normalized")
	}
	if got := row.Entity(); got.Features[0] != "a" {
		t.Fatalf("unexpected entity %+v", got)
	}
}

func TestJobRowFromDefaultsPostedDate(t *testing.T) {
	row := JobRowFrom(content.Job{Title: "Coder"})
	if deref(row.PostedDate) != content.Today() {
		t.Fatalf("expected today's date, got %q", deref(row.PostedDate))
	}

	row = JobRowFrom(content.Job{Title: "Coder", PostedDate: "2024-01-15"})
	if deref(row.PostedDate) != "2024-01-15" {
		t.Fatalf("expected existing date kept, got %q", deref(row.PostedDate))
	}
}

func TestTeamRowImageIsRemoteURL(t *testing.T) {
	row := TeamRow{ID: "t1", Name: "A", Role: "R", Image: strPtr("https://cdn/x.png")}
	got := row.Entity()
	if got.Image.URL() != "https://cdn/x.png" || got.Image.IsPending() {
		t.Fatalf("unexpected image %+v", got.Image)
	}
	if got := (TeamRow{ID: "t2"}).Entity(); !got.Image.IsEmpty() {
		t.Fatalf("expected empty image for null column, got %+v", got.Image)
	}
}

func TestSortByCreated(t *testing.T) {
	rows := []JobRow{
		{ID: "b", CreatedAt: "2024-02-01T00:00:00Z"},
		{ID: "a", CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "c", CreatedAt: "2024-03-01 10:00:00.123+00"},
	}
	sortByCreated(rows, func(r JobRow) string { return r.CreatedAt }, false)
	if rows[0].ID != "c" || rows[1].ID != "b" || rows[2].ID != "a" {
		t.Fatalf("unexpected descending order: %v %v %v", rows[0].ID, rows[1].ID, rows[2].ID)
	}

	sortByCreated(rows, func(r JobRow) string { return r.CreatedAt }, true)
	if rows[0].ID != "a" || rows[2].ID != "c" {
		t.Fatalf("unexpected ascending order: %v %v %v", rows[0].ID, rows[1].ID, rows[2].ID)
	}
}

func TestSortJobsNewestPostingFirst(t *testing.T) {
	rows := []JobRow{
		{ID: "old", PostedDate: strPtr("2024-01-15"), CreatedAt: "2024-06-01T00:00:00Z"},
		{ID: "new-a", PostedDate: strPtr("2024-03-01"), CreatedAt: "2024-03-01T08:00:00Z"},
		{ID: "new-b", PostedDate: strPtr("2024-03-01"), CreatedAt: "2024-03-01T09:00:00Z"},
	}
	sortJobs(rows)
	if rows[0].ID != "new-b" || rows[1].ID != "new-a" || rows[2].ID != "old" {
		t.Fatalf("unexpected order: %v %v %v", rows[0].ID, rows[1].ID, rows[2].ID)
	}
}

func strPtr(v string) *string { return &v }
