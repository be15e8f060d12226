package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewSupabaseStoreRequiresCredentials(t *testing.T) {
	if _, err := NewSupabaseStore("", "key", nil); err == nil {
		t.Fatal("expected error for missing URL")
	}
	if _, err := NewSupabaseStore("https://example.supabase.co", " ", nil); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestSupabaseListServicesOrdersByCreatedAt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/services") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"late","title":"Late","description":"d","details":null,"process_steps":null,"features":["f"],"benefits":[],"created_at":"2024-05-01T00:00:00+00:00"},
			{"id":"early","title":"Early","description":"d","details":"x","process_steps":["one"],"features":[],"benefits":[],"created_at":"2024-01-01T00:00:00+00:00"}
		]`))
	}))
	defer server.Close()

	store, err := NewSupabaseStore(server.URL, "anon", nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	services, err := store.ListServices(context.Background())
	if err != nil {
		t.Fatalf("list services: %v", err)
	}
	if len(services) != 2 || services[0].ID != "early" || services[1].ID != "late" {
		t.Fatalf("unexpected services %+v", services)
	}
	if services[1].ProcessSteps == nil || services[1].Details != "" {
		t.Fatalf("expected null columns to normalize, got %+v", services[1])
	}
}

func TestSupabaseListReturnsEmptyOnTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	store, err := NewSupabaseStore(url, "anon", nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	jobs, err := store.ListJobs(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if jobs == nil || len(jobs) != 0 {
		t.Fatalf("expected empty non-nil jobs, got %#v", jobs)
	}
}

func TestSupabaseCallHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()
	defer close(release)

	store, err := NewSupabaseStore(server.URL, "anon", nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = store.ListTeamMembers(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
