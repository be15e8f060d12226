package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"medibilling/portal/internal/content"
)

type fakeSource struct {
	mu       sync.Mutex
	services []content.Service
	loads    int

	servicesFn func(context.Context) []content.Service
	saveFn     func(context.Context, []content.Service) ([]content.Service, error)
}

func (f *fakeSource) Services(ctx context.Context) []content.Service {
	f.mu.Lock()
	f.loads++
	f.mu.Unlock()
	if f.servicesFn != nil {
		return f.servicesFn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return content.CloneServices(f.services)
}

func (f *fakeSource) SaveServices(ctx context.Context, services []content.Service) ([]content.Service, error) {
	if f.saveFn != nil {
		return f.saveFn(ctx, services)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.services = content.CloneServices(services)
	return services, nil
}

func TestInitTransitionsToReady(t *testing.T) {
	source := &fakeSource{services: []content.Service{{ID: "a", Title: "A"}}}
	cache := New(source, Options{})
	defer cache.Close()

	if cache.State() != Uninitialized {
		t.Fatalf("expected uninitialized, got %s", cache.State())
	}
	if err := cache.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if cache.State() != Ready {
		t.Fatalf("expected ready, got %s", cache.State())
	}
	if err := cache.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if source.loads != 1 {
		t.Fatalf("expected a single load, got %d", source.loads)
	}
	if s, ok := cache.Service("a"); !ok || s.Title != "A" {
		t.Fatalf("unexpected service %+v ok=%v", s, ok)
	}
}

func TestStateIsLoadingDuringRefresh(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{servicesFn: func(context.Context) []content.Service {
		close(started)
		<-release
		return []content.Service{{ID: "x"}}
	}}
	cache := New(source, Options{})
	defer cache.Close()

	done := make(chan error, 1)
	go func() { done <- cache.Refresh(context.Background()) }()
	<-started
	if cache.State() != Loading {
		t.Fatalf("expected loading, got %s", cache.State())
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if cache.State() != Ready || len(cache.Services()) != 1 {
		t.Fatalf("unexpected state %s services %+v", cache.State(), cache.Services())
	}
}

func TestUpdateIsOptimistic(t *testing.T) {
	release := make(chan struct{})
	source := &fakeSource{saveFn: func(_ context.Context, s []content.Service) ([]content.Service, error) {
		<-release
		return s, nil
	}}
	cache := New(source, Options{})
	defer cache.Close()

	result := cache.UpdateServices([]content.Service{{ID: "n", Title: "New"}})
	if got := cache.Services(); len(got) != 1 || got[0].ID != "n" {
		t.Fatalf("expected optimistic update, got %+v", got)
	}
	close(release)
	if err := <-result; err != nil {
		t.Fatalf("persist: %v", err)
	}
}

func TestFailedUpdateKeepsListByDefault(t *testing.T) {
	source := &fakeSource{
		services: []content.Service{{ID: "old"}},
		saveFn: func(context.Context, []content.Service) ([]content.Service, error) {
			return nil, errors.New("remote down")
		},
	}
	cache := New(source, Options{})
	defer cache.Close()
	if err := cache.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := <-cache.UpdateServices([]content.Service{{ID: "new"}}); err == nil {
		t.Fatal("expected persistence error")
	}
	if got := cache.Services(); len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("expected in-memory list kept, got %+v", got)
	}
}

func TestFailedUpdateRollsBackWhenEnabled(t *testing.T) {
	source := &fakeSource{
		services: []content.Service{{ID: "old"}},
		saveFn: func(context.Context, []content.Service) ([]content.Service, error) {
			return nil, errors.New("remote down")
		},
	}
	cache := New(source, Options{RollbackOnFailure: true})
	defer cache.Close()
	if err := cache.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := <-cache.UpdateServices([]content.Service{{ID: "new"}}); err == nil {
		t.Fatal("expected persistence error")
	}
	if got := cache.Services(); len(got) != 1 || got[0].ID != "old" {
		t.Fatalf("expected rollback, got %+v", got)
	}
}

func TestOverlappingUpdatesPersistNewestList(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	source := &fakeSource{}
	source.saveFn = func(_ context.Context, s []content.Service) ([]content.Service, error) {
		slow := false
		once.Do(func() { slow = true })
		if slow {
			close(started)
			<-release
		}
		source.mu.Lock()
		source.services = content.CloneServices(s)
		source.mu.Unlock()
		return s, nil
	}
	cache := New(source, Options{})
	defer cache.Close()

	_, first := cache.Upsert(content.Service{ID: "a", Title: "A"})
	<-started
	_, second := cache.Upsert(content.Service{ID: "b", Title: "B"})
	close(release)
	for _, result := range []<-chan error{first, second} {
		if err := <-result; err != nil {
			t.Fatalf("persist: %v", err)
		}
	}

	source.mu.Lock()
	durable := serviceIDs(source.services)
	source.mu.Unlock()
	cached := serviceIDs(cache.Services())
	if cached != "a,b" || durable != cached {
		t.Fatalf("expected cache and source to hold a,b, got cache=%s source=%s", cached, durable)
	}
}

func TestStaleSaveResultIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	source := &fakeSource{saveFn: func(_ context.Context, s []content.Service) ([]content.Service, error) {
		slow := false
		once.Do(func() { slow = true })
		if slow {
			close(started)
			<-release
			return []content.Service{{ID: "first-saved"}}, nil
		}
		return s, nil
	}}
	cache := New(source, Options{})
	defer cache.Close()

	first := cache.UpdateServices([]content.Service{{ID: "first"}})
	<-started
	second := cache.UpdateServices([]content.Service{{ID: "second"}})
	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second update: %v", err)
	}
	if got := cache.Services(); len(got) != 1 || got[0].ID != "second" {
		t.Fatalf("expected newest update to win, got %+v", got)
	}
}

func TestConcurrentUpsertsKeepEveryService(t *testing.T) {
	source := &fakeSource{}
	cache := New(source, Options{})
	defer cache.Close()

	var wg sync.WaitGroup
	results := make(chan (<-chan error), 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, result := cache.Upsert(content.Service{Title: "S"})
			results <- result
		}()
	}
	wg.Wait()
	close(results)
	for result := range results {
		if err := <-result; err != nil {
			t.Fatalf("persist: %v", err)
		}
	}

	if got := len(cache.Services()); got != 10 {
		t.Fatalf("expected 10 cached services, got %d", got)
	}
	source.mu.Lock()
	defer source.mu.Unlock()
	if got := len(source.services); got != 10 {
		t.Fatalf("expected 10 persisted services, got %d", got)
	}
}

func serviceIDs(services []content.Service) string {
	ids := make([]string, 0, len(services))
	for _, s := range services {
		ids = append(ids, s.ID)
	}
	return strings.Join(ids, ",")
}

func TestUpsertAndRemove(t *testing.T) {
	source := &fakeSource{services: []content.Service{{ID: "a", Title: "A"}}}
	cache := New(source, Options{})
	defer cache.Close()
	if err := cache.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	created, result := cache.Upsert(content.Service{Title: "B", Features: []string{"x"}})
	if err := <-result; err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created.ID == "" || created.Benefits == nil {
		t.Fatalf("expected id and normalized lists, got %+v", created)
	}
	if len(cache.Services()) != 2 {
		t.Fatalf("expected two services, got %+v", cache.Services())
	}

	_, result = cache.Upsert(content.Service{ID: "a", Title: "A2"})
	if err := <-result; err != nil {
		t.Fatalf("update: %v", err)
	}
	if s, _ := cache.Service("a"); s.Title != "A2" {
		t.Fatalf("expected replacement, got %+v", s)
	}

	if err := <-cache.Remove("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := <-cache.Remove("missing"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if got := cache.Services(); len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("unexpected services %+v", got)
	}
	if len(source.services) != 1 {
		t.Fatalf("expected source to hold one service, got %+v", source.services)
	}
}

func TestCloseDiscardsLateResults(t *testing.T) {
	release := make(chan struct{})
	source := &fakeSource{saveFn: func(context.Context, []content.Service) ([]content.Service, error) {
		<-release
		return []content.Service{{ID: "late"}}, nil
	}}
	cache := New(source, Options{})

	result := cache.UpdateServices([]content.Service{{ID: "pending"}})
	closed := make(chan struct{})
	go func() {
		cache.Close()
		close(closed)
	}()
	waitClosed(t, cache)
	close(release)
	<-closed
	<-result

	if got := cache.Services(); len(got) != 1 || got[0].ID != "pending" {
		t.Fatalf("expected late result ignored, got %+v", got)
	}
	if err := <-cache.UpdateServices(nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := cache.Refresh(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from refresh, got %v", err)
	}
}

func waitClosed(t *testing.T, cache *Cache) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		cache.mu.RLock()
		closed := cache.closed
		cache.mu.RUnlock()
		if closed {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("cache did not close")
}
