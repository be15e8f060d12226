package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	supabase "github.com/nedpals/supabase-go"
	"go.uber.org/zap"

	"medibilling/portal/internal/content"
)

// SupabaseStore reads and writes content through the Supabase REST API.
type SupabaseStore struct {
	client *supabase.Client
	logger *zap.Logger
}

func NewSupabaseStore(supabaseURL, supabaseKey string, logger *zap.Logger) (*SupabaseStore, error) {
	supabaseURL = strings.TrimRight(strings.TrimSpace(supabaseURL), "/")
	supabaseKey = strings.TrimSpace(supabaseKey)
	if supabaseURL == "" || supabaseKey == "" {
		return nil, errors.New("supabase URL and key are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupabaseStore{
		client: supabase.CreateClient(supabaseURL, supabaseKey),
		logger: logger.Named("supabase"),
	}, nil
}

// call runs a blocking SDK request and gives up when ctx ends. The SDK does
// not accept a context, so an abandoned request finishes in the background.
func call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SupabaseStore) Ping(ctx context.Context) error {
	return call(ctx, func() error {
		var rows []struct {
			ID string `json:"id"`
		}
		return s.client.DB.From(TableServices).Select("id").Execute(&rows)
	})
}

func (s *SupabaseStore) ListServices(ctx context.Context) ([]content.Service, error) {
	var rows []ServiceRow
	err := call(ctx, func() error {
		var res []ServiceRow
		if err := s.client.DB.From(TableServices).Select("*").Execute(&res); err != nil {
			return err
		}
		rows = res
		return nil
	})
	if err != nil {
		s.logger.Warn("list services failed", zap.Error(err))
		return []content.Service{}, fmt.Errorf("list services: %w", err)
	}
	sortByCreated(rows, func(r ServiceRow) string { return r.CreatedAt }, true)
	out := make([]content.Service, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Entity())
	}
	return out, nil
}

func (s *SupabaseStore) UpsertService(ctx context.Context, service content.Service) (content.Service, error) {
	var saved []ServiceRow
	err := call(ctx, func() error {
		var res []ServiceRow
		if err := s.client.DB.From(TableServices).Upsert(ServiceRowFrom(service)).Execute(&res); err != nil {
			return err
		}
		saved = res
		return nil
	})
	if err != nil {
		s.logger.Warn("upsert service failed", zap.String("id", service.ID), zap.Error(err))
		return content.Service{}, fmt.Errorf("upsert service: %w", err)
	}
	if len(saved) == 0 {
		return content.NormalizeService(service), nil
	}
	return saved[0].Entity(), nil
}

func (s *SupabaseStore) DeleteService(ctx context.Context, id string) error {
	return s.deleteByID(ctx, TableServices, id)
}

func (s *SupabaseStore) ListTeamMembers(ctx context.Context) ([]content.TeamMember, error) {
	var rows []TeamRow
	err := call(ctx, func() error {
		var res []TeamRow
		if err := s.client.DB.From(TableTeams).Select("*").Execute(&res); err != nil {
			return err
		}
		rows = res
		return nil
	})
	if err != nil {
		s.logger.Warn("list team failed", zap.Error(err))
		return []content.TeamMember{}, fmt.Errorf("list team members: %w", err)
	}
	sortByCreated(rows, func(r TeamRow) string { return r.CreatedAt }, true)
	out := make([]content.TeamMember, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Entity())
	}
	return out, nil
}

func (s *SupabaseStore) UpsertTeamMember(ctx context.Context, member content.TeamMember) (content.TeamMember, error) {
	if member.Image.IsPending() {
		return content.TeamMember{}, content.ErrPendingImage
	}
	var saved []TeamRow
	err := call(ctx, func() error {
		var res []TeamRow
		if err := s.client.DB.From(TableTeams).Upsert(TeamRowFrom(member)).Execute(&res); err != nil {
			return err
		}
		saved = res
		return nil
	})
	if err != nil {
		s.logger.Warn("upsert team member failed", zap.String("id", member.ID), zap.Error(err))
		return content.TeamMember{}, fmt.Errorf("upsert team member: %w", err)
	}
	if len(saved) == 0 {
		return member, nil
	}
	return saved[0].Entity(), nil
}

func (s *SupabaseStore) DeleteTeamMember(ctx context.Context, id string) error {
	return s.deleteByID(ctx, TableTeams, id)
}

func (s *SupabaseStore) ListJobs(ctx context.Context) ([]content.Job, error) {
	var rows []JobRow
	err := call(ctx, func() error {
		var res []JobRow
		if err := s.client.DB.From(TableJobs).Select("*").Execute(&res); err != nil {
			return err
		}
		rows = res
		return nil
	})
	if err != nil {
		s.logger.Warn("list jobs failed", zap.Error(err))
		return []content.Job{}, fmt.Errorf("list jobs: %w", err)
	}
	sortJobs(rows)
	out := make([]content.Job, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Entity())
	}
	return out, nil
}

func (s *SupabaseStore) UpsertJob(ctx context.Context, job content.Job) (content.Job, error) {
	row := JobRowFrom(job)
	var saved []JobRow
	err := call(ctx, func() error {
		var res []JobRow
		if err := s.client.DB.From(TableJobs).Upsert(row).Execute(&res); err != nil {
			return err
		}
		saved = res
		return nil
	})
	if err != nil {
		s.logger.Warn("upsert job failed", zap.String("id", job.ID), zap.Error(err))
		return content.Job{}, fmt.Errorf("upsert job: %w", err)
	}
	if len(saved) == 0 {
		return row.Entity(), nil
	}
	return saved[0].Entity(), nil
}

func (s *SupabaseStore) DeleteJob(ctx context.Context, id string) error {
	return s.deleteByID(ctx, TableJobs, id)
}

// FindProfile looks up an admin profile by email, case-insensitively.
func (s *SupabaseStore) FindProfile(ctx context.Context, email string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var rows []ProfileRow
	err := call(ctx, func() error {
		var res []ProfileRow
		if err := s.client.DB.From(TableProfiles).Select("*").Eq("email", email).Execute(&res); err != nil {
			return err
		}
		rows = res
		return nil
	})
	if err != nil {
		return Profile{}, fmt.Errorf("find profile: %w", err)
	}
	if len(rows) == 0 {
		return Profile{}, ErrNotFound
	}
	return rows[0].Profile(), nil
}

func (s *SupabaseStore) deleteByID(ctx context.Context, table, id string) error {
	var deleted []struct {
		ID string `json:"id"`
	}
	err := call(ctx, func() error {
		var res []struct {
			ID string `json:"id"`
		}
		if err := s.client.DB.From(table).Delete().Eq("id", id).Execute(&res); err != nil {
			return err
		}
		deleted = res
		return nil
	})
	if err != nil {
		s.logger.Warn("delete failed", zap.String("table", table), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	return nil
}
