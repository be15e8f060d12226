package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"medibilling/portal/internal/content"
	"medibilling/portal/internal/logging"
)

const DefaultKey = "medibilling-admin-data"

// Store reads and writes the AdminData blob. Every entity-level write is a
// read-modify-write of the whole blob. Writers in this process are
// serialized; writers in other processes sharing the KV are last-write-wins.
type Store struct {
	kv     KV
	key    string
	logger *zap.Logger
	mu     sync.Mutex
}

func New(kv KV, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key, logger: logging.OrNop(logger).Named("localstore")}
}

// Load returns the stored aggregate, or the seed dataset when the key is
// missing or unreadable. The seed is not written back.
func (s *Store) Load(ctx context.Context) content.AdminData {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Error("load admin data", zap.String("key", s.key), zap.Error(err))
		}
		return content.DefaultData()
	}

	var data content.AdminData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Error("decode admin data", zap.String("key", s.key), zap.Error(err))
		return content.DefaultData()
	}
	return data.Normalize()
}

// Save overwrites the blob. Failures are logged and leave the stored value
// unchanged.
func (s *Store) Save(ctx context.Context, data content.AdminData) {
	raw, err := json.Marshal(data.Normalize())
	if err != nil {
		s.logger.Error("encode admin data", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		s.logger.Error("save admin data", zap.String("key", s.key), zap.Int("bytes", len(raw)), zap.Error(err))
	}
}

func (s *Store) update(ctx context.Context, mutate func(*content.AdminData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.Load(ctx)
	mutate(&data)
	s.Save(ctx, data)
}

func (s *Store) Services(ctx context.Context) []content.Service {
	return s.Load(ctx).Services
}

func (s *Store) SaveServices(ctx context.Context, services []content.Service) {
	s.update(ctx, func(data *content.AdminData) {
		data.Services = content.NormalizeServices(services)
	})
}

func (s *Store) TeamMembers(ctx context.Context) []content.TeamMember {
	return s.Load(ctx).Team
}

// SaveTeamMembers converts pending images to data URLs before persisting.
func (s *Store) SaveTeamMembers(ctx context.Context, team []content.TeamMember) {
	resolved := ResolveImages(team)
	s.update(ctx, func(data *content.AdminData) {
		data.Team = resolved
	})
}

func (s *Store) Jobs(ctx context.Context) []content.Job {
	return s.Load(ctx).Jobs
}

func (s *Store) SaveJobs(ctx context.Context, jobs []content.Job) {
	s.update(ctx, func(data *content.AdminData) {
		data.Jobs = content.NormalizeJobs(jobs)
	})
}

// UpsertService replaces the service with the same id or appends it.
func (s *Store) UpsertService(ctx context.Context, service content.Service) {
	service = content.NormalizeService(service)
	s.update(ctx, func(data *content.AdminData) {
		for i := range data.Services {
			if data.Services[i].ID == service.ID {
				data.Services[i] = service
				return
			}
		}
		data.Services = append(data.Services, service)
	})
}

func (s *Store) UpsertTeamMember(ctx context.Context, member content.TeamMember) {
	member = ResolveImages([]content.TeamMember{member})[0]
	s.update(ctx, func(data *content.AdminData) {
		for i := range data.Team {
			if data.Team[i].ID == member.ID {
				data.Team[i] = member
				return
			}
		}
		data.Team = append(data.Team, member)
	})
}

func (s *Store) UpsertJob(ctx context.Context, job content.Job) {
	job = content.NormalizeJob(job)
	s.update(ctx, func(data *content.AdminData) {
		for i := range data.Jobs {
			if data.Jobs[i].ID == job.ID {
				data.Jobs[i] = job
				return
			}
		}
		data.Jobs = append(data.Jobs, job)
	})
}

// DeleteService removes the service with id. A missing id is not an error.
func (s *Store) DeleteService(ctx context.Context, id string) {
	s.update(ctx, func(data *content.AdminData) {
		kept := data.Services[:0]
		for _, service := range data.Services {
			if service.ID != id {
				kept = append(kept, service)
			}
		}
		data.Services = kept
	})
}

func (s *Store) DeleteTeamMember(ctx context.Context, id string) {
	s.update(ctx, func(data *content.AdminData) {
		kept := data.Team[:0]
		for _, member := range data.Team {
			if member.ID != id {
				kept = append(kept, member)
			}
		}
		data.Team = kept
	})
}

func (s *Store) DeleteJob(ctx context.Context, id string) {
	s.update(ctx, func(data *content.AdminData) {
		kept := data.Jobs[:0]
		for _, job := range data.Jobs {
			if job.ID != id {
				kept = append(kept, job)
			}
		}
		data.Jobs = kept
	})
}

// ResolveImages returns a copy of team in which every pending image has been
// replaced by its data URL.
func ResolveImages(team []content.TeamMember) []content.TeamMember {
	if !content.HasPendingImages(team) {
		return content.NormalizeTeam(team)
	}
	out := make([]content.TeamMember, 0, len(team))
	for _, member := range team {
		if pending, ok := member.Image.Pending(); ok {
			member.Image = content.RemoteImage(pending.DataURL())
		}
		out = append(out, member)
	}
	return out
}
