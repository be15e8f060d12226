// Package repository presents one CRUD surface over the remote content store
// and the local blob store. Reads prefer the remote store and fall back to
// local data on error. Every write lands in the local store as well.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medibilling/portal/internal/content"
	"medibilling/portal/internal/store"
	"medibilling/portal/internal/util"
)

// ErrPrimaryWrite marks a mutation that reached the local store but failed
// remotely.
var ErrPrimaryWrite = errors.New("remote store write failed")

const DefaultTimeout = 8 * time.Second

type PrimaryStore interface {
	ListServices(ctx context.Context) ([]content.Service, error)
	UpsertService(ctx context.Context, service content.Service) (content.Service, error)
	DeleteService(ctx context.Context, id string) error

	ListTeamMembers(ctx context.Context) ([]content.TeamMember, error)
	UpsertTeamMember(ctx context.Context, member content.TeamMember) (content.TeamMember, error)
	DeleteTeamMember(ctx context.Context, id string) error

	ListJobs(ctx context.Context) ([]content.Job, error)
	UpsertJob(ctx context.Context, job content.Job) (content.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

type FallbackStore interface {
	Services(ctx context.Context) []content.Service
	SaveServices(ctx context.Context, services []content.Service)
	UpsertService(ctx context.Context, service content.Service)
	DeleteService(ctx context.Context, id string)

	TeamMembers(ctx context.Context) []content.TeamMember
	SaveTeamMembers(ctx context.Context, team []content.TeamMember)
	UpsertTeamMember(ctx context.Context, member content.TeamMember)
	DeleteTeamMember(ctx context.Context, id string)

	Jobs(ctx context.Context) []content.Job
	SaveJobs(ctx context.Context, jobs []content.Job)
	UpsertJob(ctx context.Context, job content.Job)
	DeleteJob(ctx context.Context, id string)
}

type ImageResolver interface {
	ResolveMember(ctx context.Context, member content.TeamMember) (content.TeamMember, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	// Primary may be nil, in which case the local store serves everything.
	Primary PrimaryStore
	Local   FallbackStore
	Images  ImageResolver
	Timeout time.Duration
	Logger  *zap.Logger
}

type ContentRepository struct {
	primary PrimaryStore
	local   FallbackStore
	images  ImageResolver
	timeout time.Duration
	logger  *zap.Logger
}

func New(opts Options) *ContentRepository {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &ContentRepository{
		primary: opts.Primary,
		local:   opts.Local,
		images:  opts.Images,
		timeout: opts.Timeout,
		logger:  opts.Logger.Named("repository"),
	}
}

// Remote reports whether a remote store is configured.
func (r *ContentRepository) Remote() bool {
	return r.primary != nil
}

// Ping checks the remote store when it supports it.
func (r *ContentRepository) Ping(ctx context.Context) error {
	p, ok := r.primary.(pinger)
	if !ok {
		return nil
	}
	ctx, cancel := r.remoteContext(ctx)
	defer cancel()
	return p.Ping(ctx)
}

func (r *ContentRepository) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *ContentRepository) primaryFailed(op string, err error) error {
	r.logger.Warn("remote write failed, kept local copy", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrPrimaryWrite, op, err)
}

// Services returns the remote list, or the local list if the remote store
// errors. An empty remote result is returned as is.
func (r *ContentRepository) Services(ctx context.Context) []content.Service {
	if r.primary == nil {
		return r.local.Services(ctx)
	}
	rctx, cancel := r.remoteContext(ctx)
	defer cancel()
	services, err := r.primary.ListServices(rctx)
	if err != nil {
		r.logger.Warn("list services from remote failed, using local data", zap.Error(err))
		return r.local.Services(ctx)
	}
	return content.NormalizeServices(services)
}

func (r *ContentRepository) Service(ctx context.Context, id string) (content.Service, bool) {
	for _, s := range r.Services(ctx) {
		if s.ID == id {
			return s, true
		}
	}
	return content.Service{}, false
}

// SaveService inserts or replaces one service. The returned record carries
// the id assigned by whichever store accepted it.
func (r *ContentRepository) SaveService(ctx context.Context, service content.Service) (content.Service, error) {
	service = content.NormalizeService(service)
	var primaryErr error
	if r.primary != nil {
		rctx, cancel := r.remoteContext(ctx)
		saved, err := r.primary.UpsertService(rctx, service)
		cancel()
		if err != nil {
			primaryErr = r.primaryFailed("upsert service", err)
		} else {
			service = saved
		}
	}
	if service.ID == "" {
		service.ID = util.NewID("svc")
	}
	r.local.UpsertService(ctx, service)
	return service, primaryErr
}

// SaveServices makes the stored list equal to services: each entry is
// upserted and remote rows missing from the list are deleted.
func (r *ContentRepository) SaveServices(ctx context.Context, services []content.Service) ([]content.Service, error) {
	services = content.NormalizeServices(services)
	var primaryErr error
	if r.primary != nil {
		saved, err := r.syncServices(ctx, services)
		if err != nil {
			primaryErr = r.primaryFailed("save services", err)
		}
		services = saved
	}
	for i := range services {
		if services[i].ID == "" {
			services[i].ID = util.NewID("svc")
		}
	}
	r.local.SaveServices(ctx, services)
	return services, primaryErr
}

func (r *ContentRepository) syncServices(ctx context.Context, services []content.Service) ([]content.Service, error) {
	rctx, cancel := r.remoteContext(ctx)
	defer cancel()

	existing, err := r.primary.ListServices(rctx)
	if err != nil {
		return services, err
	}
	out := make([]content.Service, 0, len(services))
	keep := make(map[string]bool, len(services))
	var errs []error
	for _, s := range services {
		saved, err := r.primary.UpsertService(rctx, s)
		if err != nil {
			errs = append(errs, err)
			out = append(out, s)
			keep[s.ID] = true
			continue
		}
		out = append(out, saved)
		keep[saved.ID] = true
	}
	for _, s := range existing {
		if keep[s.ID] {
			continue
		}
		if err := r.primary.DeleteService(rctx, s.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

// DeleteService is idempotent: deleting an unknown id succeeds.
func (r *ContentRepository) DeleteService(ctx context.Context, id string) error {
	r.local.DeleteService(ctx, id)
	if r.primary == nil {
		return nil
	}
	rctx, cancel := r.remoteContext(ctx)
	defer cancel()
	if err := r.primary.DeleteService(rctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return r.primaryFailed("delete service", err)
	}
	return nil
}

func (r *ContentRepository) TeamMembers(ctx context.Context) []content.TeamMember {
	if r.primary == nil {
		return r.local.TeamMembers(ctx)
	}
	rctx, cancel := r.remoteContext(ctx)
	defer cancel()
	team, err := r.primary.ListTeamMembers(rctx)
	if err != nil {
		r.logger.Warn("list team from remote failed, using local data", zap.Error(err))
		return r.local.TeamMembers(ctx)
	}
	return content.NormalizeTeam(team)
}

// SaveTeamMember resolves a pending image before the member reaches either
// store.
func (r *ContentRepository) SaveTeamMember(ctx context.Context, member content.TeamMember) (content.TeamMember, error) {
	member, err := r.resolveImage(ctx, member)
	if err != nil {
		return content.TeamMember{}, err
	}
	var primaryErr error
	if r.primary != nil {
		rctx, cancel := r.remoteContext(ctx)
		saved, err := r.primary.UpsertTeamMember(rctx, member)
		cancel()
		if err != nil {
			primaryErr = r.primaryFailed("upsert team member", err)
		} else {
			member = saved
		}
	}
	if member.ID == "" {
		member.ID = util.NewID("team")
	}
	r.local.UpsertTeamMember(ctx, member)
	return member, primaryErr
}

// SaveTeamMembers writes every member remotely and always replaces the local
// list, whatever the remote outcome.
func (r *ContentRepository) SaveTeamMembers(ctx context.Context, team []content.TeamMember) ([]content.TeamMember, error) {
	resolved := make([]content.TeamMember, 0, len(team))
	for _, m := range team {
		m, err := r.resolveImage(ctx, m)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, m)
	}

	var errs []error
	if r.primary != nil {
		rctx, cancel := r.remoteContext(ctx)
		for i, m := range resolved {
			saved, err := r.primary.UpsertTeamMember(rctx, m)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			resolved[i] = saved
		}
		cancel()
	}
	for i := range resolved {
		if resolved[i].ID == "" {
			resolved[i].ID = util.NewID("team")
		}
	}
	r.local.SaveTeamMembers(ctx, resolved)
	if len(errs) > 0 {
		return resolved, r.primaryFailed("save team members", errors.Join(errs...))
	}
	return resolved, nil
}

func (r *ContentRepository) DeleteTeamMember(ctx context.Context, id string) error {
	r.local.DeleteTeamMember(ctx, id)
	if r.primary == nil {
		return nil
	}
	rctx, cancel := r.remoteContext(ctx)
	defer cancel()
	if err := r.primary.DeleteTeamMember(rctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return r.primaryFailed("delete team member", err)
	}
	return nil
}

func (r *ContentRepository) resolveImage(ctx context.Context, member content.TeamMember) (content.TeamMember, error) {
	if !member.Image.IsPending() {
		return member, nil
	}
	if r.images != nil {
		return r.images.ResolveMember(ctx, member)
	}
	pending, _ := member.Image.Pending()
	member.Image = content.RemoteImage(pending.DataURL())
	return member, nil
}

func (r *ContentRepository) Jobs(ctx context.Context) []content.Job {
	if r.primary == nil {
		return r.local.Jobs(ctx)
	}
	rctx, cancel := r.remoteContext(ctx)
	defer cancel()
	jobs, err := r.primary.ListJobs(rctx)
	if err != nil {
		r.logger.Warn("list jobs from remote failed, using local data", zap.Error(err))
		return r.local.Jobs(ctx)
	}
	return content.NormalizeJobs(jobs)
}

func (r *ContentRepository) Job(ctx context.Context, id string) (content.Job, bool) {
	for _, j := range r.Jobs(ctx) {
		if j.ID == id {
			return j, true
		}
	}
	return content.Job{}, false
}

// SaveJob defaults PostedDate to today for new postings. Updates always keep
// the date of the stored record.
func (r *ContentRepository) SaveJob(ctx context.Context, job content.Job) (content.Job, error) {
	job = content.NormalizeJob(job)
	// postedDate is fixed once a job exists.
	if job.ID != "" {
		if existing, ok := r.Job(ctx, job.ID); ok && existing.PostedDate != "" {
			job.PostedDate = existing.PostedDate
		}
	}
	if job.PostedDate == "" {
		job.PostedDate = content.Today()
	}

	var primaryErr error
	if r.primary != nil {
		rctx, cancel := r.remoteContext(ctx)
		saved, err := r.primary.UpsertJob(rctx, job)
		cancel()
		if err != nil {
			primaryErr = r.primaryFailed("upsert job", err)
		} else {
			job = saved
		}
	}
	if job.ID == "" {
		job.ID = util.NewID("job")
	}
	r.local.UpsertJob(ctx, job)
	return job, primaryErr
}

func (r *ContentRepository) DeleteJob(ctx context.Context, id string) error {
	r.local.DeleteJob(ctx, id)
	if r.primary == nil {
		return nil
	}
	rctx, cancel := r.remoteContext(ctx)
	defer cancel()
	if err := r.primary.DeleteJob(rctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return r.primaryFailed("delete job", err)
	}
	return nil
}
