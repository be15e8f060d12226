package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"medibilling/portal/internal/content"
)

// PostgresStore talks to the content tables directly. It is the self-hosted
// alternative to SupabaseStore and shares its row mapping.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{db: db, logger: logger.Named("postgres")}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const serviceColumns = `id, title, description, details, detailed_title, detailed_description,
	detailed_content, process_steps, features, benefits, created_at`

func (s *PostgresStore) ListServices(ctx context.Context) ([]content.Service, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY created_at ASC, id ASC`)
	if err != nil {
		s.logger.Warn("list services failed", zap.Error(err))
		return []content.Service{}, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	out := []content.Service{}
	for rows.Next() {
		row, err := scanService(rows)
		if err != nil {
			return []content.Service{}, err
		}
		out = append(out, row.Entity())
	}
	if err := rows.Err(); err != nil {
		return []content.Service{}, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertService(ctx context.Context, service content.Service) (content.Service, error) {
	row := ServiceRowFrom(service)
	steps, features, benefits, err := encodeLists(row.ProcessSteps, row.Features, row.Benefits)
	if err != nil {
		return content.Service{}, err
	}
	saved, err := scanService(s.db.QueryRowContext(ctx, `
		INSERT INTO services (id, title, description, details, detailed_title, detailed_description,
			detailed_content, process_steps, features, benefits)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			details = EXCLUDED.details,
			detailed_title = EXCLUDED.detailed_title,
			detailed_description = EXCLUDED.detailed_description,
			detailed_content = EXCLUDED.detailed_content,
			process_steps = EXCLUDED.process_steps,
			features = EXCLUDED.features,
			benefits = EXCLUDED.benefits
		RETURNING `+serviceColumns,
		row.ID, row.Title, row.Description, nullable(row.Details), nullable(row.DetailedTitle),
		nullable(row.DetailedDescription), nullable(row.DetailedContent), steps, features, benefits,
	))
	if err != nil {
		s.logger.Warn("upsert service failed", zap.String("id", service.ID), zap.Error(err))
		return content.Service{}, fmt.Errorf("upsert service: %w", err)
	}
	return saved.Entity(), nil
}

func (s *PostgresStore) DeleteService(ctx context.Context, id string) error {
	return s.deleteByID(ctx, TableServices, id)
}

func (s *PostgresStore) ListTeamMembers(ctx context.Context) ([]content.TeamMember, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, role, bio, image, created_at FROM teams ORDER BY created_at ASC, id ASC`)
	if err != nil {
		s.logger.Warn("list team failed", zap.Error(err))
		return []content.TeamMember{}, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	out := []content.TeamMember{}
	for rows.Next() {
		row, err := scanTeam(rows)
		if err != nil {
			return []content.TeamMember{}, err
		}
		out = append(out, row.Entity())
	}
	if err := rows.Err(); err != nil {
		return []content.TeamMember{}, fmt.Errorf("iterate team: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertTeamMember(ctx context.Context, member content.TeamMember) (content.TeamMember, error) {
	if member.Image.IsPending() {
		return content.TeamMember{}, content.ErrPendingImage
	}
	row := TeamRowFrom(member)
	saved, err := scanTeam(s.db.QueryRowContext(ctx, `
		INSERT INTO teams (id, name, role, bio, image)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			bio = EXCLUDED.bio,
			image = EXCLUDED.image
		RETURNING id, name, role, bio, image, created_at`,
		row.ID, row.Name, row.Role, nullable(row.Bio), nullable(row.Image),
	))
	if err != nil {
		s.logger.Warn("upsert team member failed", zap.String("id", member.ID), zap.Error(err))
		return content.TeamMember{}, fmt.Errorf("upsert team member: %w", err)
	}
	return saved.Entity(), nil
}

func (s *PostgresStore) DeleteTeamMember(ctx context.Context, id string) error {
	return s.deleteByID(ctx, TableTeams, id)
}

const jobColumns = `id, title, department, type, location, description, requirements,
	to_char(posted_date, 'YYYY-MM-DD'), created_at`

func (s *PostgresStore) ListJobs(ctx context.Context) ([]content.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY posted_date DESC, created_at DESC, id ASC`)
	if err != nil {
		s.logger.Warn("list jobs failed", zap.Error(err))
		return []content.Job{}, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []content.Job{}
	for rows.Next() {
		row, err := scanJob(rows)
		if err != nil {
			return []content.Job{}, err
		}
		out = append(out, row.Entity())
	}
	if err := rows.Err(); err != nil {
		return []content.Job{}, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertJob(ctx context.Context, job content.Job) (content.Job, error) {
	row := JobRowFrom(job)
	requirements, err := json.Marshal(row.Requirements)
	if err != nil {
		return content.Job{}, fmt.Errorf("encode requirements: %w", err)
	}
	saved, err := scanJob(s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (id, title, department, type, location, description, requirements, posted_date)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5, $6, $7, $8::date)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			department = EXCLUDED.department,
			type = EXCLUDED.type,
			location = EXCLUDED.location,
			description = EXCLUDED.description,
			requirements = EXCLUDED.requirements,
			posted_date = EXCLUDED.posted_date
		RETURNING `+jobColumns,
		row.ID, row.Title, row.Department, row.Type, row.Location, row.Description,
		string(requirements), deref(row.PostedDate),
	))
	if err != nil {
		s.logger.Warn("upsert job failed", zap.String("id", job.ID), zap.Error(err))
		return content.Job{}, fmt.Errorf("upsert job: %w", err)
	}
	return saved.Entity(), nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id string) error {
	return s.deleteByID(ctx, TableJobs, id)
}

func (s *PostgresStore) FindProfile(ctx context.Context, email string) (Profile, error) {
	var row ProfileRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM profiles WHERE LOWER(email) = LOWER($1) LIMIT 1`,
		strings.TrimSpace(email),
	).Scan(&row.ID, &row.Email, &row.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("find profile: %w", err)
	}
	return row.Profile(), nil
}

// CreateProfile inserts or replaces the password hash for an admin email.
func (s *PostgresStore) CreateProfile(ctx context.Context, email, passwordHash string) (Profile, error) {
	var row ProfileRow
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (email, password_hash) VALUES (LOWER($1), $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING id, email, password_hash`,
		strings.TrimSpace(email), passwordHash,
	).Scan(&row.ID, &row.Email, &row.PasswordHash)
	if err != nil {
		return Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return row.Profile(), nil
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, id string) error {
	// table is always one of the package constants.
	result, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		s.logger.Warn("delete failed", zap.String("table", table), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(scanner rowScanner) (ServiceRow, error) {
	var (
		row                              ServiceRow
		steps, features, benefits        []byte
		details, dTitle, dDesc, dContent sql.NullString
		createdAt                        time.Time
	)
	if err := scanner.Scan(&row.ID, &row.Title, &row.Description, &details, &dTitle, &dDesc, &dContent,
		&steps, &features, &benefits, &createdAt); err != nil {
		return ServiceRow{}, fmt.Errorf("scan service: %w", err)
	}
	row.Details = fromNull(details)
	row.DetailedTitle = fromNull(dTitle)
	row.DetailedDescription = fromNull(dDesc)
	row.DetailedContent = fromNull(dContent)
	row.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
	var err error
	if row.ProcessSteps, err = decodeList(steps); err != nil {
		return ServiceRow{}, err
	}
	if row.Features, err = decodeList(features); err != nil {
		return ServiceRow{}, err
	}
	if row.Benefits, err = decodeList(benefits); err != nil {
		return ServiceRow{}, err
	}
	return row, nil
}

func scanTeam(scanner rowScanner) (TeamRow, error) {
	var (
		row        TeamRow
		bio, image sql.NullString
		createdAt  time.Time
	)
	if err := scanner.Scan(&row.ID, &row.Name, &row.Role, &bio, &image, &createdAt); err != nil {
		return TeamRow{}, fmt.Errorf("scan team member: %w", err)
	}
	row.Bio = fromNull(bio)
	row.Image = fromNull(image)
	row.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
	return row, nil
}

func scanJob(scanner rowScanner) (JobRow, error) {
	var (
		row          JobRow
		requirements []byte
		posted       sql.NullString
		createdAt    time.Time
	)
	if err := scanner.Scan(&row.ID, &row.Title, &row.Department, &row.Type, &row.Location, &row.Description,
		&requirements, &posted, &createdAt); err != nil {
		return JobRow{}, fmt.Errorf("scan job: %w", err)
	}
	row.PostedDate = fromNull(posted)
	row.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
	var err error
	if row.Requirements, err = decodeList(requirements); err != nil {
		return JobRow{}, err
	}
	return row, nil
}

func encodeLists(lists ...[]string) (string, string, string, error) {
	encoded := make([]string, 3)
	for i, list := range lists {
		if list == nil {
			list = []string{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return "", "", "", fmt.Errorf("encode list: %w", err)
		}
		encoded[i] = string(data)
	}
	return encoded[0], encoded[1], encoded[2], nil
}

func decodeList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func nullable(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}

func fromNull(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
