package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"medibilling/portal/internal/auth"
	"medibilling/portal/internal/authpw"
	"medibilling/portal/internal/catalog"
	"medibilling/portal/internal/config"
	"medibilling/portal/internal/content"
	"medibilling/portal/internal/email"
	"medibilling/portal/internal/media"
	"medibilling/portal/internal/repository"
	"medibilling/portal/internal/richtext"
	"medibilling/portal/internal/session"
)

type Session struct {
	Token     string
	Subject   string
	JTI       string
	ExpiresAt time.Time
}

type ContentStore interface {
	Ping(ctx context.Context) error
	Remote() bool

	TeamMembers(ctx context.Context) []content.TeamMember
	SaveTeamMember(ctx context.Context, member content.TeamMember) (content.TeamMember, error)
	DeleteTeamMember(ctx context.Context, id string) error

	Jobs(ctx context.Context) []content.Job
	Job(ctx context.Context, id string) (content.Job, bool)
	SaveJob(ctx context.Context, job content.Job) (content.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

type ServiceCatalog interface {
	State() catalog.State
	Services() []content.Service
	Service(id string) (content.Service, bool)
	Upsert(service content.Service) (content.Service, <-chan error)
	Remove(id string) <-chan error
	Refresh(ctx context.Context) error
}

type ImageBucket interface {
	Upload(ctx context.Context, img content.PendingImage) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

type Mailer interface {
	IsConfigured() bool
	SendContact(msg email.ContactMessage) error
	SendApplication(app email.JobApplication) error
}

type Options struct {
	Config   config.Config
	Content  ContentStore
	Catalog  ServiceCatalog
	Images   ImageBucket
	Auth     authpw.Authenticator
	Sessions session.Store
	Mailer   Mailer
	Logger   *zap.Logger
}

type Service struct {
	cfg      config.Config
	content  ContentStore
	catalog  ServiceCatalog
	images   ImageBucket
	auth     authpw.Authenticator
	sessions session.Store
	mailer   Mailer
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	return &Service{
		cfg:      opts.Config,
		content:  opts.Content,
		catalog:  opts.Catalog,
		images:   opts.Images,
		auth:     opts.Auth,
		sessions: opts.Sessions,
		mailer:   opts.Mailer,
		logger:   opts.Logger.Named("app"),
		now:      time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.content.Ping(ctx)
}

func (s *Service) RemoteEnabled() bool {
	return s.content.Remote()
}

func (s *Service) ImagesEnabled() bool {
	return s.images != nil
}

func (s *Service) CatalogState() catalog.State {
	return s.catalog.State()
}

// Login checks the credentials and opens an admin session.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	if s.auth == nil {
		return Session{}, unavailable("AUTH_UNAVAILABLE", "Admin sign-in is not configured")
	}
	ok, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, authpw.ErrMissingCredentials) {
			return Session{}, invalid("username and password are required", nil)
		}
		return Session{}, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		s.logger.Info("admin sign-in rejected", zap.String("username", username))
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	}

	now := s.now()
	claims := auth.NewAdminClaims(username, s.cfg.SessionTTL, now)
	token, err := auth.IssueToken([]byte(s.cfg.SessionSecret), claims)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	record := session.Session{
		Subject:   claims.Sub,
		CreatedAt: now,
		ExpiresAt: claims.ExpiresAt(),
	}
	if err := s.sessions.Save(ctx, auth.HashToken(claims.JTI), record); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}

	return Session{
		Token:     token,
		Subject:   claims.Sub,
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

// SessionFromToken accepts a token only while its session has not been revoked.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.SessionSecret), token)
	if err != nil {
		return Session{}, err
	}
	record, err := s.sessions.Lookup(ctx, auth.HashToken(claims.JTI))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	return Session{
		Token:     token,
		Subject:   record.Subject,
		JTI:       claims.JTI,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, sess Session) error {
	return s.sessions.Revoke(ctx, auth.HashToken(sess.JTI))
}

// Services

func (s *Service) Services() []content.Service {
	return s.catalog.Services()
}

func (s *Service) GetService(id string) (content.Service, error) {
	service, ok := s.catalog.Service(id)
	if !ok {
		return content.Service{}, notFound("Service")
	}
	return service, nil
}

// SaveService updates the cached list immediately and waits for the write to
// be persisted. A remote failure that left the local copy updated is returned
// as a repository.ErrPrimaryWrite together with the saved service.
func (s *Service) SaveService(ctx context.Context, in content.Service) (content.Service, error) {
	in = prepareService(in)
	if err := content.ValidateService(in); err != nil {
		return content.Service{}, err
	}
	saved, done := s.catalog.Upsert(in)
	return saved, s.awaitPersist(ctx, done)
}

func (s *Service) DeleteService(ctx context.Context, id string) error {
	return s.awaitPersist(ctx, s.catalog.Remove(id))
}

func (s *Service) RefreshServices(ctx context.Context) ([]content.Service, error) {
	if err := s.catalog.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.catalog.Services(), nil
}

func (s *Service) awaitPersist(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		switch {
		case err == nil:
			return nil
		case errors.Is(err, catalog.ErrClosed):
			return unavailable("SHUTTING_DOWN", "Server is shutting down")
		case errors.Is(err, repository.ErrPrimaryWrite) && s.cfg.ServicesRollbackOnFailure:
			return domainError(http.StatusBadGateway, "REMOTE_WRITE_FAILED", "The remote store rejected the change and it was rolled back", nil)
		default:
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func prepareService(in content.Service) content.Service {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ProcessSteps = content.CleanList(in.ProcessSteps)
	in.Features = content.CleanList(in.Features)
	in.Benefits = content.CleanList(in.Benefits)
	in.Details = sanitizeFragment(in.Details)
	in.DetailedContent = sanitizeFragment(in.DetailedContent)
	return in
}

// sanitizeFragment cleans editor HTML. Plain text and markdown are stored as
// given and converted on render.
func sanitizeFragment(value string) string {
	if value == "" || !richtext.LooksLikeHTML(value) {
		return value
	}
	return richtext.Sanitize(value)
}

// Team

func (s *Service) TeamMembers(ctx context.Context) []content.TeamMember {
	return s.content.TeamMembers(ctx)
}

func (s *Service) SaveTeamMember(ctx context.Context, in content.TeamMember) (content.TeamMember, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := content.ValidateTeamMember(in); err != nil {
		return content.TeamMember{}, err
	}
	return s.content.SaveTeamMember(ctx, in)
}

// DeleteTeamMember removes the member and, best effort, its bucket image.
func (s *Service) DeleteTeamMember(ctx context.Context, id string) error {
	var imageURL string
	for _, member := range s.content.TeamMembers(ctx) {
		if member.ID == id {
			imageURL = member.Image.URL()
			break
		}
	}
	if err := s.content.DeleteTeamMember(ctx, id); err != nil {
		return err
	}
	if s.images != nil && imageURL != "" && !strings.HasPrefix(imageURL, "data:") {
		if err := s.images.Delete(ctx, imageURL); err != nil {
			s.logger.Warn("delete team image failed", zap.String("url", imageURL), zap.Error(err))
		}
	}
	return nil
}

// Jobs

func (s *Service) Jobs(ctx context.Context) []content.Job {
	return s.content.Jobs(ctx)
}

func (s *Service) GetJob(ctx context.Context, id string) (content.Job, error) {
	job, ok := s.content.Job(ctx, id)
	if !ok {
		return content.Job{}, notFound("Job")
	}
	return job, nil
}

func (s *Service) SaveJob(ctx context.Context, in content.Job) (content.Job, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Requirements = content.CleanList(in.Requirements)
	if in.PostedDate != "" {
		if _, err := time.Parse(content.DateLayout, in.PostedDate); err != nil {
			return content.Job{}, invalid("postedDate must be YYYY-MM-DD", nil)
		}
	}
	if err := content.ValidateJob(in); err != nil {
		return content.Job{}, err
	}
	return s.content.SaveJob(ctx, in)
}

func (s *Service) DeleteJob(ctx context.Context, id string) error {
	return s.content.DeleteJob(ctx, id)
}

// Images

func (s *Service) UploadImage(ctx context.Context, img content.PendingImage) (string, error) {
	if s.images == nil {
		return "", unavailable("IMAGES_UNAVAILABLE", "Image storage is not configured")
	}
	return s.images.Upload(ctx, img)
}

func (s *Service) DeleteImage(ctx context.Context, imageURL string) error {
	if s.images == nil {
		return unavailable("IMAGES_UNAVAILABLE", "Image storage is not configured")
	}
	if media.ObjectName(imageURL) == "" {
		return invalid("url does not name an object", nil)
	}
	return s.images.Delete(ctx, imageURL)
}

// Messages

type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type ApplicationInput struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	CoverLetter string            `json:"coverLetter"`
	Resume      *email.Attachment `json:"-"`
}

const maxResumeBytes = 5 << 20

func (s *Service) SubmitContact(in ContactInput) error {
	missing := missingFields(map[string]string{
		"name":    in.Name,
		"email":   in.Email,
		"message": in.Message,
	}, "name", "email", "message")
	if len(missing) > 0 {
		return invalid("Missing required fields", map[string]any{"fields": missing})
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return invalid("email is not a valid address", nil)
	}
	if err := s.sendMail(func(m Mailer) error {
		return m.SendContact(email.ContactMessage(in))
	}); err != nil {
		return err
	}
	s.logger.Info("contact message sent", zap.String("email", in.Email))
	return nil
}

// Apply sends an application for jobID, or a general application when jobID
// is empty.
func (s *Service) Apply(ctx context.Context, jobID string, in ApplicationInput) error {
	missing := missingFields(map[string]string{
		"name":  in.Name,
		"email": in.Email,
	}, "name", "email")
	if len(missing) > 0 {
		return invalid("Missing required fields", map[string]any{"fields": missing})
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return invalid("email is not a valid address", nil)
	}
	if in.Resume != nil && len(in.Resume.Data) > maxResumeBytes {
		return domainError(http.StatusRequestEntityTooLarge, "RESUME_TOO_LARGE", "Resume must be 5 MB or smaller", nil)
	}

	app := email.JobApplication{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		CoverLetter: in.CoverLetter,
		Resume:      in.Resume,
	}
	if jobID != "" {
		job, err := s.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		app.JobID = job.ID
		app.JobTitle = job.Title
	}
	if err := s.sendMail(func(m Mailer) error { return m.SendApplication(app) }); err != nil {
		return err
	}
	s.logger.Info("application sent", zap.String("job_id", jobID), zap.String("email", in.Email))
	return nil
}

func (s *Service) sendMail(send func(Mailer) error) error {
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return unavailable("EMAIL_UNAVAILABLE", "Messages cannot be delivered right now")
	}
	if err := send(s.mailer); err != nil {
		s.logger.Error("send email failed", zap.Error(err))
		return domainError(http.StatusBadGateway, "EMAIL_FAILED", "Message could not be delivered", nil)
	}
	return nil
}

func missingFields(values map[string]string, order ...string) []string {
	var missing []string
	for _, field := range order {
		if strings.TrimSpace(values[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// Rich text

type RichTextInput struct {
	Value     string             `json:"value"`
	Selection richtext.Selection `json:"selection"`
	Operation string             `json:"operation"`
	Argument  string             `json:"argument"`
}

type RichTextResult struct {
	Value     string             `json:"value"`
	Selection richtext.Selection `json:"selection"`
}

// ApplyRichText runs one toolbar operation of the admin editor over value.
func (s *Service) ApplyRichText(in RichTextInput) (RichTextResult, error) {
	editor := richtext.NewEditor(in.Value, nil)
	sel := in.Selection
	var err error
	switch in.Operation {
	case "size":
		sel, err = editor.ApplyTextSize(in.Selection, in.Argument)
	case "align":
		err = editor.ApplyAlignment(in.Selection, richtext.Alignment(in.Argument))
	case "emphasis":
		err = editor.ApplyEmphasis(in.Selection, richtext.Emphasis(in.Argument))
	default:
		return RichTextResult{}, invalid("operation must be size, align or emphasis", nil)
	}
	if err != nil {
		return RichTextResult{}, err
	}
	return RichTextResult{Value: richtext.Sanitize(editor.Value()), Selection: sel}, nil
}
