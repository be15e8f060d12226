package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medibilling/portal/internal/auth"
	"medibilling/portal/internal/catalog"
	"medibilling/portal/internal/content"
	"medibilling/portal/internal/email"
	"medibilling/portal/internal/media"
	"medibilling/portal/internal/repository"
	"medibilling/portal/internal/richtext"
	"medibilling/portal/internal/store"
)

const maxUploadBytes = 12 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
	pages      *pageRenderer
	limiter    *ipLimiter
	logger     *zap.Logger
}

func NewHTTPServer(service *Service, corsOrigin string) (*HTTPServer, error) {
	pages, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		pages:      pages,
		limiter:    newIPLimiter(service.cfg.ContactPerMinute, service.logger),
		logger:     service.logger.Named("http"),
	}, nil
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.withMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/", s.handleHomePage)
	r.Get("/about", s.handleAboutPage)
	r.Get("/services", s.handleServicesPage)
	r.Get("/services/{id}", s.handleServicePage)
	r.Get("/careers", s.handleCareersPage)
	r.With(s.limiter.Middleware).Post("/careers/apply", s.handleCareersApply)
	r.Get("/contact", s.handleContactPage)
	r.With(s.limiter.Middleware).Post("/contact", s.handleContactSubmit)
	r.Get("/privacy", s.staticPage("privacy"))
	r.Get("/terms", s.staticPage("terms"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)

		r.Get("/services", s.handleListServices)
		r.Get("/services/{id}", s.handleGetService)
		r.Get("/team", s.handleListTeam)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Post("/contact", s.handleContact)
			r.Post("/applications", s.handleApply)
			r.Post("/jobs/{id}/apply", s.handleApply)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(s.limiter.Middleware).Post("/login", s.handleLogin)
			r.Group(func(r chi.Router) {
				r.Use(s.requireSession)
				s.adminRoutes(r)
			})
		})
	})

	return r
}

func (s *HTTPServer) adminRoutes(r chi.Router) {
	r.Get("/session", s.handleSession)
	r.Post("/logout", s.handleLogout)

	r.Post("/services", s.handleSaveService)
	r.Put("/services/{id}", s.handleSaveService)
	r.Delete("/services/{id}", s.handleDeleteService)
	r.Post("/services/refresh", s.handleRefreshServices)

	r.Post("/team", s.handleSaveTeamMember)
	r.Put("/team/{id}", s.handleSaveTeamMember)
	r.Delete("/team/{id}", s.handleDeleteTeamMember)

	r.Post("/jobs", s.handleSaveJob)
	r.Put("/jobs/{id}", s.handleSaveJob)
	r.Delete("/jobs/{id}", s.handleDeleteJob)

	r.Post("/images", s.handleUploadImage)
	r.Delete("/images", s.handleDeleteImage)

	r.Post("/richtext", s.handleRichText)
}

// Health

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"catalog": map[string]any{"status": s.service.CatalogState().String()},
	}

	if !s.service.RemoteEnabled() {
		checks["remote"] = map[string]any{"status": "disabled"}
	} else if err := s.service.Ping(ctx); err != nil {
		// Reads keep working from the local store, so this is degraded
		// rather than unavailable.
		status = "degraded"
		checks["remote"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["remote"] = map[string]any{"status": "ok"}
	}
	if s.service.CatalogState() != catalog.Ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status != "not_ready",
		"status": status,
		"checks": checks,
	})
}

// Public content

func (s *HTTPServer) handleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"services": s.service.Services()})
}

func (s *HTTPServer) handleGetService(w http.ResponseWriter, r *http.Request) {
	service, err := s.service.GetService(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"service": service})
}

func (s *HTTPServer) handleListTeam(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"team": s.service.TeamMembers(r.Context())})
}

func (s *HTTPServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.service.Jobs(r.Context())})
}

func (s *HTTPServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	var body ContactInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.SubmitContact(body); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// handleApply accepts JSON or a multipart form carrying a "resume" file.
func (s *HTTPServer) handleApply(w http.ResponseWriter, r *http.Request) {
	in, err := readApplication(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.service.Apply(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func readApplication(r *http.Request) (ApplicationInput, error) {
	if !isMultipart(r) {
		var in ApplicationInput
		if err := decodeBody(r, &in); err != nil {
			return ApplicationInput{}, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return in, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return ApplicationInput{}, domainError(http.StatusBadRequest, "INVALID_BODY", "invalid multipart form", nil)
	}
	in := ApplicationInput{
		Name:        r.FormValue("name"),
		Email:       r.FormValue("email"),
		Phone:       r.FormValue("phone"),
		CoverLetter: r.FormValue("coverLetter"),
	}
	data, header, err := formFile(r, "resume")
	if err != nil {
		return ApplicationInput{}, err
	}
	if header != nil {
		in.Resume = &email.Attachment{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}
	return in, nil
}

// Auth

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	session, err := s.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": session.Token,
		"username":    session.Subject,
		"expiresAt":   session.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Logout(r.Context(), sessionFrom(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"username":      session.Subject,
		"expiresAt":     session.ExpiresAt.Unix(),
		"remoteEnabled": s.service.RemoteEnabled(),
		"imagesEnabled": s.service.ImagesEnabled(),
	})
}

// Admin: services

func (s *HTTPServer) handleSaveService(w http.ResponseWriter, r *http.Request) {
	var body content.Service
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		if _, err := s.service.GetService(id); err != nil {
			s.fail(w, r, err)
			return
		}
		body.ID = id
		status = http.StatusOK
	}
	saved, err := s.service.SaveService(r.Context(), body)
	s.writeSaved(w, r, status, "service", saved, err)
}

func (s *HTTPServer) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	err := s.service.DeleteService(r.Context(), chi.URLParam(r, "id"))
	s.writeDeleted(w, r, err)
}

func (s *HTTPServer) handleRefreshServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.service.RefreshServices(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// Admin: team

// handleSaveTeamMember accepts JSON with an image URL, or a multipart form
// whose "image" file is stored through the image resolver.
func (s *HTTPServer) handleSaveTeamMember(w http.ResponseWriter, r *http.Request) {
	member, err := readTeamMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		member.ID = id
		status = http.StatusOK
	}
	saved, err := s.service.SaveTeamMember(r.Context(), member)
	s.writeSaved(w, r, status, "member", saved, err)
}

func readTeamMember(r *http.Request) (content.TeamMember, error) {
	if !isMultipart(r) {
		var member content.TeamMember
		if err := decodeBody(r, &member); err != nil {
			return content.TeamMember{}, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return member, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return content.TeamMember{}, domainError(http.StatusBadRequest, "INVALID_BODY", "invalid multipart form", nil)
	}
	member := content.TeamMember{
		Name:  r.FormValue("name"),
		Role:  r.FormValue("role"),
		Bio:   r.FormValue("bio"),
		Image: content.RemoteImage(r.FormValue("imageUrl")),
	}
	data, header, err := formFile(r, "image")
	if err != nil {
		return content.TeamMember{}, err
	}
	if header != nil {
		member.Image = content.NewPendingImage(content.PendingImage{
			Data:     data,
			MIMEType: partType(header),
			Filename: header.Filename,
		})
	}
	return member, nil
}

func (s *HTTPServer) handleDeleteTeamMember(w http.ResponseWriter, r *http.Request) {
	err := s.service.DeleteTeamMember(r.Context(), chi.URLParam(r, "id"))
	s.writeDeleted(w, r, err)
}

// Admin: jobs

func (s *HTTPServer) handleSaveJob(w http.ResponseWriter, r *http.Request) {
	var body content.Job
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		body.ID = id
		status = http.StatusOK
	}
	saved, err := s.service.SaveJob(r.Context(), body)
	s.writeSaved(w, r, status, "job", saved, err)
}

func (s *HTTPServer) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	err := s.service.DeleteJob(r.Context(), chi.URLParam(r, "id"))
	s.writeDeleted(w, r, err)
}

// Admin: images

func (s *HTTPServer) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected a multipart form with an image file", nil)
		return
	}
	data, header, err := formFile(r, "image")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if header == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "image file is required", nil)
		return
	}
	url, err := s.service.UploadImage(r.Context(), content.PendingImage{
		Data:     data,
		MIMEType: partType(header),
		Filename: header.Filename,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"url": url})
}

func (s *HTTPServer) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "url is required", nil)
		return
	}
	if err := s.service.DeleteImage(r.Context(), url); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleRichText(w http.ResponseWriter, r *http.Request) {
	var body RichTextInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	result, err := s.service.ApplyRichText(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Pages

func (s *HTTPServer) handleHomePage(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, http.StatusOK, "home", pageData{Services: s.service.Services()})
}

func (s *HTTPServer) handleAboutPage(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, http.StatusOK, "about", pageData{Team: s.service.TeamMembers(r.Context())})
}

func (s *HTTPServer) handleServicesPage(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, http.StatusOK, "services", pageData{Services: s.service.Services()})
}

func (s *HTTPServer) handleServicePage(w http.ResponseWriter, r *http.Request) {
	service, err := s.service.GetService(chi.URLParam(r, "id"))
	if err != nil {
		s.pages.render(w, http.StatusNotFound, "notfound", pageData{})
		return
	}
	s.pages.render(w, http.StatusOK, "service", pageData{Service: service})
}

func (s *HTTPServer) handleCareersPage(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, http.StatusOK, "careers", pageData{Jobs: s.service.Jobs(r.Context())})
}

func (s *HTTPServer) handleCareersApply(w http.ResponseWriter, r *http.Request) {
	data := pageData{Jobs: s.service.Jobs(r.Context())}
	in, err := readApplication(r)
	if err == nil {
		err = s.service.Apply(r.Context(), r.FormValue("jobId"), in)
	}
	if err != nil {
		status, _, message, _ := mapError(err)
		data.Error = message
		s.pages.render(w, status, "careers", data)
		return
	}
	data.Flash = "Thank you for applying. We will be in touch."
	s.pages.render(w, http.StatusOK, "careers", data)
}

func (s *HTTPServer) handleContactPage(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, http.StatusOK, "contact", pageData{})
}

func (s *HTTPServer) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.pages.render(w, http.StatusBadRequest, "contact", pageData{Error: "The form could not be read."})
		return
	}
	in := ContactInput{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Phone:   r.PostFormValue("phone"),
		Company: r.PostFormValue("company"),
		Subject: r.PostFormValue("subject"),
		Message: r.PostFormValue("message"),
	}
	if err := s.service.SubmitContact(in); err != nil {
		status, _, message, _ := mapError(err)
		s.pages.render(w, status, "contact", pageData{Form: in, Error: message})
		return
	}
	s.pages.render(w, http.StatusOK, "contact", pageData{Flash: "Thank you! We will get back to you shortly."})
}

func (s *HTTPServer) staticPage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.pages.render(w, http.StatusOK, name, pageData{})
	}
}

func (s *HTTPServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	s.pages.render(w, http.StatusNotFound, "notfound", pageData{})
}

// Middleware and helpers

type sessionKey struct{}

func sessionFrom(ctx context.Context) Session {
	session, _ := ctx.Value(sessionKey{}).(Session)
	return session
}

func (s *HTTPServer) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			s.logger.Error("session lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
		} else {
			next.ServeHTTP(writer, r)
		}

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

// writeSaved reports a saved entity. A remote write failure still leaves the
// local copy updated, so it is surfaced as a warning next to the entity.
func (s *HTTPServer) writeSaved(w http.ResponseWriter, r *http.Request, status int, key string, value any, err error) {
	if err != nil && !errors.Is(err, repository.ErrPrimaryWrite) {
		s.fail(w, r, err)
		return
	}
	payload := map[string]any{key: value}
	if err != nil {
		payload["warning"] = "Saved locally, but the remote store rejected the change: " + err.Error()
	}
	writeJSON(w, status, payload)
}

func (s *HTTPServer) writeDeleted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil && !errors.Is(err, repository.ErrPrimaryWrite) {
		s.fail(w, r, err)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"warning": "Removed locally, but the remote store rejected the change: " + err.Error(),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formFile reads an optional uploaded file. A missing field yields a nil header.
func formFile(r *http.Request, field string) ([]byte, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, domainError(http.StatusBadRequest, "INVALID_BODY", "invalid "+field+" upload", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s upload: %w", field, err)
	}
	return data, header, nil
}

// partType returns the declared type of an uploaded part. The generic binary
// type is dropped so the content gets sniffed instead.
func partType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *content.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Error(), map[string]any{"fields": validationErr.Fields}
	}
	if errors.Is(err, media.ErrInvalidImage) {
		return http.StatusBadRequest, "INVALID_IMAGE", err.Error(), map[string]any{
			"maxBytes":     media.MaxImageBytes,
			"allowedTypes": media.AllowedTypes(),
		}
	}
	if errors.Is(err, richtext.ErrUnknownSize) || errors.Is(err, richtext.ErrUnknownAlignment) || errors.Is(err, richtext.ErrUnknownEmphasis) {
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, repository.ErrPrimaryWrite) {
		return http.StatusBadGateway, "REMOTE_WRITE_FAILED", "The remote store rejected the change", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "TIMEOUT", "The request timed out", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
