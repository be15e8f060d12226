// Package email delivers contact-form messages and job applications to the
// office inbox over SMTP.
package email

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"medibilling/portal/internal/util"
)

var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host      string
	Port      string
	Username  string
	Password  string
	From      string
	FromName  string
	Recipient string
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Subject string
	Message string
}

// JobApplication is an application for a posted job, or a general resume
// submission when JobID is empty.
type JobApplication struct {
	JobID       string
	JobTitle    string
	Name        string
	Email       string
	Phone       string
	CoverLetter string
	Resume      *Attachment
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config   Config
	server   string
	auth     smtp.Auth
	sendMail sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config:   config,
		server:   config.Host + ":" + config.Port,
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != "" && s.recipient() != ""
}

func (s *Service) recipient() string {
	if s.config.Recipient != "" {
		return s.config.Recipient
	}
	return s.config.From
}

func (s *Service) SendContact(msg ContactMessage) error {
	subject := "Website inquiry"
	if strings.TrimSpace(msg.Subject) != "" {
		subject += ": " + oneLine(msg.Subject)
	}
	body, err := renderTemplate(contactTemplate, msg)
	if err != nil {
		return fmt.Errorf("render contact template: %w", err)
	}
	return s.send(subject, msg.Email, body, nil)
}

func (s *Service) SendApplication(app JobApplication) error {
	subject := "General application from " + oneLine(app.Name)
	if app.JobTitle != "" {
		subject = "Application for " + oneLine(app.JobTitle) + " from " + oneLine(app.Name)
	}
	body, err := renderTemplate(applicationTemplate, app)
	if err != nil {
		return fmt.Errorf("render application template: %w", err)
	}
	return s.send(subject, app.Email, body, app.Resume)
}

func (s *Service) send(subject, replyTo, htmlBody string, attachment *Attachment) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	to := []string{s.recipient()}
	msg := s.buildMessage(to, subject, replyTo, htmlBody, attachment)
	if err := s.sendMail(s.server, s.auth, s.config.From, to, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *Service) buildMessage(to []string, subject, replyTo, htmlBody string, attachment *Attachment) []byte {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.config.FromName), s.config.From)
	}
	boundary := "medibilling-" + util.NewID("")

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	if replyTo = oneLine(replyTo); replyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)

	if attachment != nil && len(attachment.Data) > 0 {
		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		fmt.Fprintf(&msg, "Content-Type: %s\r\n", contentType)
		fmt.Fprintf(&msg, "Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=%q\r\n", oneLine(attachment.Filename))
		fmt.Fprintf(&msg, "\r\n")
		encoded := base64.StdEncoding.EncodeToString(attachment.Data)
		for len(encoded) > 76 {
			fmt.Fprintf(&msg, "%s\r\n", encoded[:76])
			encoded = encoded[76:]
		}
		fmt.Fprintf(&msg, "%s\r\n", encoded)
	}
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

// oneLine strips line breaks so user input cannot inject headers.
func oneLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}

func renderTemplate(tmpl string, data any) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const contactTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Website inquiry</title></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333;">
    <h2>New inquiry from the website</h2>
    <table cellpadding="4">
        <tr><td><strong>Name</strong></td><td>{{.Name}}</td></tr>
        <tr><td><strong>Email</strong></td><td>{{.Email}}</td></tr>
        {{if .Phone}}<tr><td><strong>Phone</strong></td><td>{{.Phone}}</td></tr>{{end}}
        {{if .Company}}<tr><td><strong>Company</strong></td><td>{{.Company}}</td></tr>{{end}}
        {{if .Subject}}<tr><td><strong>Subject</strong></td><td>{{.Subject}}</td></tr>{{end}}
    </table>
    <p style="white-space: pre-wrap;">{{.Message}}</p>
</body>
</html>`

const applicationTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Job application</title></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333;">
    {{if .JobTitle}}<h2>Application for {{.JobTitle}}</h2>
    <p>Job ID: {{.JobID}}</p>{{else}}<h2>General application</h2>{{end}}
    <table cellpadding="4">
        <tr><td><strong>Name</strong></td><td>{{.Name}}</td></tr>
        <tr><td><strong>Email</strong></td><td>{{.Email}}</td></tr>
        {{if .Phone}}<tr><td><strong>Phone</strong></td><td>{{.Phone}}</td></tr>{{end}}
    </table>
    {{if .CoverLetter}}<h3>Cover letter</h3>
    <p style="white-space: pre-wrap;">{{.CoverLetter}}</p>{{end}}
    {{if .Resume}}<p>Resume attached: {{.Resume.Filename}}</p>{{end}}
</body>
</html>`
