package app

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"medibilling/portal/internal/content"
	"medibilling/portal/internal/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageRenderer holds one template set per page, each layered over base.html.
type pageRenderer struct {
	pages map[string]*template.Template
}

type pageData struct {
	Year     int
	Services []content.Service
	Service  content.Service
	Team     []content.TeamMember
	Jobs     []content.Job
	Form     ContactInput
	Flash    string
	Error    string
}

func newPageRenderer() (*pageRenderer, error) {
	base, err := template.New("base.html").Funcs(pageFuncs()).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse base template: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "base" {
			continue
		}
		tmpl, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := tmpl.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", file, err)
		}
		pages[name] = tmpl
	}
	return &pageRenderer{pages: pages}, nil
}

func (p *pageRenderer) render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := p.pages[page]
	if !ok {
		http.Error(w, "unknown page "+page, http.StatusInternalServerError)
		return
	}
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		http.Error(w, fmt.Sprintf("template render error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func pageFuncs() template.FuncMap {
	return template.FuncMap{
		"richtext": richtext.Render,
		"inc":      func(i int) int { return i + 1 },
		"imageSrc": imageSrc,
	}
}

// imageSrc admits bucket URLs and inline image data, which html/template
// would otherwise rewrite as unsafe.
func imageSrc(img content.Image) template.URL {
	url := img.URL()
	switch {
	case strings.HasPrefix(url, "data:image/"),
		strings.HasPrefix(url, "https://"),
		strings.HasPrefix(url, "http://"),
		strings.HasPrefix(url, "/"):
		return template.URL(url)
	}
	return ""
}
