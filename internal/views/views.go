// Package views renders the server-side HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names
const (
	PageHome     = "home"
	PageLogin    = "login"
	PageNotFound = "404"
)

var pageTitles = map[string]string{
	PageHome:     "Dashboard",
	PageLogin:    "Log In",
	PageNotFound: "Page Not Found",
}

// PageData is what every page template receives.
type PageData struct {
	Title     string
	CSRFToken string
	Username  string
	Flashes   []string
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"displayName": DisplayName,
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}

	sets := map[string][]string{
		PageHome:     {"templates/partials.html", "templates/layout.html", "templates/home.html"},
		PageLogin:    {"templates/partials.html", "templates/login.html"},
		PageNotFound: {"templates/partials.html", "templates/404.html"},
	}
	for page, files := range sets {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s templates: %w", page, err)
		}
		r.pages[page] = tmpl
	}

	return r, nil
}

// Render executes page into a buffer first so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	if data.Title == "" {
		data.Title = pageTitles[page]
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// DisplayName is the greeting name: the username, or "User" when blank.
func DisplayName(username string) string {
	if strings.TrimSpace(username) == "" {
		return "User"
	}
	return username
}
