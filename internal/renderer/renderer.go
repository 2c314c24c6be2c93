package renderer

import (
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/damacus/iron-blobs/internal/middleware"
	"github.com/labstack/echo/v4"
)

//go:embed views
var views embed.FS

// TemplateRenderer implements echo.Renderer
type TemplateRenderer struct {
	Templates map[string]*template.Template
}

// New creates a new TemplateRenderer with pre-parsed templates
func New() *TemplateRenderer {
	r := &TemplateRenderer{
		Templates: make(map[string]*template.Template),
	}
	r.parseTemplates()
	return r
}

func (t *TemplateRenderer) parseTemplates() {
	// Pages share the base layout
	parse := func(name, pageFile string) {
		t.Templates[name] = template.Must(template.ParseFS(views,
			"views/layouts/base.html",
			"views/pages/"+pageFile,
		))
	}

	parse("connect", "connect.html")
	parse("browser", "browser.html")

	// Partials
	t.Templates["connect_error"] = template.Must(template.ParseFS(views, "views/partials/connect_error.html"))
}

// selfExecutingTemplates lists templates that execute their own named block instead of "base"
var selfExecutingTemplates = map[string]bool{
	"connect_error": true,
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.Templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}

	// Templates that define their own named block execute that block directly
	if selfExecutingTemplates[name] {
		return tmpl.ExecuteTemplate(w, name, data)
	}
	// All other templates (pages with layout) execute the "base" block
	return tmpl.ExecuteTemplate(w, "base", withCSRFToken(data, c))
}

// withCSRFToken adds the request's CSRF token to page data so forms and htmx can send it back
func withCSRFToken(data interface{}, c echo.Context) interface{} {
	page, ok := data.(map[string]interface{})
	if data == nil {
		page, ok = map[string]interface{}{}, true
	}
	if !ok {
		return data
	}
	if c != nil {
		page["CSRFToken"] = middleware.CSRFToken(c)
	}
	return page
}
