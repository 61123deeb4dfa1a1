// Package handler contains the HTTP handlers of the web application.
//
// Handlers only translate between HTTP and the service layer: they parse
// forms, pull the caller's identity out of the request context, call one
// service method, and then either redirect with a flash message or render a
// page. Errors never reach the browser as an error page; see response.go.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/studyhub/internal/auth"
	"github.com/sakif/studyhub/internal/service"
)

// Page template names, each parsed together with base.html.
const (
	pageIndex    = "index"
	pageRegister = "register"
	pageLogin    = "login"
	pageAsk      = "ask"
	pageQuestion = "question"
	pageTasks    = "tasks"
	pageGrades   = "grades"
)

var pageNames = []string{pageIndex, pageRegister, pageLogin, pageAsk, pageQuestion, pageTasks, pageGrades}

var templateFuncs = template.FuncMap{
	"score": service.FormatScore,
	"deref": func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	},
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04")
	},
}

// viewData is what every page template receives. Page holds the
// page-specific struct.
type viewData struct {
	Title    string
	User     auth.Identity
	LoggedIn bool
	Flashes  []string
	Page     any
}

// Renderer holds one parsed template set per page. Each set is base.html
// plus the page's file, which defines the "content" block base.html pulls in.
// Parsing happens once at startup.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses templates/base.html and every page from fsys.
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys,
			"templates/base.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// render writes a full page. Pending flash messages are consumed here, so
// they show exactly once; messages are shown after them. The page is rendered to a buffer first: a template
// error becomes a clean 500 instead of half a page.
func (v *Renderer) render(w http.ResponseWriter, r *http.Request, status int, name, title string, page any, messages ...string) {
	tmpl, ok := v.pages[name]
	if !ok {
		v.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, loggedIn := auth.IdentityFromContext(r.Context())
	data := viewData{
		Title:    title,
		User:     id,
		LoggedIn: loggedIn,
		Flashes:  append(popFlashes(w, r), messages...),
		Page:     page,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		v.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
