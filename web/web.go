// Package web holds the embedded HTML templates and renders pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"workhours/models"
	"workhours/worktime"
)

//go:embed templates/*.html
var TemplatesFS embed.FS

var pages = []string{
	"login", "change-password", "dashboard", "entries", "entry-form",
	"confirm-delete", "employees", "employee-form", "analytics",
}

// FuncMap is shared by every page template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatHours":  worktime.FormatClockHours,
		"decimalHours": worktime.FormatDecimalHours,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(models.DateLayout)
		},
		"datePtr": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format(models.DateLayout)
		},
		"clock": func(c worktime.Clock) string {
			return c.Short()
		},
		"monthName": func(m int) string {
			if m < 1 || m > 12 {
				return ""
			}
			return time.Month(m).String()
		},
		"zeroHours": func(d decimal.Decimal) bool {
			return d.IsZero()
		},
		"dict": dict,
	}
}

// dict builds a map from alternating keys and values so a nested template
// can receive more than one argument.
func dict(pairs ...interface{}) (map[string]interface{}, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// Renderer executes page templates, each paired with the shared base layout.
type Renderer struct {
	templates map[string]*template.Template
	log       *zap.Logger
}

func NewRenderer(log *zap.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("").Funcs(FuncMap()).ParseFS(TemplatesFS,
			"templates/base.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = t
	}
	return &Renderer{templates: templates, log: log}, nil
}

// Render writes page with the given status. The page is rendered into a
// buffer first so a template error never produces half a response.
func (v *Renderer) Render(w http.ResponseWriter, status int, page string, data map[string]interface{}) {
	t, ok := v.templates[page]
	if !ok {
		v.log.Error("unknown template", zap.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		v.log.Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
