package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/Simplici0/marketfee/internal/format"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates holds the parsed page templates.
type Templates struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"currency": format.Currency,
	"credit": func(v float64) string {
		return "- " + format.Currency(v)
	},
}

// Parse loads the layout together with each page template.
func Parse() (*Templates, error) {
	pages := []string{"calculator.html", "categories.html"}
	t := &Templates{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		t.pages[page] = tmpl
	}
	return t, nil
}

// Render executes the named page inside the layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("unknown template %q", page)
	}
	return tmpl.ExecuteTemplate(w, "layout.html", data)
}
