package pipeline

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer executes the pre-loaded report templates against a view-model.
type Renderer struct {
	tpl *template.Template
}

// NewRenderer parses every embedded template once at startup.
func NewRenderer() (*Renderer, error) {
	tpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report templates: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

// Render produces the final HTML for the view-model. It is a pure function
// of its input: the same view-model always yields byte-identical output.
func (r *Renderer) Render(vm *ViewModel) (string, error) {
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, templateFile(vm.templateName), vm); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", vm.templateName, err)
	}
	return buf.String(), nil
}

func templateFile(name string) string {
	switch name {
	case TemplateOrcamento:
		return "orcamento.html"
	case TemplatePreventiva:
		return "preventiva.html"
	default:
		return "default.html"
	}
}
