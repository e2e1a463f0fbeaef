package guide

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"video2guide/internal/app/provider"
)

// defaultTemplate renders the extracted structure as a markdown guide.
const defaultTemplate = `# {{.Title}}

## Introduction

{{.Introduction}}

{{if .Prerequisites}}## Prerequisites

{{range .Prerequisites}}- {{.}}
{{end}}
{{end}}{{if .Sections}}## Steps

{{range .Sections}}### {{.Title}}

{{.Content}}

{{end}}{{end}}{{if .Commands}}## Commands Reference

{{range .Commands}}` + "```bash\n{{.}}\n```" + `

{{end}}{{end}}{{if .URLs}}## References

{{range .URLs}}- {{.}}
{{end}}
{{end}}{{if .Troubleshooting}}## Troubleshooting

{{range .Troubleshooting}}**Issue:** {{.Problem}}

**Solution:** {{.Solution}}

{{end}}{{end}}---

*Generated on {{.GeneratedDate}}*
*Estimated reading time: {{.ReadingTimeMin}} minutes*
`

// TemplateGenerator renders guides from extracted structure alone. It is the
// terminal fallback of every generation chain: no network, no model, always
// available.
type TemplateGenerator struct {
	templateDir  string
	templateName string
	opts         ExtractOptions
	now          func() time.Time
}

type templateData struct {
	Structure
	GeneratedDate string
}

// NewTemplateGenerator creates a template generator. templateDir may be
// empty, in which case the built-in template is used.
func NewTemplateGenerator(templateDir, templateName string, opts ExtractOptions) *TemplateGenerator {
	if templateName == "" {
		templateName = "deployment_guide"
	}
	return &TemplateGenerator{
		templateDir:  templateDir,
		templateName: templateName,
		opts:         opts,
		now:          time.Now,
	}
}

func (g *TemplateGenerator) Name() string {
	return "template"
}

// Probe always reports available; template generation has no external
// dependency.
func (g *TemplateGenerator) Probe(ctx context.Context) provider.Health {
	return provider.Health{Available: true, ModelPresent: true}
}

func (g *TemplateGenerator) GenerateGuide(ctx context.Context, transcription string, gctx provider.GuideContext) (string, error) {
	cleaned := CleanTranscript(transcription)
	structure := Extract(cleaned, g.opts)
	if gctx.Title != "" {
		structure.Title = gctx.Title
	}

	tmpl, err := g.loadTemplate()
	if err != nil {
		// A broken custom template must not break the terminal fallback.
		tmpl = template.Must(template.New("guide").Parse(defaultTemplate))
	}

	data := templateData{
		Structure:     structure,
		GeneratedDate: g.now().Format(time.RFC3339),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template rendering failed: %w", err)
	}
	return buf.String(), nil
}

func (g *TemplateGenerator) loadTemplate() (*template.Template, error) {
	if g.templateDir == "" {
		return template.New("guide").Parse(defaultTemplate)
	}
	path := filepath.Join(g.templateDir, g.templateName+".md.tmpl")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return template.New(g.templateName).Parse(string(raw))
}
