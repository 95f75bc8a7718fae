package drafting

import (
	"context"
	"strings"
	"text/template"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

var openings = map[model.LetterType]string{
	model.LetterTypeDemand:    "I am writing to formally demand",
	model.LetterTypeNotice:    "Please take notice",
	model.LetterTypeComplaint: "I am writing to lodge a formal complaint",
	model.LetterTypeGeneral:   "I am writing",
}

var letterTemplate = template.Must(template.New("letter").Funcs(template.FuncMap{
	"opening": func(t model.LetterType) string {
		if o, ok := openings[t]; ok {
			return o
		}
		return openings[model.LetterTypeGeneral]
	},
	"keys": sortedKeys,
}).Parse(`{{.SenderName}}

{{.RecipientName}}{{if .RecipientAddress}}
{{.RecipientAddress}}{{end}}

Re: {{.Subject}}

Dear {{.RecipientName}},

{{opening .LetterType}} regarding {{.Subject}}.

{{.Details}}
{{- if .DesiredOutcome}}

I request the following: {{.DesiredOutcome}}
{{- end}}
{{- if .Extra}}

For reference:
{{- range $k := keys .Extra}}
{{$k}}: {{index $.Extra $k}}
{{- end}}
{{- end}}

Sincerely,
{{.SenderName}}
`))

// TemplateGenerator renders drafts locally without an external service.
type TemplateGenerator struct{}

// NewTemplateGenerator constructs TemplateGenerator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// GenerateDraft renders the intake deterministically.
func (TemplateGenerator) GenerateDraft(ctx context.Context, intake model.Intake) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	if err := letterTemplate.Execute(&b, intake); err != nil {
		return "", err
	}
	return b.String(), nil
}
