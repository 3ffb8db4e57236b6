package untangle

import (
	_ "embed"
	"strings"
	"text/template"
)

//go:embed templates/decomposer_prompt.md
var decomposerPromptTemplate string

//go:embed templates/repair_prompt.md
var repairPromptTemplate string

var (
	decomposerTmpl *template.Template
	repairTmpl     *template.Template
)

func init() {
	decomposerTmpl = template.Must(template.New("decomposer").Parse(decomposerPromptTemplate))
	repairTmpl = template.Must(template.New("repair").Parse(repairPromptTemplate))
}

type decomposerTemplateData struct {
	MaxMinutes     int
	TimeContext    string
	ProfileContext string
}

type repairTemplateData struct {
	Violation string
}

func renderTemplate(tmpl *template.Template, data any) string {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		// Templates are embedded and parsed at init; execution over plain
		// struct data cannot fail at runtime.
		panic(err)
	}
	return sb.String()
}
