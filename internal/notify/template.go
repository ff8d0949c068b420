package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// TemplateData holds all data available to notification templates.
type TemplateData struct {
	Globals map[string]any
	Report  map[string]string
	Checks  map[string]string
}

// BuildTemplateData constructs template data from a finished report. report
// carries the report-level fields (verdict, hint, target, ...) and checks maps
// each step ID to its status.
func BuildTemplateData(globals map[string]any, report, checks map[string]string) TemplateData {
	r := make(map[string]string, len(report)+1)
	for k, v := range report {
		r[k] = v
	}
	r["verdict_emoji"] = verdictEmoji(r["verdict"])

	c := make(map[string]string, len(checks))
	for k, v := range checks {
		c[k] = v
	}

	return TemplateData{
		Globals: globals,
		Report:  r,
		Checks:  c,
	}
}

func verdictEmoji(verdict string) string {
	switch verdict {
	case "not-running":
		return "\U0001f534" // 🔴
	case "running-degraded":
		return "\U0001f7e1" // 🟡
	case "running-healthy":
		return "\U0001f7e2" // 🟢
	default:
		return "❓" // ❓
	}
}

// Render executes a Go text/template string with Sprig functions and the
// custom accessor functions (report, globals, checks).
func Render(tmplStr string, data TemplateData) (string, error) {
	funcMap := sprig.TxtFuncMap()

	// {{report.verdict}}: "report" returns the map, ".verdict" reads a key.
	funcMap["report"] = func() map[string]string { return data.Report }
	funcMap["globals"] = func() map[string]any { return data.Globals }
	funcMap["checks"] = func() map[string]string { return data.Checks }

	t, err := template.New("notify").Funcs(funcMap).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}
