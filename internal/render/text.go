// Package render turns a finished report into console text or a structured
// document. Nothing here performs I/O.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/charmbracelet/lipgloss"
	"github.com/sznuper/reachable/internal/runner"
)

// Options controls text rendering.
type Options struct {
	Color bool
}

var sectionTitles = map[runner.Section]string{
	runner.SectionProcess:  "Process",
	runner.SectionPorts:    "Port Status",
	runner.SectionLoopback: "Localhost Connectivity",
	runner.SectionLAN:      "Local IP Connectivity",
	runner.SectionDNS:      "DNS Resolution",
	runner.SectionExternal: "External Port Accessibility",
	runner.SectionDomain:   "Domain Accessibility",
	runner.SectionTLS:      "TLS Certificate",
	runner.SectionFirewall: "Firewall",
}

const textTemplate = `{{ header (printf "Server diagnostics: %s" .Report.Target) }}
host {{ .Report.Hostname }} ({{ .Report.Platform }}), started {{ .Report.StartedAt | date "2006-01-02 15:04:05 MST" }}
{{ range .Sections }}
{{ title .Title }}
{{- range .Results }}
  {{ glyph .Status }} {{ .Name }}: {{ .Detail }}
{{- if .Error }}
      error: {{ .Error }}
{{- end }}
{{- range .Notes }}
      {{ . }}
{{- end }}
{{- else }}
  (no checks)
{{- end }}
{{ end }}
{{ title "Summary" }}
{{- range .Summary }}
  {{ printf "%-24s" .Label }} {{ yesno .OK }}
{{- end }}

  Verdict: {{ verdict .Report.Verdict }}
  Hint:    {{ .Report.Hint }}
  ({{ .Report.Results | len }} checks in {{ .Report.DurationMS }}ms)
`

type sectionView struct {
	Title   string
	Results []runner.Result
}

type summaryLine struct {
	Label string
	OK    bool
}

type textView struct {
	Report   *runner.Report
	Sections []sectionView
	Summary  []summaryLine
}

// Text renders report as human-readable console output. Rendering the same
// report twice yields the same text.
func Text(report *runner.Report, opts Options) (string, error) {
	st := newStyles(opts.Color)

	funcs := sprig.TxtFuncMap()
	funcs["header"] = func(s string) string { return st.header.Render(s) + "\n" + strings.Repeat("=", lipgloss.Width(s)) }
	funcs["title"] = func(s string) string { return st.title.Render(s) + "\n" + strings.Repeat("-", lipgloss.Width(s)) }
	funcs["glyph"] = st.glyph
	funcs["yesno"] = st.yesno
	funcs["verdict"] = st.verdict

	t, err := template.New("report").Funcs(funcs).Parse(textTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing report template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, buildView(report)); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}

func buildView(report *runner.Report) textView {
	v := textView{Report: report}
	for _, s := range runner.Sections {
		v.Sections = append(v.Sections, sectionView{Title: sectionTitles[s], Results: report.BySection(s)})
	}

	proc, _ := report.Find(runner.StepProcess)
	v.Summary = append(v.Summary, summaryLine{Label: "Process running", OK: proc.Status == runner.StatusPass})
	for _, res := range report.BySection(runner.SectionPorts) {
		port := strings.TrimPrefix(res.ID, "port:")
		v.Summary = append(v.Summary, summaryLine{Label: "Port " + port + " listening", OK: res.Status == runner.StatusPass})
	}
	return v
}

type styles struct {
	color  bool
	header lipgloss.Style
	title  lipgloss.Style
	pass   lipgloss.Style
	fail   lipgloss.Style
	warn   lipgloss.Style
	skip   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{header: plain, title: plain, pass: plain, fail: plain, warn: plain, skip: plain}
	}
	return styles{
		color:  true,
		header: lipgloss.NewStyle().Bold(true),
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		pass:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		fail:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		skip:   lipgloss.NewStyle().Faint(true),
	}
}

func (s styles) glyph(status runner.Status) string {
	switch status {
	case runner.StatusPass:
		return s.pass.Render("✓")
	case runner.StatusFail:
		return s.fail.Render("✗")
	case runner.StatusWarn:
		return s.warn.Render("!")
	default:
		return s.skip.Render("-")
	}
}

func (s styles) yesno(ok bool) string {
	if ok {
		return s.pass.Render("YES")
	}
	return s.fail.Render("NO")
}

func (s styles) verdict(v runner.Verdict) string {
	label := strings.ToUpper(string(v))
	switch v {
	case runner.VerdictHealthy:
		return s.pass.Render(label)
	case runner.VerdictDegraded, runner.VerdictUnknown:
		return s.warn.Render(label)
	default:
		return s.fail.Render(label)
	}
}
