/*
Copyright © 2024 Red Hat, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package workflow

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/argo-batch-tools/argo-notification-service/types"
)

// Row colors
const (
	SucceededColor = "#98FB98"
	FailedColor    = "#FA8072"
	RunningColor   = "#40E0D0"
	MissingColor   = FailedColor
)

// Timestamp layouts used in the report
const (
	rowTimeLayout    = "01-02 15:04"
	headerTimeLayout = "2006-01-02 15:04"
	notFinished      = "-"
)

// PhaseColor returns background color of report row for the given phase.
// Phases without dedicated color return empty string (no highlight).
func PhaseColor(phase types.Phase) string {
	switch phase {
	case types.PhaseSucceeded:
		return SucceededColor
	case types.PhaseFailed:
		return FailedColor
	case types.PhaseRunning:
		return RunningColor
	default:
		return ""
	}
}

const workflowTableTemplate = `<table><tr>` +
	`<th>Workflow</th><th>Started</th><th>Finished</th><th>Duration (min)</th><th>Phase</th><th>Progress</th><th>History</th>` +
	`</tr>
{{- range .}}
<tr{{with .Style}} style="{{.}}"{{end}}>` +
	`<td>{{.DisplayName}}</td>` +
	`<td>{{.Started}}</td>` +
	`<td>{{.Finished}}</td>` +
	`<td>{{.Duration}}</td>` +
	`<td><a href="{{.WorkflowURL}}">{{.Phase}}</a></td>` +
	`<td>{{.Progress}}</td>` +
	`<td>{{if .HistoryURL}}<a href="{{.HistoryURL}}">history</a>{{else}}-{{end}}</td>` +
	`</tr>
{{- end}}
</table>`

const missingTableTemplate = `<p><table><caption>The following templates were not found</caption>` +
	`<tr><th>Workflow</th><th>Automatic History</th><th>Manual History</th></tr>
{{- range .}}
<tr style="{{.Style}}">` +
	`<td>{{.DisplayName}}</td>` +
	`<td><a href="{{.AutomaticURL}}">automatic</a></td>` +
	`<td><a href="{{.ManualURL}}">manual</a></td>` +
	`</tr>
{{- end}}
</table></p>`

const headerTemplate = `<p>Reporting current status of Argo Workflows run<br />` +
	`From: <b>{{.From}}</b><br />` +
	`Till: <b>{{.Till}}</b><br /></p>`

var (
	workflowTable = template.Must(template.New("workflows").Parse(workflowTableTemplate))
	missingTable  = template.Must(template.New("missing").Parse(missingTableTemplate))
	reportHeader  = template.Must(template.New("header").Parse(headerTemplate))
)

type workflowRow struct {
	Style       template.CSS
	DisplayName string
	Started     string
	Finished    string
	Duration    int
	WorkflowURL string
	Phase       types.Phase
	Progress    string
	HistoryURL  string
}

type missingRow struct {
	Style        template.CSS
	DisplayName  string
	AutomaticURL string
	ManualURL    string
}

// Window represents time span covered by one report
type Window struct {
	From time.Time
	Till time.Time
}

// Renderer renders report about workflows running in one namespace
type Renderer struct {
	ServerURL      string
	Namespace      string
	Location       *time.Location
	TemplateSuffix string
}

// DisplayName strips template suffix from template name
func (r Renderer) DisplayName(templateName string) string {
	if r.TemplateSuffix == "" {
		return templateName
	}
	name, _, _ := strings.Cut(templateName, r.TemplateSuffix)
	return name
}

// RenderWorkflowTable returns HTML table with one row per workflow
func (r Renderer) RenderWorkflowTable(workflows []Workflow) (string, error) {
	rows := make([]workflowRow, 0, len(workflows))
	for _, wf := range workflows {
		row := workflowRow{
			DisplayName: r.DisplayName(wf.TemplateName),
			Started:     formatTimestamp(Some(wf.StartedAt), r.Location),
			Finished:    formatTimestamp(wf.FinishedAt, r.Location),
			Duration:    wf.Duration,
			WorkflowURL: WorkflowURL(r.ServerURL, r.Namespace, wf.Name),
			Phase:       wf.Phase,
			Progress:    wf.Progress,
			HistoryURL:  wf.ReportURL,
		}
		if color := PhaseColor(wf.Phase); color != "" {
			row.Style = backgroundStyle(color)
		}
		rows = append(rows, row)
	}
	return execute(workflowTable, rows)
}

// DefaultMandatoryTemplates returns templates expected to run in the given
// environment when no list is configured
func DefaultMandatoryTemplates(environment string) []types.MandatoryTemplate {
	return []types.MandatoryTemplate{
		{
			Sensor:   environment + "-event-sensor",
			Template: environment + "-complete-workflowtemplate",
		},
	}
}

// FindMissingTemplates returns mandatory templates none of the workflows
// was created from
func FindMissingTemplates(workflows []Workflow, mandatory []types.MandatoryTemplate) []types.MandatoryTemplate {
	observed := make(map[string]struct{}, len(workflows))
	for _, wf := range workflows {
		observed[wf.TemplateName] = struct{}{}
	}

	missing := []types.MandatoryTemplate{}
	for _, tmpl := range mandatory {
		if _, found := observed[tmpl.Template]; !found {
			missing = append(missing, tmpl)
		}
	}
	return missing
}

// RenderMissingWorkflows returns HTML table with one highlighted row for
// each mandatory template that has not been run
func (r Renderer) RenderMissingWorkflows(workflows []Workflow, mandatory []types.MandatoryTemplate) (string, error) {
	missing := FindMissingTemplates(workflows, mandatory)

	rows := make([]missingRow, 0, len(missing))
	for _, tmpl := range missing {
		rows = append(rows, missingRow{
			Style:        backgroundStyle(MissingColor),
			DisplayName:  r.DisplayName(tmpl.Template),
			AutomaticURL: GenerateReportURL(r.ServerURL, types.SensorLabel, tmpl.Sensor),
			ManualURL:    GenerateReportURL(r.ServerURL, types.WorkflowTemplateLabel, tmpl.Template),
		})
	}
	return execute(missingTable, rows)
}

// RenderReport returns complete HTML report: header with report window,
// table of workflows and table of missing workflows
func (r Renderer) RenderReport(window Window, workflows []Workflow, mandatory []types.MandatoryTemplate) (string, error) {
	header, err := execute(reportHeader, struct{ From, Till string }{
		From: window.From.In(r.location()).Format(headerTimeLayout),
		Till: window.Till.In(r.location()).Format(headerTimeLayout),
	})
	if err != nil {
		return "", err
	}

	table, err := r.RenderWorkflowTable(workflows)
	if err != nil {
		return "", err
	}

	missing, err := r.RenderMissingWorkflows(workflows, mandatory)
	if err != nil {
		return "", err
	}

	return header + table + missing, nil
}

// RenderPlainText returns plain text variant of the workflow table
func (r Renderer) RenderPlainText(workflows []Workflow) string {
	var builder strings.Builder
	for _, wf := range workflows {
		builder.WriteString(wf.PlainText(r.Location))
		builder.WriteString("\n")
	}
	return builder.String()
}

// Title returns title of report generated at the given time
func (r Renderer) Title(now time.Time, environment string) string {
	return fmt.Sprintf("%s - Daily Workflow Report for environment: %s",
		now.In(r.location()).Format(headerTimeLayout), strings.ToUpper(environment))
}

func (r Renderer) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func backgroundStyle(color string) template.CSS {
	return template.CSS("background-color: " + color)
}

func formatTimestamp(t OptionalTime, location *time.Location) string {
	value, ok := t.Get()
	if !ok {
		return notFinished
	}
	if location == nil {
		location = time.UTC
	}
	return value.In(location).Format(rowTimeLayout)
}

func execute(tmpl *template.Template, data interface{}) (string, error) {
	buffer := new(bytes.Buffer)
	if err := tmpl.Execute(buffer, data); err != nil {
		return "", err
	}
	return buffer.String(), nil
}
