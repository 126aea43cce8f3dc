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

// Package workflow contains the workflow value object used by the daily
// report together with aggregation of fetched workflow records, detection of
// missing workflows and HTML rendering of the report.
package workflow

import (
	"fmt"
	"time"

	"github.com/argo-batch-tools/argo-notification-service/types"
)

// EmptyTemplateName is used for workflows not created from workflow template
const EmptyTemplateName = "empty"

// timeLayout is the layout Argo server uses for timestamps
const timeLayout = time.RFC3339

// OptionalTime represents timestamp that might not be set. Unset value
// compares after every set value.
type OptionalTime struct {
	value time.Time
	set   bool
}

// Some returns OptionalTime holding the given timestamp
func Some(t time.Time) OptionalTime {
	return OptionalTime{value: t, set: true}
}

// None returns OptionalTime without any timestamp
func None() OptionalTime {
	return OptionalTime{}
}

// Get returns the timestamp and flag whether it is set
func (o OptionalTime) Get() (time.Time, bool) {
	return o.value, o.set
}

// IsSet returns true when the timestamp is set
func (o OptionalTime) IsSet() bool {
	return o.set
}

// Compare returns -1, 0 or +1 depending on whether o is before, equal to or
// after other. Two unset values are equal.
func (o OptionalTime) Compare(other OptionalTime) int {
	switch {
	case !o.set && !other.set:
		return 0
	case !o.set:
		return 1
	case !other.set:
		return -1
	case o.value.Before(other.value):
		return -1
	case o.value.After(other.value):
		return 1
	default:
		return 0
	}
}

// After reports whether o is after t. Unset value is after any t.
func (o OptionalTime) After(t time.Time) bool {
	return o.Compare(Some(t)) > 0
}

// LabelExtractor reads value of one label from workflow labels
type LabelExtractor struct {
	Key     string
	Extract func(labels map[string]string) (string, bool)
}

func labelValue(key string) func(map[string]string) (string, bool) {
	return func(labels map[string]string) (string, bool) {
		value, found := labels[key]
		return value, found
	}
}

// HistoryLabels lists labels pointing to the history of a workflow, in
// priority order: sensor triggered, cron triggered, manually submitted
var HistoryLabels = []LabelExtractor{
	{Key: types.SensorLabel, Extract: labelValue(types.SensorLabel)},
	{Key: types.CronWorkflowLabel, Extract: labelValue(types.CronWorkflowLabel)},
	{Key: types.WorkflowTemplateLabel, Extract: labelValue(types.WorkflowTemplateLabel)},
}

// FirstMatchingLabel evaluates extractors in order and returns the first
// label found in labels
func FirstMatchingLabel(labels map[string]string, extractors []LabelExtractor) (key, value string, found bool) {
	for _, extractor := range extractors {
		if value, found := extractor.Extract(labels); found {
			return extractor.Key, value, true
		}
	}
	return "", "", false
}

// Workflow represents one execution of Argo workflow
type Workflow struct {
	Name         string
	TemplateName string
	Phase        types.Phase
	Progress     string
	StartedAt    time.Time
	FinishedAt   OptionalTime

	// Duration in whole minutes, zero when not finished
	Duration int

	// ReportURL points to archived runs sharing the history label, empty
	// when the workflow carries none of HistoryLabels
	ReportURL string
}

// NewWorkflow constructs Workflow from the record fetched from Argo server
func NewWorkflow(raw types.RawWorkflow, serverURL string) (Workflow, error) {
	startedAt, err := parseTimestamp(raw.Status.StartedAt)
	if err != nil {
		return Workflow{}, &InvalidRecordError{Name: raw.Metadata.Name, Reason: "startedAt: " + err.Error()}
	}
	if !startedAt.IsSet() {
		return Workflow{}, &InvalidRecordError{Name: raw.Metadata.Name, Reason: "startedAt is not set"}
	}

	finishedAt, err := parseTimestamp(raw.Status.FinishedAt)
	if err != nil {
		return Workflow{}, &InvalidRecordError{Name: raw.Metadata.Name, Reason: "finishedAt: " + err.Error()}
	}

	wf := Workflow{
		Name:         raw.Metadata.Name,
		TemplateName: EmptyTemplateName,
		Phase:        raw.Status.Phase,
		Progress:     raw.Status.Progress,
		StartedAt:    startedAt.value,
		FinishedAt:   finishedAt,
	}

	if ref := raw.Spec.WorkflowTemplateRef; ref != nil {
		wf.TemplateName = ref.Name
	}

	wf.Duration = durationMinutes(wf.StartedAt, wf.FinishedAt)

	if key, value, found := FirstMatchingLabel(raw.Metadata.Labels, HistoryLabels); found {
		wf.ReportURL = GenerateReportURL(serverURL, key, value)
	}

	return wf, nil
}

// PlainText returns one line describing the workflow, columns are separated
// by tabs
func (wf Workflow) PlainText(location *time.Location) string {
	return fmt.Sprintf("%-50s\t%s\t%s\t%8d\t%-12s\t%s",
		wf.TemplateName,
		formatTimestamp(Some(wf.StartedAt), location),
		formatTimestamp(wf.FinishedAt, location),
		wf.Duration,
		wf.Phase,
		wf.Progress)
}

func parseTimestamp(value string) (OptionalTime, error) {
	if value == "" {
		return None(), nil
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return None(), err
	}
	return Some(t.UTC()), nil
}

func durationMinutes(startedAt time.Time, finishedAt OptionalTime) int {
	finished, ok := finishedAt.Get()
	if !ok || finished.Before(startedAt) {
		return 0
	}
	return int(finished.Sub(startedAt) / time.Minute)
}
