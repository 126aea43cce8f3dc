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
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/argo-batch-tools/argo-notification-service/types"
)

// ReportWindowStart returns the moment the report window starts: cutoffHour
// o'clock lookbackDays days before now, in the given location
func ReportWindowStart(now time.Time, location *time.Location, lookbackDays, cutoffHour int) time.Time {
	day := now.In(location).AddDate(0, 0, -lookbackDays)
	return time.Date(day.Year(), day.Month(), day.Day(), cutoffHour, 0, 0, 0, location)
}

// BuildWorkflows turns fetched records into workflows. Records that can not
// be interpreted (typically pending workflows without start time) are
// skipped.
func BuildWorkflows(records []types.RawWorkflow, serverURL string) []Workflow {
	workflows := make([]Workflow, 0, len(records))
	for _, record := range records {
		wf, err := NewWorkflow(record, serverURL)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping workflow record")
			continue
		}
		workflows = append(workflows, wf)
	}
	log.Debug().Int("records", len(records)).Int("workflows", len(workflows)).Msg("Workflows built")
	return workflows
}

// FilterAndSort returns workflows started at or after cutoff, ordered by
// start time. Workflows started at the same time keep their input order.
func FilterAndSort(workflows []Workflow, cutoff time.Time) []Workflow {
	selected := make([]Workflow, 0, len(workflows))
	for _, wf := range workflows {
		if !wf.StartedAt.Before(cutoff) {
			selected = append(selected, wf)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].StartedAt.Before(selected[j].StartedAt)
	})

	log.Debug().
		Int("input", len(workflows)).
		Int("selected", len(selected)).
		Time("cutoff", cutoff).
		Msg("Workflows filtered")
	return selected
}

// Aggregate builds workflows from fetched records and returns those started
// at or after cutoff ordered by start time
func Aggregate(records []types.RawWorkflow, cutoff time.Time, serverURL string) []Workflow {
	return FilterAndSort(BuildWorkflows(records, serverURL), cutoff)
}
