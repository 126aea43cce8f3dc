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

// Package alerter builds incident events for one finished workflow and
// dispatches them through the configured producers. It is run from the exit
// handler of every workflow.
package alerter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/types"
	"github.com/argo-batch-tools/argo-notification-service/workflow"
)

// Event actions
const (
	ActionTrigger = "trigger"
	ActionResolve = "resolve"
)

// Event severities
const (
	SeverityError = "error"
	SeverityInfo  = "info"
)

// Constant parts of every event
const (
	EventClient = "argo"
	EventClass  = "argo-workflow"
)

// productionEnvironment is the only environment alerts are raised as errors
const productionEnvironment = "prod"

var unresolvedExpression = regexp.MustCompile(`^\{\{.*\}\}`)

// Payload is the incident description part of event
type Payload struct {
	Summary   string `json:"summary"`
	Severity  string `json:"severity"`
	Source    string `json:"source"`
	Group     string `json:"group"`
	Class     string `json:"class"`
	Component string `json:"component"`
}

// Event represents one event sent to incident management system
type Event struct {
	Payload     Payload `json:"payload"`
	RoutingKey  string  `json:"routing_key"`
	DedupKey    string  `json:"dedup_key"`
	Client      string  `json:"client"`
	ClientURL   string  `json:"client_url"`
	EventAction string  `json:"event_action"`
}

// Alerter constructs events for workflows running in one namespace
type Alerter struct {
	Namespace   string
	Environment string
	ServerURL   string
	RoutingKey  string
	EntryPoint  string
}

// New constructs Alerter for workflows in the given namespace
func New(argoConfig *conf.ArgoConfiguration, incidentConfig *conf.IncidentConfiguration, namespace string) (*Alerter, error) {
	cfg := *argoConfig
	cfg.Namespace = namespace

	environment, err := cfg.Environment()
	if err != nil {
		return nil, err
	}

	serverURL, err := cfg.ServerURL()
	if err != nil {
		return nil, err
	}

	entryPoint := incidentConfig.EntryPoint
	if entryPoint == "" {
		entryPoint = conf.DefaultEntryPoint
	}

	return &Alerter{
		Namespace:   namespace,
		Environment: environment,
		ServerURL:   serverURL,
		RoutingKey:  incidentConfig.RoutingKey,
		EntryPoint:  entryPoint,
	}, nil
}

// Severity returns severity of events raised in the given environment
func Severity(environment string) string {
	if environment == productionEnvironment {
		return SeverityError
	}
	return SeverityInfo
}

// Action returns event action for the given status: succeeded workflows
// resolve the incident, anything else triggers it
func Action(status types.Phase) string {
	if status == types.PhaseSucceeded {
		return ActionResolve
	}
	return ActionTrigger
}

// IsUnresolved returns true for values that are empty or still contain
// unsubstituted workflow expression
func IsUnresolved(value string) bool {
	return strings.TrimSpace(value) == "" || unresolvedExpression.MatchString(value)
}

// ParseFailures decodes list of failed workflow nodes. Both empty string and
// "null" mean no failures.
func ParseFailures(failures string) ([]types.Failure, error) {
	failures = strings.TrimSpace(failures)
	if failures == "" || failures == "null" {
		return []types.Failure{}, nil
	}

	var parsed []types.Failure
	if err := json.Unmarshal([]byte(failures), &parsed); err != nil {
		return nil, &InvalidContextError{Field: "failures", Err: err}
	}
	return parsed, nil
}

// NewEvent constructs event about batch that received the given status. Pod
// is the source of the event.
func (a *Alerter) NewEvent(workflowName, batch string, status types.Phase, pod string) Event {
	return Event{
		Payload: Payload{
			Summary: fmt.Sprintf("batch %q received status %q on environment %q",
				batch, status, strings.ToUpper(a.Environment)),
			Severity:  Severity(a.Environment),
			Source:    pod,
			Group:     a.Namespace,
			Class:     EventClass,
			Component: batch,
		},
		RoutingKey:  a.RoutingKey,
		DedupKey:    a.Namespace + "/" + batch,
		Client:      EventClient,
		ClientURL:   workflow.WorkflowURL(a.ServerURL, a.Namespace, workflowName),
		EventAction: Action(status),
	}
}

// BuildEvents constructs events for the given workflow context. Workflow
// without failed nodes gives exactly one event for the whole workflow,
// otherwise there is one event per failed node except the entry point.
func (a *Alerter) BuildEvents(ctx types.AlertContext) ([]Event, error) {
	failures, err := ParseFailures(ctx.Failures)
	if err != nil {
		return nil, err
	}

	if len(failures) == 0 {
		batch := ctx.CronWorkflow
		if IsUnresolved(batch) {
			batch = ctx.WorkflowTemplate
		}
		if IsUnresolved(batch) {
			log.Warn().Str("workflow", ctx.WorkflowName).Msg("Workflow carries no batch label, using workflow name")
			batch = ctx.WorkflowName
		}
		return []Event{a.NewEvent(ctx.WorkflowName, batch, ctx.Status, ctx.WorkflowName)}, nil
	}

	events := make([]Event, 0, len(failures))
	for _, failure := range failures {
		if failure.TemplateName == a.EntryPoint {
			continue
		}
		events = append(events, a.NewEvent(ctx.WorkflowName, failure.DisplayName, failure.Phase, failure.PodName))
	}
	return events, nil
}
