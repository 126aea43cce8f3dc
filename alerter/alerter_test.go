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

package alerter_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RedHatInsights/insights-operator-utils/tests/helpers"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/argo-batch-tools/argo-notification-service/alerter"
	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/tests/mocks"
	"github.com/argo-batch-tools/argo-notification-service/types"
)

const (
	prodServer = "https://argo-prod.example.com"
	devServer  = "https://argo-dev.example.com"

	cronLabelExpression     = "{{workflow.labels.workflows.argoproj.io/cron-workflow}}"
	templateLabelExpression = "{{workflow.labels.workflows.argoproj.io/workflow-template}}"

	twoFailures = `[
		{"displayName": "main", "message": "child failed", "templateName": "main", "phase": "Failed", "podName": "nightly-abcde", "finishedAt": "2024-03-02T01:00:00Z"},
		{"displayName": "load-customers", "message": "exit code 1", "templateName": "load", "phase": "Failed", "podName": "nightly-abcde-1234", "finishedAt": "2024-03-02T00:59:00Z"}
	]`
)

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

func prodAlerter() *alerter.Alerter {
	return &alerter.Alerter{
		Namespace:   "team-batch-prod",
		Environment: "prod",
		ServerURL:   prodServer,
		RoutingKey:  "routing-key",
		EntryPoint:  "main",
	}
}

func argoConfiguration() conf.ArgoConfiguration {
	return conf.ArgoConfiguration{
		Namespace: "team-batch-dev",
		Servers: map[string]string{
			"dev":  devServer,
			"prod": prodServer,
		},
	}
}

// TestNew checks that environment and server are derived from namespace
func TestNew(t *testing.T) {
	argoConfig := argoConfiguration()
	incidentConfig := conf.IncidentConfiguration{RoutingKey: "routing-key"}

	a, err := alerter.New(&argoConfig, &incidentConfig, "team-batch-prod")
	helpers.FailOnError(t, err)

	assert.Equal(t, "team-batch-prod", a.Namespace)
	assert.Equal(t, "prod", a.Environment)
	assert.Equal(t, prodServer, a.ServerURL)
	assert.Equal(t, "routing-key", a.RoutingKey)
	assert.Equal(t, conf.DefaultEntryPoint, a.EntryPoint)
}

// TestNewServerWithoutScheme checks that workflow links in events are
// absolute even for server configured without scheme
func TestNewServerWithoutScheme(t *testing.T) {
	argoConfig := argoConfiguration()
	argoConfig.Servers["prod"] = "argo-prod.example.com"
	incidentConfig := conf.IncidentConfiguration{RoutingKey: "routing-key"}

	a, err := alerter.New(&argoConfig, &incidentConfig, "team-batch-prod")
	helpers.FailOnError(t, err)

	assert.Equal(t, "http://argo-prod.example.com", a.ServerURL)
	event := a.NewEvent("wf-1", "batch", types.PhaseFailed, "pod-1")
	assert.Equal(t, "http://argo-prod.example.com/workflows/team-batch-prod/wf-1", event.ClientURL)
}

// TestNewInvalidNamespace checks that namespace with too few segments is
// configuration error
func TestNewInvalidNamespace(t *testing.T) {
	argoConfig := argoConfiguration()
	incidentConfig := conf.IncidentConfiguration{}

	_, err := alerter.New(&argoConfig, &incidentConfig, "batch")
	assert.Error(t, err)
	assert.IsType(t, &conf.ConfigurationError{}, err)
}

// TestSeverity checks severity per environment
func TestSeverity(t *testing.T) {
	assert.Equal(t, alerter.SeverityError, alerter.Severity("prod"))
	assert.Equal(t, alerter.SeverityInfo, alerter.Severity("dev"))
	assert.Equal(t, alerter.SeverityInfo, alerter.Severity("play"))
}

// TestAction checks action per status
func TestAction(t *testing.T) {
	assert.Equal(t, alerter.ActionResolve, alerter.Action(types.PhaseSucceeded))
	assert.Equal(t, alerter.ActionTrigger, alerter.Action(types.PhaseFailed))
	assert.Equal(t, alerter.ActionTrigger, alerter.Action(types.PhaseError))
	assert.Equal(t, alerter.ActionTrigger, alerter.Action(types.Phase("")))
}

// TestIsUnresolved checks detection of unsubstituted expressions
func TestIsUnresolved(t *testing.T) {
	assert.True(t, alerter.IsUnresolved(""))
	assert.True(t, alerter.IsUnresolved("  "))
	assert.True(t, alerter.IsUnresolved(cronLabelExpression))
	assert.False(t, alerter.IsUnresolved("nightly-cron"))
}

// TestParseFailures checks decoding of failure lists
func TestParseFailures(t *testing.T) {
	failures, err := alerter.ParseFailures("null")
	helpers.FailOnError(t, err)
	assert.Empty(t, failures)

	failures, err = alerter.ParseFailures("")
	helpers.FailOnError(t, err)
	assert.Empty(t, failures)

	failures, err = alerter.ParseFailures(twoFailures)
	helpers.FailOnError(t, err)
	assert.Len(t, failures, 2)
	assert.Equal(t, "load-customers", failures[1].DisplayName)
	assert.Equal(t, "load", failures[1].TemplateName)
	assert.Equal(t, types.PhaseFailed, failures[1].Phase)
	assert.Equal(t, "nightly-abcde-1234", failures[1].PodName)

	_, err = alerter.ParseFailures("[{")
	assert.Error(t, err)
	assert.IsType(t, &alerter.InvalidContextError{}, err)
}

// TestBuildEventsSkipsEntryPoint checks that failure of entry point does not
// produce an event of its own
func TestBuildEventsSkipsEntryPoint(t *testing.T) {
	events, err := prodAlerter().BuildEvents(types.AlertContext{
		Namespace:    "team-batch-prod",
		WorkflowName: "nightly-abcde",
		Status:       types.PhaseFailed,
		Failures:     twoFailures,
		CronWorkflow: "nightly-cron",
	})
	helpers.FailOnError(t, err)

	assert.Equal(t, []alerter.Event{
		{
			Payload: alerter.Payload{
				Summary:   `batch "load-customers" received status "Failed" on environment "PROD"`,
				Severity:  alerter.SeverityError,
				Source:    "nightly-abcde-1234",
				Group:     "team-batch-prod",
				Class:     "argo-workflow",
				Component: "load-customers",
			},
			RoutingKey:  "routing-key",
			DedupKey:    "team-batch-prod/load-customers",
			Client:      "argo",
			ClientURL:   prodServer + "/workflows/team-batch-prod/nightly-abcde",
			EventAction: alerter.ActionTrigger,
		},
	}, events)
}

// TestBuildEventsSucceededWorkflow checks that succeeded workflow resolves
// incident of its cron workflow
func TestBuildEventsSucceededWorkflow(t *testing.T) {
	events, err := prodAlerter().BuildEvents(types.AlertContext{
		Namespace:        "team-batch-prod",
		WorkflowName:     "nightly-abcde",
		Status:           types.PhaseSucceeded,
		Failures:         "null",
		CronWorkflow:     "nightly-cron",
		WorkflowTemplate: "nightly-workflowtemplate",
	})
	helpers.FailOnError(t, err)

	assert.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, alerter.ActionResolve, event.EventAction)
	assert.Equal(t, "nightly-cron", event.Payload.Component)
	assert.Equal(t, "nightly-abcde", event.Payload.Source)
	assert.Equal(t, "team-batch-prod/nightly-cron", event.DedupKey)
}

// TestBuildEventsTemplateFallback checks that workflow template label is
// used when cron workflow label is not substituted
func TestBuildEventsTemplateFallback(t *testing.T) {
	events, err := prodAlerter().BuildEvents(types.AlertContext{
		Namespace:        "team-batch-prod",
		WorkflowName:     "manual-run",
		Status:           types.PhaseError,
		Failures:         "",
		CronWorkflow:     cronLabelExpression,
		WorkflowTemplate: "nightly-workflowtemplate",
	})
	helpers.FailOnError(t, err)

	assert.Len(t, events, 1)
	assert.Equal(t, "nightly-workflowtemplate", events[0].Payload.Component)
	assert.Equal(t, alerter.ActionTrigger, events[0].EventAction)
}

// TestBuildEventsNoLabels checks that workflow name is used when no batch
// label is available
func TestBuildEventsNoLabels(t *testing.T) {
	events, err := prodAlerter().BuildEvents(types.AlertContext{
		Namespace:        "team-batch-prod",
		WorkflowName:     "adhoc-run",
		Status:           types.PhaseFailed,
		Failures:         "null",
		CronWorkflow:     cronLabelExpression,
		WorkflowTemplate: templateLabelExpression,
	})
	helpers.FailOnError(t, err)

	assert.Len(t, events, 1)
	assert.Equal(t, "adhoc-run", events[0].Payload.Component)
}

// TestBuildEventsDevelopmentSeverity checks severity outside production
func TestBuildEventsDevelopmentSeverity(t *testing.T) {
	argoConfig := argoConfiguration()
	incidentConfig := conf.IncidentConfiguration{RoutingKey: "routing-key", EntryPoint: "main"}

	a, err := alerter.New(&argoConfig, &incidentConfig, "team-batch-dev")
	helpers.FailOnError(t, err)

	events, err := a.BuildEvents(types.AlertContext{
		Namespace:    "team-batch-dev",
		WorkflowName: "nightly-abcde",
		Status:       types.PhaseFailed,
		Failures:     twoFailures,
	})
	helpers.FailOnError(t, err)

	assert.Len(t, events, 1)
	assert.Equal(t, alerter.SeverityInfo, events[0].Payload.Severity)
	assert.Equal(t, `batch "load-customers" received status "Failed" on environment "DEV"`, events[0].Payload.Summary)
	assert.Equal(t, devServer+"/workflows/team-batch-dev/nightly-abcde", events[0].ClientURL)
}

// TestBuildEventsInvalidFailures checks that malformed failure list is
// reported
func TestBuildEventsInvalidFailures(t *testing.T) {
	_, err := prodAlerter().BuildEvents(types.AlertContext{
		WorkflowName: "nightly-abcde",
		Status:       types.PhaseFailed,
		Failures:     "{{workflow.failures}}",
	})
	assert.Error(t, err)
	assert.IsType(t, &alerter.InvalidContextError{}, err)
}

// TestDispatch checks that every event is produced through every target
func TestDispatch(t *testing.T) {
	events := []alerter.Event{
		prodAlerter().NewEvent("wf", "first", types.PhaseFailed, "pod-1"),
		prodAlerter().NewEvent("wf", "second", types.PhaseFailed, "pod-2"),
	}

	incident := &mocks.Producer{}
	incident.On("ProduceMessage", mock.Anything).Return(int32(0), int64(0), nil)
	mirror := &mocks.Producer{}
	mirror.On("ProduceMessage", mock.Anything).Return(int32(1), int64(42), nil)

	err := alerter.Dispatch(events, []alerter.Target{
		{Name: "incident", Producer: incident},
		{Name: "kafka", Producer: mirror},
	})
	helpers.FailOnError(t, err)

	incident.AssertNumberOfCalls(t, "ProduceMessage", 2)
	mirror.AssertNumberOfCalls(t, "ProduceMessage", 2)
}

// TestDispatchPassesDedupKeyAndAction checks that producers get the event
// key and action next to the encoded event
func TestDispatchPassesDedupKeyAndAction(t *testing.T) {
	event := prodAlerter().NewEvent("wf", "first", types.PhaseFailed, "pod-1")

	mirror := &mocks.Producer{}
	mirror.On("ProduceMessage", mock.MatchedBy(func(msg types.ProducerMessage) bool {
		var decoded alerter.Event
		if err := json.Unmarshal(msg.Value, &decoded); err != nil {
			return false
		}
		return msg.Key == "team-batch-prod/first" &&
			msg.Action == alerter.ActionTrigger &&
			decoded.DedupKey == msg.Key
	})).Return(int32(3), int64(7), nil)

	err := alerter.Dispatch([]alerter.Event{event}, []alerter.Target{{Name: "kafka", Producer: mirror}})
	helpers.FailOnError(t, err)

	mirror.AssertExpectations(t)
}

// TestDispatchContinuesAfterFailure checks that failure of one event does not
// prevent sending of the others and that all failures are reported
func TestDispatchContinuesAfterFailure(t *testing.T) {
	events := []alerter.Event{
		prodAlerter().NewEvent("wf", "first", types.PhaseFailed, "pod-1"),
		prodAlerter().NewEvent("wf", "second", types.PhaseFailed, "pod-2"),
		prodAlerter().NewEvent("wf", "third", types.PhaseFailed, "pod-3"),
	}

	isEvent := func(component string) interface{} {
		return mock.MatchedBy(func(msg types.ProducerMessage) bool {
			var event alerter.Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return false
			}
			return event.Payload.Component == component
		})
	}

	incident := &mocks.Producer{}
	incident.On("ProduceMessage", isEvent("first")).Return(int32(-1), int64(-1), errors.New("connection refused"))
	incident.On("ProduceMessage", isEvent("second")).Return(int32(0), int64(0), nil)
	incident.On("ProduceMessage", isEvent("third")).Return(int32(-1), int64(-1), errors.New("400 Bad Request"))

	err := alerter.Dispatch(events, []alerter.Target{{Name: "incident", Producer: incident}})
	assert.Error(t, err)

	incident.AssertNumberOfCalls(t, "ProduceMessage", 3)

	merr, ok := err.(*multierror.Error)
	assert.True(t, ok, "multierror expected")
	assert.Len(t, merr.Errors, 2)
	assert.IsType(t, &alerter.DispatchError{}, merr.Errors[0])
	assert.Contains(t, merr.Errors[0].Error(), "team-batch-prod/first")
	assert.Contains(t, merr.Errors[1].Error(), "team-batch-prod/third")
}

// TestDispatchNoEvents checks that nothing is produced without events
func TestDispatchNoEvents(t *testing.T) {
	incident := &mocks.Producer{}
	err := alerter.Dispatch(nil, []alerter.Target{{Name: "incident", Producer: incident}})
	assert.NoError(t, err)
	incident.AssertNotCalled(t, "ProduceMessage", mock.Anything)
}

// TestRun checks the whole alert flow against fake incident API
func TestRun(t *testing.T) {
	var received []alerter.Event

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		helpers.FailOnError(t, err)

		var event alerter.Event
		helpers.FailOnError(t, json.Unmarshal(body, &event))
		received = append(received, event)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	config := conf.ConfigStruct{
		Argo: argoConfiguration(),
		Incident: conf.IncidentConfiguration{
			Enabled:    true,
			URL:        server.URL,
			RoutingKey: "routing-key",
			EntryPoint: "main",
			Timeout:    5 * time.Second,
		},
	}

	err := alerter.Run(&config, types.AlertContext{
		Namespace:    "team-batch-prod",
		WorkflowName: "nightly-abcde",
		Status:       types.PhaseFailed,
		Failures:     twoFailures,
	})
	helpers.FailOnError(t, err)

	assert.Len(t, received, 1)
	assert.Equal(t, "routing-key", received[0].RoutingKey)
	assert.Equal(t, alerter.SeverityError, received[0].Payload.Severity)
	assert.Equal(t, "team-batch-prod/load-customers", received[0].DedupKey)
}

// TestRunIncidentRejected checks that rejected event fails the run
func TestRunIncidentRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	config := conf.ConfigStruct{
		Argo: argoConfiguration(),
		Incident: conf.IncidentConfiguration{
			Enabled:    true,
			URL:        server.URL,
			RoutingKey: "routing-key",
			EntryPoint: "main",
			Timeout:    5 * time.Second,
		},
	}

	err := alerter.Run(&config, types.AlertContext{
		Namespace:        "team-batch-dev",
		WorkflowName:     "nightly-abcde",
		Status:           types.PhaseFailed,
		Failures:         "null",
		WorkflowTemplate: "nightly-workflowtemplate",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "400 Bad Request")
}

// TestRunIncidentDisabled checks that events are dropped when incident API
// is disabled
func TestRunIncidentDisabled(t *testing.T) {
	config := conf.ConfigStruct{
		Argo: argoConfiguration(),
	}

	err := alerter.Run(&config, types.AlertContext{
		Namespace:        "team-batch-dev",
		WorkflowName:     "nightly-abcde",
		Status:           types.PhaseSucceeded,
		Failures:         "null",
		WorkflowTemplate: "nightly-workflowtemplate",
	})
	assert.NoError(t, err)
}
