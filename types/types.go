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

// Package types contains data types shared by the report and alert flows of
// the notification service.
package types

// Labels used by Argo to mark how a workflow was started
const (
	SensorLabel           = "events.argoproj.io/sensor"
	CronWorkflowLabel     = "workflows.argoproj.io/cron-workflow"
	WorkflowTemplateLabel = "workflows.argoproj.io/workflow-template"
)

// Phase represents execution status of workflow or workflow node
type Phase string

// Known workflow phases
const (
	PhasePending   Phase = "Pending"
	PhaseRunning   Phase = "Running"
	PhaseSucceeded Phase = "Succeeded"
	PhaseFailed    Phase = "Failed"
	PhaseError     Phase = "Error"
)

// ProducerMessage represents one encoded alert event handed over to producer.
// Key is the deduplication key of the event, all events for the same batch
// share it.
type ProducerMessage struct {
	Key    string
	Action string
	Value  []byte
}

// WorkflowList represents response of Argo server workflow list endpoint.
// Only attributes needed to build the report are decoded.
type WorkflowList struct {
	Items []RawWorkflow `json:"items"`
}

// RawWorkflow represents one workflow record as returned by Argo server
type RawWorkflow struct {
	Metadata WorkflowMetadata `json:"metadata"`
	Spec     WorkflowSpec     `json:"spec"`
	Status   WorkflowStatus   `json:"status"`
}

// WorkflowMetadata contains name and labels of workflow
type WorkflowMetadata struct {
	Name      string            `json:"name"`
	Namespace string            `json:"namespace"`
	Labels    map[string]string `json:"labels"`
}

// WorkflowSpec contains reference to workflow template, if any
type WorkflowSpec struct {
	WorkflowTemplateRef *WorkflowTemplateRef `json:"workflowTemplateRef,omitempty"`
}

// WorkflowTemplateRef refers to workflow template the workflow was created from
type WorkflowTemplateRef struct {
	Name string `json:"name"`
}

// WorkflowStatus contains execution status of workflow. Timestamps are kept
// in their textual RFC 3339 form, empty string means not set.
type WorkflowStatus struct {
	Phase      Phase  `json:"phase"`
	Progress   string `json:"progress"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt"`
}

// MandatoryTemplate describes workflow template expected to run in every
// report window together with sensor that triggers it
type MandatoryTemplate struct {
	Sensor   string `mapstructure:"sensor" toml:"sensor" yaml:"sensor" json:"sensor"`
	Template string `mapstructure:"template" toml:"template" yaml:"template" json:"template"`
}

// Failure represents one entry from the workflow.failures list that Argo
// provides to exit handlers
type Failure struct {
	DisplayName  string `json:"displayName"`
	Message      string `json:"message"`
	TemplateName string `json:"templateName"`
	Phase        Phase  `json:"phase"`
	PodName      string `json:"podName"`
	FinishedAt   string `json:"finishedAt"`
}

// AlertContext represents workflow execution context substituted by Argo
// into arguments of the alert command
type AlertContext struct {
	Namespace        string
	WorkflowName     string
	Status           Phase
	Failures         string
	CronWorkflow     string
	WorkflowTemplate string
}

// CliFlags represents structure holding all command line arguments/flags.
type CliFlags struct {
	ShowConfiguration bool
	Verbose           bool
	DryRun            bool
}
