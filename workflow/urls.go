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

import "fmt"

// GenerateReportURL returns link to the reports view of Argo server listing
// archived workflows with the given label value
//
//	GenerateReportURL("https://argo.example.com", types.WorkflowTemplateLabel, "my-workflowtemplate")
//	->
//	https://argo.example.com/reports?labels=workflows.argoproj.io/workflow-template=my-workflowtemplate&archivedWorkflows=true
func GenerateReportURL(serverURL, label, labelValue string) string {
	return fmt.Sprintf("%s/reports?labels=%s=%s&archivedWorkflows=true", serverURL, label, labelValue)
}

// WorkflowURL returns link to the live view of workflow
func WorkflowURL(serverURL, namespace, name string) string {
	return fmt.Sprintf("%s/workflows/%s/%s", serverURL, namespace, name)
}
