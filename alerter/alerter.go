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

package alerter

import (
	"github.com/rs/zerolog/log"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/types"
)

// Run builds events for the given workflow context and dispatches them to
// all enabled producers
func Run(config *conf.ConfigStruct, alertContext types.AlertContext) error {
	argoConfig := conf.GetArgoConfiguration(config)
	incidentConfig := conf.GetIncidentConfiguration(config)

	namespace := alertContext.Namespace
	if namespace == "" {
		namespace = argoConfig.Namespace
	}

	a, err := New(&argoConfig, &incidentConfig, namespace)
	if err != nil {
		return err
	}

	events, err := a.BuildEvents(alertContext)
	if err != nil {
		return err
	}
	log.Info().
		Str("workflow", alertContext.WorkflowName).
		Str("status", string(alertContext.Status)).
		Int("events", len(events)).
		Msg("Alert events built")

	targets, err := NewTargets(config)
	if err != nil {
		return err
	}
	defer CloseTargets(targets)

	return Dispatch(events, targets)
}
