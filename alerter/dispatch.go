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
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/metrics"
	"github.com/argo-batch-tools/argo-notification-service/producer"
	"github.com/argo-batch-tools/argo-notification-service/producer/disabled"
	"github.com/argo-batch-tools/argo-notification-service/producer/kafka"
	"github.com/argo-batch-tools/argo-notification-service/producer/pagerduty"
	"github.com/argo-batch-tools/argo-notification-service/types"
)

// Target is a named producer events are dispatched to
type Target struct {
	Name     string
	Producer producer.Producer
}

// NewTargets sets up producers enabled in configuration. Incident API is
// always the first target, disabled producer is used in its place when it is
// switched off.
func NewTargets(config *conf.ConfigStruct) ([]Target, error) {
	incidentConfig := conf.GetIncidentConfiguration(config)

	var incident producer.Producer = &disabled.Producer{}
	if incidentConfig.Enabled {
		pd, err := pagerduty.New(&incidentConfig)
		if err != nil {
			metrics.ProducerSetupErrors.Inc()
			return nil, err
		}
		incident = pd
	} else {
		log.Info().Msg("Incident API is disabled")
	}

	targets := []Target{{Name: "incident", Producer: incident}}

	if config.Kafka.Enabled {
		kafkaProducer, err := kafka.New(config)
		if err != nil {
			metrics.ProducerSetupErrors.Inc()
			CloseTargets(targets)
			return nil, err
		}
		targets = append(targets, Target{Name: "kafka", Producer: kafkaProducer})
	}

	return targets, nil
}

// CloseTargets closes all producers, errors are only logged
func CloseTargets(targets []Target) {
	for _, target := range targets {
		if err := target.Producer.Close(); err != nil {
			log.Error().Err(err).Str("producer", target.Name).Msg("Unable to close producer")
		}
	}
}

// Dispatch produces every event through every target. Failure of one event
// does not stop the remaining ones, all failures are returned together.
func Dispatch(events []Event, targets []Target) error {
	var result *multierror.Error

	for _, event := range events {
		msg, err := json.Marshal(event)
		if err != nil {
			metrics.AlertEventsFailed.Inc()
			result = multierror.Append(result, &DispatchError{DedupKey: event.DedupKey, Producer: "encoder", Err: err})
			continue
		}

		failed := false
		for _, target := range targets {
			_, _, err := target.Producer.ProduceMessage(types.ProducerMessage{
				Key:    event.DedupKey,
				Action: event.EventAction,
				Value:  msg,
			})
			if err != nil {
				failed = true
				result = multierror.Append(result, &DispatchError{DedupKey: event.DedupKey, Producer: target.Name, Err: err})
				continue
			}
			log.Info().
				Str("producer", target.Name).
				Str("dedup_key", event.DedupKey).
				Str("action", event.EventAction).
				Msg("Alert event produced")
		}

		if failed {
			metrics.AlertEventsFailed.Inc()
		} else {
			metrics.AlertEventsSent.Inc()
		}
	}

	return result.ErrorOrNil()
}
