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

// Package pagerduty contains an implementation of Producer interface that can
// be used to produce (that is send) alert events to PagerDuty Events API v2.
package pagerduty

import (
	"bytes"
	"net/http"

	httputils "github.com/RedHatInsights/insights-operator-utils/http"
	"github.com/rs/zerolog/log"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/types"
	"github.com/argo-batch-tools/argo-notification-service/utils"
)

// Producer is an implementation of Producer interface for PagerDuty
type Producer struct {
	Configuration conf.IncidentConfiguration
	HTTPClient    *http.Client
}

// New constructs a new instance of Producer implementation
func New(config *conf.IncidentConfiguration) (*Producer, error) {
	if config.RoutingKey == "" {
		return nil, &conf.ConfigurationError{Msg: "PagerDuty routing key is not set"}
	}
	return &Producer{
		Configuration: *config,
		HTTPClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// ProduceMessage sends the given event to PagerDuty. Any 2xx response means
// the event has been accepted.
func (producer *Producer) ProduceMessage(msg types.ProducerMessage) (partitionID int32, offset int64, err error) {
	url := httputils.SetHTTPPrefix(producer.Configuration.URL)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(msg.Value))
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Error setting up HTTP POST request")
		return -1, -1, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := utils.SendRequest(producer.HTTPClient, req)
	if err != nil {
		return -1, -1, err
	}

	log.Debug().Bytes("response", body).Msg("Event accepted by PagerDuty")
	return 0, 0, nil
}

// Close closes Producer (in case of PagerDuty implementation, it does not do anything)
func (producer *Producer) Close() error {
	return nil
}
