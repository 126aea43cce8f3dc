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

// Package teams contains an implementation of Sender interface that posts the
// report to MS Teams channel through an incoming webhook.
package teams

import (
	"bytes"
	"context"
	"net/http"

	httputils "github.com/RedHatInsights/insights-operator-utils/http"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/sender"
	"github.com/argo-batch-tools/argo-notification-service/utils"
)

// Office 365 connector card attributes
const (
	cardType    = "MessageCard"
	cardContext = "https://schema.org/extensions"
)

// MessageCard is the payload accepted by incoming webhooks
type MessageCard struct {
	Type    string `json:"@type"`
	Context string `json:"@context"`
	Title   string `json:"title"`
	Text    string `json:"text"`
}

// Sender is an implementation of sender.Sender for MS Teams
type Sender struct {
	WebhookURL string
	HTTPClient *http.Client
}

// New constructs a new instance of Sender
func New(config *conf.TeamsConfiguration) (*Sender, error) {
	if config.WebhookURL == "" {
		return nil, &conf.ConfigurationError{Msg: "MS Teams webhook URL is not set"}
	}
	return &Sender{
		WebhookURL: httputils.SetHTTPPrefix(config.WebhookURL),
		HTTPClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Name returns name of the delivery channel
func (s *Sender) Name() string {
	return "teams"
}

// NewMessageCard wraps the report into connector card
func NewMessageCard(report sender.Report) MessageCard {
	return MessageCard{
		Type:    cardType,
		Context: cardContext,
		Title:   report.Title,
		Text:    report.HTML,
	}
}

// Send posts the report to the webhook
func (s *Sender) Send(ctx context.Context, report sender.Report) error {
	payload, err := json.Marshal(NewMessageCard(report))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Msg("Error setting up HTTP POST request")
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = utils.SendRequest(s.HTTPClient, req)
	if err != nil {
		return &sender.DeliveryError{Channel: s.Name(), Err: err}
	}

	log.Info().Str("title", report.Title).Msg("Report posted to MS Teams")
	return nil
}
