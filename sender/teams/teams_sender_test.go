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

package teams_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RedHatInsights/insights-operator-utils/tests/helpers"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/sender"
	"github.com/argo-batch-tools/argo-notification-service/sender/teams"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

var report = sender.Report{
	Title:     "2024-03-02 08:15 - Daily Workflow Report for environment: DEV",
	HTML:      "<table></table>",
	PlainText: "",
}

// TestNewWithoutWebhook checks that webhook URL is required
func TestNewWithoutWebhook(t *testing.T) {
	_, err := teams.New(&conf.TeamsConfiguration{Enabled: true})
	assert.Error(t, err)
	assert.IsType(t, &conf.ConfigurationError{}, err)
}

// TestSend checks the payload posted to the webhook
func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		helpers.FailOnError(t, err)

		var card map[string]string
		helpers.FailOnError(t, json.Unmarshal(body, &card))
		assert.Equal(t, "MessageCard", card["@type"])
		assert.Equal(t, "https://schema.org/extensions", card["@context"])
		assert.Equal(t, report.Title, card["title"])
		assert.Equal(t, report.HTML, card["text"])

		_, _ = w.Write([]byte("1"))
	}))
	defer server.Close()

	s, err := teams.New(&conf.TeamsConfiguration{
		Enabled:    true,
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
	})
	helpers.FailOnError(t, err)
	assert.Equal(t, "teams", s.Name())

	err = s.Send(context.Background(), report)
	helpers.FailOnError(t, err)
}

// TestSendRejected checks that non 2xx response is reported
func TestSendRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Summary or Text is required."))
	}))
	defer server.Close()

	s, err := teams.New(&conf.TeamsConfiguration{
		Enabled:    true,
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
	})
	helpers.FailOnError(t, err)

	err = s.Send(context.Background(), report)
	assert.Error(t, err)
	assert.IsType(t, &sender.DeliveryError{}, err)
	assert.Contains(t, err.Error(), "400 Bad Request")
}

// TestNewMessageCard checks the card constructed from report
func TestNewMessageCard(t *testing.T) {
	card := teams.NewMessageCard(report)
	assert.Equal(t, teams.MessageCard{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   report.Title,
		Text:    report.HTML,
	}, card)
}
