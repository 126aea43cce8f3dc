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

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RedHatInsights/insights-operator-utils/tests/helpers"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/metrics"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

// TestAddMetricsWithNamespace function checks the basic behaviour of function
// AddMetricsWithNamespace from `metrics.go`
func TestAddMetricsWithNamespace(t *testing.T) {
	// add all metrics into the namespace "foobar"
	metrics.AddMetricsWithNamespace("foobar")

	// check the registration
	assert.NotNil(t, metrics.FetchErrors)
	assert.NotNil(t, metrics.WorkflowsFetched)
	assert.NotNil(t, metrics.WorkflowsReported)
	assert.NotNil(t, metrics.MissingWorkflows)
	assert.NotNil(t, metrics.ReportsDelivered)
	assert.NotNil(t, metrics.DeliveryErrors)
	assert.NotNil(t, metrics.AlertEventsSent)
	assert.NotNil(t, metrics.AlertEventsFailed)
	assert.NotNil(t, metrics.ProducerSetupErrors)

	metrics.AlertEventsSent.Add(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.AlertEventsSent))
}

// TestPushMetricsNoGateway checks that nothing is pushed when gateway URL is
// not set
func TestPushMetricsNoGateway(t *testing.T) {
	err := metrics.PushMetrics(&conf.MetricsConfiguration{})
	assert.NoError(t, err)
}

// TestPushMetrics checks that metrics are pushed with authorization header
func TestPushMetrics(t *testing.T) {
	var pushes int

	testServer := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Basic secret", r.Header.Get("Authorization"))
			assert.True(t, strings.HasSuffix(r.URL.Path, "/metrics/job/argo_notification_service"))
			w.WriteHeader(http.StatusOK)
			pushes++
		}),
	)
	defer testServer.Close()

	metricsConf := conf.MetricsConfiguration{
		Job:              "argo_notification_service",
		Namespace:        "argo_notification_service",
		GatewayURL:       testServer.URL,
		GatewayAuthToken: "secret",
	}

	err := metrics.PushMetrics(&metricsConf)
	helpers.FailOnError(t, err)
	assert.Equal(t, 1, pushes)
}

// TestPushMetricsGatewayFailing checks that push gateway errors are reported
func TestPushMetricsGatewayFailing(t *testing.T) {
	testServer := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}),
	)
	defer testServer.Close()

	metricsConf := conf.MetricsConfiguration{
		Job:        "argo_notification_service",
		GatewayURL: testServer.URL,
	}

	err := metrics.PushMetrics(&metricsConf)
	assert.Error(t, err)
}
