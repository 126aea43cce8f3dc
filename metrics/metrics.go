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

// Package metrics contains all metrics that needs to be exposed to Prometheus
// and indirectly to Grafana. Both flows are short living jobs, so metrics are
// pushed to the push gateway at the end of each run.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"

	"github.com/argo-batch-tools/argo-notification-service/conf"
)

// Metrics names
const (
	FetchErrorsName        = "fetch_errors"
	WorkflowsFetchedName   = "workflows_fetched"
	WorkflowsReportedName  = "workflows_reported"
	MissingWorkflowsName   = "missing_workflows"
	ReportsDeliveredName   = "reports_delivered"
	DeliveryErrorsName     = "delivery_errors"
	AlertEventsSentName    = "alert_events_sent"
	AlertEventsFailedName  = "alert_events_failed"
	ProducerSetupErrorName = "producer_setup_errors"
)

// Metrics helps
const (
	FetchErrorsHelp        = "The total number of errors when fetching workflows from Argo server"
	WorkflowsFetchedHelp   = "The total number of workflow records fetched from Argo server"
	WorkflowsReportedHelp  = "The total number of workflows included in daily report"
	MissingWorkflowsHelp   = "The total number of mandatory workflows that did not run in report window"
	ReportsDeliveredHelp   = "The total number of reports delivered, per channel"
	DeliveryErrorsHelp     = "The total number of errors when delivering report, per channel"
	AlertEventsSentHelp    = "The total number of alert events accepted by producers"
	AlertEventsFailedHelp  = "The total number of alert events that could not be produced"
	ProducerSetupErrorHelp = "The total number of errors when setting up producers"
)

// channelLabel distinguishes report delivery channels
const channelLabel = "channel"

// PushGatewayClient is a simple wrapper over http.Client so that prometheus
// can do HTTP requests with the given authentication header
type PushGatewayClient struct {
	AuthToken string

	httpClient http.Client
}

// Do is a simple wrapper over http.Client.Do method that includes
// the authentication header configured in the PushGatewayClient instance
func (pgc *PushGatewayClient) Do(request *http.Request) (*http.Response, error) {
	if pgc.AuthToken != "" {
		log.Debug().Msg("Adding authorization header to HTTP request")
		request.Header.Set("Authorization", "Basic "+pgc.AuthToken)
	} else {
		log.Debug().Msg("No authorization token provided. Making HTTP request without credentials.")
	}
	log.Debug().Str("request", request.URL.String()).Str("method", request.Method).Msg("Pushing metrics to Prometheus push gateway")
	resp, err := pgc.httpClient.Do(request)
	if resp != nil {
		log.Debug().Int("code", resp.StatusCode).Msg("Returned status code")
	}
	return resp, err
}

// FetchErrors shows number of errors when fetching workflows
var FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: FetchErrorsName,
	Help: FetchErrorsHelp,
})

// WorkflowsFetched shows number of fetched workflow records
var WorkflowsFetched = promauto.NewCounter(prometheus.CounterOpts{
	Name: WorkflowsFetchedName,
	Help: WorkflowsFetchedHelp,
})

// WorkflowsReported shows number of workflows in report window
var WorkflowsReported = promauto.NewCounter(prometheus.CounterOpts{
	Name: WorkflowsReportedName,
	Help: WorkflowsReportedHelp,
})

// MissingWorkflows shows number of mandatory workflows that did not run
var MissingWorkflows = promauto.NewCounter(prometheus.CounterOpts{
	Name: MissingWorkflowsName,
	Help: MissingWorkflowsHelp,
})

// ReportsDelivered shows number of delivered reports
var ReportsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: ReportsDeliveredName,
	Help: ReportsDeliveredHelp,
}, []string{channelLabel})

// DeliveryErrors shows number of errors when delivering reports
var DeliveryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: DeliveryErrorsName,
	Help: DeliveryErrorsHelp,
}, []string{channelLabel})

// AlertEventsSent shows number of produced alert events
var AlertEventsSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: AlertEventsSentName,
	Help: AlertEventsSentHelp,
})

// AlertEventsFailed shows number of alert events that could not be produced
var AlertEventsFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: AlertEventsFailedName,
	Help: AlertEventsFailedHelp,
})

// ProducerSetupErrors shows number of errors when setting up producers
var ProducerSetupErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: ProducerSetupErrorName,
	Help: ProducerSetupErrorHelp,
})

// AddMetricsWithNamespace register the desired metrics using a given namespace
func AddMetricsWithNamespace(namespace string) {
	// Unregister all metrics and registrer them again
	prometheus.Unregister(FetchErrors)
	prometheus.Unregister(WorkflowsFetched)
	prometheus.Unregister(WorkflowsReported)
	prometheus.Unregister(MissingWorkflows)
	prometheus.Unregister(ReportsDelivered)
	prometheus.Unregister(DeliveryErrors)
	prometheus.Unregister(AlertEventsSent)
	prometheus.Unregister(AlertEventsFailed)
	prometheus.Unregister(ProducerSetupErrors)

	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      FetchErrorsName,
		Help:      FetchErrorsHelp,
	})

	WorkflowsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      WorkflowsFetchedName,
		Help:      WorkflowsFetchedHelp,
	})

	WorkflowsReported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      WorkflowsReportedName,
		Help:      WorkflowsReportedHelp,
	})

	MissingWorkflows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MissingWorkflowsName,
		Help:      MissingWorkflowsHelp,
	})

	ReportsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      ReportsDeliveredName,
		Help:      ReportsDeliveredHelp,
	}, []string{channelLabel})

	DeliveryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      DeliveryErrorsName,
		Help:      DeliveryErrorsHelp,
	}, []string{channelLabel})

	AlertEventsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      AlertEventsSentName,
		Help:      AlertEventsSentHelp,
	})

	AlertEventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      AlertEventsFailedName,
		Help:      AlertEventsFailedHelp,
	})

	ProducerSetupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      ProducerSetupErrorName,
		Help:      ProducerSetupErrorHelp,
	})
}

// PushMetrics function pushes the metrics to the configured prometheus push
// gateway. Nothing is pushed when no gateway is configured.
func PushMetrics(metricsConf *conf.MetricsConfiguration) error {
	if metricsConf.GatewayURL == "" {
		log.Debug().Msg("Push gateway is not configured, metrics are not pushed")
		return nil
	}

	client := PushGatewayClient{metricsConf.GatewayAuthToken, http.Client{}}

	// Creates a pusher to the gateway "$PUSHGW_URL/metrics/job/$(job_name)
	err := push.New(metricsConf.GatewayURL, metricsConf.Job).
		Collector(FetchErrors).
		Collector(WorkflowsFetched).
		Collector(WorkflowsReported).
		Collector(MissingWorkflows).
		Collector(ReportsDelivered).
		Collector(DeliveryErrors).
		Collector(AlertEventsSent).
		Collector(AlertEventsFailed).
		Collector(ProducerSetupErrors).
		Client(&client).
		Push()
	if err != nil {
		log.Error().Err(err).Str("gateway", metricsConf.GatewayURL).Msg("Unable to push metrics")
		return err
	}

	log.Info().Str("gateway", metricsConf.GatewayURL).Msg("Metrics pushed")
	return nil
}
