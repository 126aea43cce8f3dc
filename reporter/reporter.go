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

// Package reporter implements the daily digest: workflows started in the
// report window are fetched from Argo server, rendered into HTML report and
// delivered through all enabled channels.
package reporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/argo-batch-tools/argo-notification-service/argo"
	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/metrics"
	"github.com/argo-batch-tools/argo-notification-service/sender"
	"github.com/argo-batch-tools/argo-notification-service/sender/email"
	"github.com/argo-batch-tools/argo-notification-service/sender/teams"
	"github.com/argo-batch-tools/argo-notification-service/types"
	"github.com/argo-batch-tools/argo-notification-service/workflow"
)

const separator = "------------------------------------------"

// Reporter produces one daily report
type Reporter struct {
	Fetcher     argo.Fetcher
	Senders     []sender.Sender
	Renderer    workflow.Renderer
	Environment string

	Mandatory    []types.MandatoryTemplate
	LookbackDays int
	CutoffHour   int

	// DryRun prints the report to Output instead of delivering it
	DryRun bool
	Output io.Writer

	Now func() time.Time
}

// New constructs Reporter from configuration
func New(config *conf.ConfigStruct, dryRun bool) (*Reporter, error) {
	argoConfig := conf.GetArgoConfiguration(config)
	reportConfig := conf.GetReportConfiguration(config)

	environment, err := argoConfig.Environment()
	if err != nil {
		return nil, err
	}

	serverURL, err := argoConfig.ServerURL()
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(reportConfig.Timezone)
	if err != nil {
		return nil, &conf.ConfigurationError{
			Msg: fmt.Sprintf("unknown report time zone %q: %v", reportConfig.Timezone, err),
		}
	}

	fetcher, err := argo.New(&argoConfig)
	if err != nil {
		return nil, err
	}

	var senders []sender.Sender
	if !dryRun {
		senders, err = NewSenders(config)
		if err != nil {
			return nil, err
		}
	}

	mandatory := reportConfig.MandatoryTemplates
	if len(mandatory) == 0 {
		mandatory = workflow.DefaultMandatoryTemplates(environment)
	}

	return &Reporter{
		Fetcher: fetcher,
		Senders: senders,
		Renderer: workflow.Renderer{
			ServerURL:      serverURL,
			Namespace:      argoConfig.Namespace,
			Location:       location,
			TemplateSuffix: reportConfig.TemplateSuffix,
		},
		Environment:  environment,
		Mandatory:    mandatory,
		LookbackDays: reportConfig.LookbackDays,
		CutoffHour:   reportConfig.CutoffHour,
		DryRun:       dryRun,
		Output:       os.Stdout,
		Now:          time.Now,
	}, nil
}

// NewSenders sets up all delivery channels enabled in configuration. At
// least one channel has to be enabled.
func NewSenders(config *conf.ConfigStruct) ([]sender.Sender, error) {
	var senders []sender.Sender

	teamsConfig := conf.GetTeamsConfiguration(config)
	if teamsConfig.Enabled {
		s, err := teams.New(&teamsConfig)
		if err != nil {
			return nil, err
		}
		senders = append(senders, s)
	}

	emailConfig := conf.GetEmailConfiguration(config)
	if emailConfig.Enabled {
		s, err := email.New(&emailConfig)
		if err != nil {
			return nil, err
		}
		senders = append(senders, s)
	}

	if len(senders) == 0 {
		return nil, &conf.ConfigurationError{Msg: "no report delivery channel is enabled"}
	}
	return senders, nil
}

// Run fetches workflows, renders the report and delivers it
func (r *Reporter) Run(ctx context.Context) error {
	now := r.Now()
	window := workflow.Window{
		From: workflow.ReportWindowStart(now, r.Renderer.Location, r.LookbackDays, r.CutoffHour),
		Till: now,
	}
	log.Info().Time("from", window.From).Time("till", window.Till).Msg("Report window")

	log.Info().Msg(separator)
	log.Info().Msg("Fetching workflows")
	records, err := r.Fetcher.ListWorkflows(ctx, r.Renderer.Namespace)
	if err != nil {
		metrics.FetchErrors.Inc()
		return err
	}
	metrics.WorkflowsFetched.Add(float64(len(records)))

	log.Info().Msg(separator)
	log.Info().Msg("Rendering report")
	workflows := workflow.Aggregate(records, window.From, r.Renderer.ServerURL)
	metrics.WorkflowsReported.Add(float64(len(workflows)))

	missing := workflow.FindMissingTemplates(workflows, r.Mandatory)
	metrics.MissingWorkflows.Add(float64(len(missing)))
	if len(missing) > 0 {
		log.Warn().Int("missing", len(missing)).Msg("Mandatory workflows did not run")
	}

	html, err := r.Renderer.RenderReport(window, workflows, r.Mandatory)
	if err != nil {
		log.Error().Err(err).Msg("Unable to render report")
		return err
	}

	report := sender.Report{
		Title:     r.Renderer.Title(now, r.Environment),
		HTML:      html,
		PlainText: r.Renderer.RenderPlainText(workflows),
	}

	log.Info().Msg(separator)
	if r.DryRun {
		log.Info().Msg("Dry run, report is not delivered")
		_, err := fmt.Fprintf(r.Output, "%s\n\n%s\n", report.Title, report.HTML)
		return err
	}

	log.Info().Int("channels", len(r.Senders)).Msg("Delivering report")
	return r.deliver(ctx, report)
}

// deliver sends report through all senders, failure of one channel does not
// prevent delivery through the others
func (r *Reporter) deliver(ctx context.Context, report sender.Report) error {
	var result *multierror.Error

	for _, s := range r.Senders {
		if err := s.Send(ctx, report); err != nil {
			metrics.DeliveryErrors.WithLabelValues(s.Name()).Inc()
			log.Error().Err(err).Str("channel", s.Name()).Msg("Report delivery failed")
			result = multierror.Append(result, err)
			continue
		}
		metrics.ReportsDelivered.WithLabelValues(s.Name()).Inc()
	}

	return result.ErrorOrNil()
}
