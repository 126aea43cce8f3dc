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

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/RedHatInsights/insights-operator-utils/logger"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/argo-batch-tools/argo-notification-service/alerter"
	"github.com/argo-batch-tools/argo-notification-service/argo"
	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/metrics"
	"github.com/argo-batch-tools/argo-notification-service/reporter"
	"github.com/argo-batch-tools/argo-notification-service/types"
)

// Configuration-related constants
const (
	loadConfigurationMessage = "Load configuration"
	dotEnvFile               = ".env"
)

const (
	versionMessage = "Argo notification service version 1.0"
)

// newRootCommand constructs the command tree. Exit status of the executed
// command is stored into exitStatus.
func newRootCommand(exitStatus *int) *cobra.Command {
	var cliFlags types.CliFlags

	root := &cobra.Command{
		Use:           "argo-notification-service",
		Short:         "Daily report and alerts for Argo Workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&cliFlags.Verbose, "verbose", false, "verbose logs")
	root.PersistentFlags().BoolVar(&cliFlags.ShowConfiguration, "show-configuration", false, "show configuration and exit")

	root.AddCommand(
		newReportCommand(&cliFlags, exitStatus),
		newAlertCommand(&cliFlags, exitStatus),
		newVersionCommand(),
	)
	return root
}

func newReportCommand(cliFlags *types.CliFlags, exitStatus *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Send daily report about workflows",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			*exitStatus = runReport(cmd.Context(), cliFlags)
		},
	}
	cmd.Flags().BoolVar(&cliFlags.DryRun, "dry-run", false, "print report instead of delivering it")
	return cmd
}

func newAlertCommand(cliFlags *types.CliFlags, exitStatus *int) *cobra.Command {
	var (
		alertContext types.AlertContext
		status       string
	)

	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Send incident events about finished workflow",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			alertContext.Status = types.Phase(status)
			*exitStatus = runAlert(cliFlags, alertContext)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&alertContext.Namespace, "namespace", "", "namespace of the workflow ({{workflow.namespace}})")
	flags.StringVar(&alertContext.WorkflowName, "workflow", "", "name of the workflow ({{workflow.name}})")
	flags.StringVar(&status, "status", "", "status of the workflow ({{workflow.status}})")
	flags.StringVar(&alertContext.Failures, "failures", "null", "JSON list of failed nodes ({{workflow.failures}})")
	flags.StringVar(&alertContext.CronWorkflow, "cron-workflow", "", "cron workflow label of the workflow")
	flags.StringVar(&alertContext.WorkflowTemplate, "workflow-template", "", "workflow template label of the workflow")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			showVersion()
		},
	}
}

// execute runs the command given by args and returns exit status
func execute(args []string) int {
	exitStatus := ExitStatusOK

	root := newRootCommand(&exitStatus)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Invalid command line")
		return ExitStatusConfiguration
	}
	return exitStatus
}

// showVersion function displays version information.
func showVersion() {
	fmt.Println(versionMessage)
}

// initialize loads configuration and sets up logging. The command continues
// only when proceed is true, otherwise it exits with the returned status.
func initialize(cliFlags *types.CliFlags) (config conf.ConfigStruct, proceed bool, status int) {
	err := godotenv.Load(dotEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Err(err).Msg("Unable to read .env file")
		return conf.ConfigStruct{}, false, ExitStatusConfiguration
	}

	// config has exactly the same structure as *.toml file
	config, err = conf.LoadConfiguration(conf.ConfigFileEnvVariableName, conf.DefaultConfigFileName)
	if err != nil {
		log.Err(err).Msg(loadConfigurationMessage)
		return config, false, ExitStatusConfiguration
	}

	err = logger.InitZerolog(
		conf.GetLoggingConfiguration(&config),
		logger.CloudWatchConfiguration{},
		logger.SentryLoggingConfiguration{},
		logger.KafkaZerologConfiguration{},
	)
	if err != nil {
		log.Err(err).Msg(loadConfigurationMessage)
		return config, false, ExitStatusConfiguration
	}

	if config.Logging.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = log.With().Str("run_id", uuid.NewString()).Logger()

	// set log level
	logLevel := convertLogLevel(config.Logging.LogLevel)
	zerolog.SetGlobalLevel(logLevel)
	log.Info().
		Str("configured", config.Logging.LogLevel).
		Int("internal", int(logLevel)).
		Msg("Log level")

	// configuration is loaded, so it would be possible to display it if
	// asked by user
	if cliFlags.ShowConfiguration {
		showConfiguration(&config)
		return config, false, ExitStatusOK
	}

	if cliFlags.Verbose {
		showConfiguration(&config)
	}

	if config.Metrics.Namespace != "" {
		metrics.AddMetricsWithNamespace(config.Metrics.Namespace)
	}

	return config, true, ExitStatusOK
}

// runReport performs the daily report flow
func runReport(ctx context.Context, cliFlags *types.CliFlags) int {
	config, proceed, status := initialize(cliFlags)
	if !proceed {
		return status
	}

	r, err := reporter.New(&config, cliFlags.DryRun)
	if err != nil {
		log.Err(err).Msg("Unable to set up reporter")
		return ExitStatusConfiguration
	}

	err = r.Run(ctx)
	pushMetrics(&config)
	if err != nil {
		log.Err(err).Msg("Daily report failed")
		return reportExitStatus(err)
	}

	log.Info().Msg("Daily report finished")
	return ExitStatusOK
}

// runAlert performs the alert flow for one finished workflow
func runAlert(cliFlags *types.CliFlags, alertContext types.AlertContext) int {
	config, proceed, status := initialize(cliFlags)
	if !proceed {
		return status
	}

	log.Info().
		Str("namespace", alertContext.Namespace).
		Str("workflow", alertContext.WorkflowName).
		Str("status", string(alertContext.Status)).
		Msg("Alerting on workflow")

	err := alerter.Run(&config, alertContext)
	pushMetrics(&config)
	if err != nil {
		log.Err(err).Msg("Alerting failed")
		return alertExitStatus(err)
	}

	log.Info().Msg("Alerting finished")
	return ExitStatusOK
}

func pushMetrics(config *conf.ConfigStruct) {
	metricsConfig := conf.GetMetricsConfiguration(config)
	if err := metrics.PushMetrics(&metricsConfig); err != nil {
		log.Warn().Err(err).Msg("Metrics were not pushed")
	}
}

// reportExitStatus maps error of report flow to exit status
func reportExitStatus(err error) int {
	var configErr *conf.ConfigurationError
	var fetchErr *argo.FetchError

	switch {
	case errors.As(err, &configErr):
		return ExitStatusConfiguration
	case errors.As(err, &fetchErr):
		return ExitStatusFetchError
	default:
		return ExitStatusDeliveryError
	}
}

// alertExitStatus maps error of alert flow to exit status
func alertExitStatus(err error) int {
	var configErr *conf.ConfigurationError
	var contextErr *alerter.InvalidContextError

	switch {
	case errors.As(err, &configErr), errors.As(err, &contextErr):
		return ExitStatusConfiguration
	default:
		return ExitStatusAlertError
	}
}

// showConfiguration function displays actual configuration.
func showConfiguration(config *conf.ConfigStruct) {
	argoConfig := conf.GetArgoConfiguration(config)
	// token is omitted on purpose
	log.Info().
		Str("Namespace", argoConfig.Namespace).
		Str("Server", argoConfig.Server).
		Interface("Servers", argoConfig.Servers).
		Str("Token file", argoConfig.TokenFile).
		Bool("Insecure skip verify", argoConfig.InsecureSkipVerify).
		Str("Timeout", argoConfig.Timeout.String()).
		Msg("Argo configuration")

	reportConfig := conf.GetReportConfiguration(config)
	log.Info().
		Str("Timezone", reportConfig.Timezone).
		Int("Cutoff hour", reportConfig.CutoffHour).
		Int("Lookback days", reportConfig.LookbackDays).
		Str("Template suffix", reportConfig.TemplateSuffix).
		Int("Mandatory templates", len(reportConfig.MandatoryTemplates)).
		Str("Mandatory templates file", reportConfig.MandatoryTemplatesFile).
		Msg("Report configuration")

	teamsConfig := conf.GetTeamsConfiguration(config)
	// webhook URL contains secret, so it is omitted
	log.Info().
		Bool("Enabled", teamsConfig.Enabled).
		Bool("Webhook set", teamsConfig.WebhookURL != "").
		Str("Timeout", teamsConfig.Timeout.String()).
		Msg("MS Teams configuration")

	emailConfig := conf.GetEmailConfiguration(config)
	log.Info().
		Bool("Enabled", emailConfig.Enabled).
		Str("Host", emailConfig.Host).
		Int("Port", emailConfig.Port).
		Str("From", emailConfig.From).
		Str("To", emailConfig.To).
		Str("Subject", emailConfig.Subject).
		Msg("E-mail configuration")

	incidentConfig := conf.GetIncidentConfiguration(config)
	// routing key is omitted on purpose
	log.Info().
		Bool("Enabled", incidentConfig.Enabled).
		Str("URL", incidentConfig.URL).
		Str("Entry point", incidentConfig.EntryPoint).
		Str("Timeout", incidentConfig.Timeout.String()).
		Msg("Incident configuration")

	brokerConfig := conf.GetKafkaBrokerConfiguration(config)
	log.Info().
		Bool("Enabled", brokerConfig.Enabled).
		Str("Addresses", brokerConfig.Addresses).
		Str("SecurityProtocol", brokerConfig.SecurityProtocol).
		Str("SaslMechanism", brokerConfig.SaslMechanism).
		Str("Topic", brokerConfig.Topic).
		Str("Timeout", brokerConfig.Timeout.String()).
		Msg("Broker configuration")

	loggingConfig := conf.GetLoggingConfiguration(config)
	log.Info().
		Str("Level", loggingConfig.LogLevel).
		Bool("Pretty colored debug logging", loggingConfig.Debug).
		Msg("Logging configuration")

	metricsConfig := conf.GetMetricsConfiguration(config)
	// Authentication token is omitted on purpose
	log.Info().
		Str("Job", metricsConfig.Job).
		Str("Namespace", metricsConfig.Namespace).
		Str("Push Gateway", metricsConfig.GatewayURL).
		Msg("Metrics configuration")
}

func convertLogLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	}

	return zerolog.DebugLevel
}
