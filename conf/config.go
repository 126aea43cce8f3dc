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

package conf

// This source file contains definition of data type named ConfigStruct that
// represents configuration of the notification service. This source file
// also contains function named LoadConfiguration that can be used to load
// configuration from provided configuration file and/or from environment
// variables. Additionally several specific functions named
// GetArgoConfiguration, GetLoggingConfiguration, GetReportConfiguration,
// GetTeamsConfiguration, GetEmailConfiguration, GetIncidentConfiguration,
// GetKafkaBrokerConfiguration and GetMetricsConfiguration are to be used to
// return specific configuration options.

// Default name of configuration file is config.toml
// It can be changed via environment variable ARGO_NOTIFICATION_SERVICE_CONFIG_FILE

// An example of configuration file that can be used in devel environment:
//
// [logging]
// debug = true
// log_level = "info"
//
// [argo]
// namespace = "team-batch-dev"
// token_file = "/var/run/secrets/kubernetes.io/serviceaccount/token"
//
// [argo.servers]
// dev = "https://argo-dev.example.com"
//
// [teams]
// enabled = true
//
// Environment variables that can be used to override configuration file settings:
// ARGO_NAMESPACE, ARGO_SERVER, ARGO_TOKEN, MS_TEAMS_WEBHOOK, PAGERDUTY_ROUTING_KEY
// and any key prefixed by ARGO_NOTIFICATION_SERVICE_ (dots replaced by "__").

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	httputils "github.com/RedHatInsights/insights-operator-utils/http"
	"github.com/RedHatInsights/insights-operator-utils/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/argo-batch-tools/argo-notification-service/types"
)

// Configuration-related constants
const (
	ConfigFileEnvVariableName = "ARGO_NOTIFICATION_SERVICE_CONFIG_FILE"
	DefaultConfigFileName     = "config"
	envPrefix                 = "ARGO_NOTIFICATION_SERVICE_"
)

// Defaults applied when the configuration leaves a value empty
const (
	DefaultTokenFile      = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	DefaultTimezone       = "Europe/Amsterdam"
	DefaultCutoffHour     = 21
	DefaultLookbackDays   = 1
	DefaultEntryPoint     = "main"
	DefaultIncidentURL    = "https://events.pagerduty.com/v2/enqueue"
	DefaultEmailHost      = "email_server.svc.cluster.local"
	DefaultEmailPort      = 25000
	DefaultEmailFrom      = "no-reply@acme.com"
	DefaultEmailSubject   = "Daily Report"
	DefaultTemplateSuffix = "-workflowtemplate"
	DefaultHTTPTimeout    = 10 * time.Second
)

// reportDefaults hold report settings where zero is a meaningful value
// (midnight cutoff, window starting today), so they can not be defaulted
// after unmarshalling
var reportDefaults = map[string]int{
	"report.cutoff_hour":   DefaultCutoffHour,
	"report.lookback_days": DefaultLookbackDays,
}

// ConfigStruct is a structure holding the whole notification service
// configuration
type ConfigStruct struct {
	Logging  logger.LoggingConfiguration `mapstructure:"logging" toml:"logging"`
	Argo     ArgoConfiguration           `mapstructure:"argo" toml:"argo"`
	Report   ReportConfiguration         `mapstructure:"report" toml:"report"`
	Teams    TeamsConfiguration          `mapstructure:"teams" toml:"teams"`
	Email    EmailConfiguration          `mapstructure:"email" toml:"email"`
	Incident IncidentConfiguration       `mapstructure:"incident" toml:"incident"`
	Kafka    KafkaConfiguration          `mapstructure:"kafka_broker" toml:"kafka_broker"`
	Metrics  MetricsConfiguration        `mapstructure:"metrics" toml:"metrics"`
}

// ArgoConfiguration represents access to the Argo Workflows server
type ArgoConfiguration struct {
	// Namespace the service runs in, the environment name is derived from it
	Namespace string `mapstructure:"namespace" toml:"namespace"`

	// Server overrides the per-environment mapping when set
	Server string `mapstructure:"server" toml:"server"`

	// Servers maps environment name to Argo server base URL
	Servers map[string]string `mapstructure:"servers" toml:"servers"`

	Token              string        `mapstructure:"token" toml:"token"`
	TokenFile          string        `mapstructure:"token_file" toml:"token_file"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" toml:"insecure_skip_verify"`
	Timeout            time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// ReportConfiguration represents the daily digest settings
type ReportConfiguration struct {
	Timezone     string `mapstructure:"timezone" toml:"timezone"`
	CutoffHour   int    `mapstructure:"cutoff_hour" toml:"cutoff_hour"`
	LookbackDays int    `mapstructure:"lookback_days" toml:"lookback_days"`

	// TemplateSuffix is stripped from template names before display
	TemplateSuffix string `mapstructure:"template_suffix" toml:"template_suffix"`

	MandatoryTemplates     []types.MandatoryTemplate `mapstructure:"mandatory_templates" toml:"mandatory_templates"`
	MandatoryTemplatesFile string                    `mapstructure:"mandatory_templates_file" toml:"mandatory_templates_file"`
}

// TeamsConfiguration represents the MS Teams incoming webhook
type TeamsConfiguration struct {
	Enabled    bool          `mapstructure:"enabled" toml:"enabled"`
	WebhookURL string        `mapstructure:"webhook_url" toml:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// EmailConfiguration represents delivery through the local mail relay
type EmailConfiguration struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Host    string `mapstructure:"host" toml:"host"`
	Port    int    `mapstructure:"port" toml:"port"`
	From    string `mapstructure:"from" toml:"from"`
	To      string `mapstructure:"to" toml:"to"`
	Subject string `mapstructure:"subject" toml:"subject"`
}

// IncidentConfiguration represents the incident management events API
type IncidentConfiguration struct {
	Enabled    bool          `mapstructure:"enabled" toml:"enabled"`
	URL        string        `mapstructure:"url" toml:"url"`
	RoutingKey string        `mapstructure:"routing_key" toml:"routing_key"`
	EntryPoint string        `mapstructure:"entry_point" toml:"entry_point"`
	Timeout    time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// KafkaConfiguration represents configuration of Kafka brokers and topics
// used to mirror alert events
type KafkaConfiguration struct {
	Enabled          bool          `mapstructure:"enabled" toml:"enabled"`
	Addresses        string        `mapstructure:"addresses" toml:"addresses"`
	SecurityProtocol string        `mapstructure:"security_protocol" toml:"security_protocol"`
	SaslMechanism    string        `mapstructure:"sasl_mechanism" toml:"sasl_mechanism"`
	SaslUsername     string        `mapstructure:"sasl_username" toml:"sasl_username"`
	SaslPassword     string        `mapstructure:"sasl_password" toml:"sasl_password"`
	CertPath         string        `mapstructure:"cert_path" toml:"cert_path"`
	Topic            string        `mapstructure:"topic"   toml:"topic"`
	Timeout          time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// MetricsConfiguration holds metrics related configuration
type MetricsConfiguration struct {
	Job              string `mapstructure:"job_name" toml:"job_name"`
	Namespace        string `mapstructure:"namespace" toml:"namespace"`
	GatewayURL       string `mapstructure:"gateway_url" toml:"gateway_url"`
	GatewayAuthToken string `mapstructure:"gateway_auth_token" toml:"gateway_auth_token"`
}

// legacyEnvVariables are plain variable names accepted next to the prefixed
// ones
var legacyEnvVariables = map[string]string{
	"argo.namespace":       "ARGO_NAMESPACE",
	"argo.server":          "ARGO_SERVER",
	"argo.token":           "ARGO_TOKEN",
	"teams.webhook_url":    "MS_TEAMS_WEBHOOK",
	"incident.routing_key": "PAGERDUTY_ROUTING_KEY",
}

// LoadConfiguration loads configuration from defaultConfigFile, file set in
// configFileEnvVariableName or from env
func LoadConfiguration(configFileEnvVariableName, defaultConfigFile string) (ConfigStruct, error) {
	var config ConfigStruct

	for key, value := range reportDefaults {
		viper.SetDefault(key, value)
	}

	// env. variable holding name of configuration file
	configFile, specified := os.LookupEnv(configFileEnvVariableName)
	if specified {
		// we need to separate the directory name and filename without
		// extension
		directory, basename := filepath.Split(configFile)
		file := strings.TrimSuffix(basename, filepath.Ext(basename))
		// parse the configuration
		viper.SetConfigName(file)
		viper.AddConfigPath(directory)
	} else {
		log.Info().Str("filename", defaultConfigFile).Msg("Parsing configuration file")
		// parse the configuration
		viper.SetConfigName(defaultConfigFile)
		viper.AddConfigPath(".")
	}

	// try to read the whole configuration
	err := viper.ReadInConfig()
	if _, isNotFoundError := err.(viper.ConfigFileNotFoundError); !specified && isNotFoundError {
		// If config file is not present (which is the case inside
		// workflow pods) we need to read configuration from environment
		// variables. Viper is not smart enough to understand the
		// structure of config by itself, so we need to read fake config
		// file
		fakeTomlConfigWriter := new(bytes.Buffer)

		// zero values in fake config would shadow the defaults
		config.Report.CutoffHour = DefaultCutoffHour
		config.Report.LookbackDays = DefaultLookbackDays

		err := toml.NewEncoder(fakeTomlConfigWriter).Encode(config)
		if err != nil {
			return config, err
		}

		fakeTomlConfig := fakeTomlConfigWriter.String()

		viper.SetConfigType("toml")

		err = viper.ReadConfig(strings.NewReader(fakeTomlConfig))
		if err != nil {
			return config, err
		}
	} else if err != nil {
		// error is processed on caller side
		return config, fmt.Errorf("fatal error config file: %s", err)
	}

	// override config from env if there's variable in env
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "__"))

	for key, legacyName := range legacyEnvVariables {
		prefixed := envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
		err = viper.BindEnv(key, prefixed, legacyName)
		if err != nil {
			return config, err
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	err = loadMandatoryTemplatesFile(&config.Report)
	if err != nil {
		return config, err
	}

	err = validateReportConfiguration(&config.Report)
	if err != nil {
		return config, err
	}

	applyDefaults(&config)

	// everything's should be ok
	return config, nil
}

// loadMandatoryTemplatesFile replaces the list of mandatory templates by the
// content of YAML file when such file is configured
func loadMandatoryTemplatesFile(config *ReportConfiguration) error {
	if config.MandatoryTemplatesFile == "" {
		return nil
	}

	content, err := os.ReadFile(config.MandatoryTemplatesFile)
	if err != nil {
		return fmt.Errorf("unable to read mandatory templates file: %w", err)
	}

	var templates []types.MandatoryTemplate
	err = yaml.Unmarshal(content, &templates)
	if err != nil {
		return fmt.Errorf("unable to parse mandatory templates file: %w", err)
	}

	config.MandatoryTemplates = templates
	return nil
}

func validateReportConfiguration(config *ReportConfiguration) error {
	if config.CutoffHour < 0 || config.CutoffHour > 23 {
		return &ConfigurationError{
			Msg: fmt.Sprintf("report cutoff hour %d is out of range 0-23", config.CutoffHour),
		}
	}
	if config.LookbackDays < 0 {
		return &ConfigurationError{
			Msg: fmt.Sprintf("report lookback days %d can not be negative", config.LookbackDays),
		}
	}
	return nil
}

func applyDefaults(config *ConfigStruct) {
	if config.Argo.TokenFile == "" {
		config.Argo.TokenFile = DefaultTokenFile
	}
	if config.Argo.Timeout == 0 {
		config.Argo.Timeout = DefaultHTTPTimeout
	}
	if config.Report.Timezone == "" {
		config.Report.Timezone = DefaultTimezone
	}
	if config.Report.TemplateSuffix == "" {
		config.Report.TemplateSuffix = DefaultTemplateSuffix
	}
	if config.Teams.Timeout == 0 {
		config.Teams.Timeout = DefaultHTTPTimeout
	}
	if config.Email.Host == "" {
		config.Email.Host = DefaultEmailHost
	}
	if config.Email.Port == 0 {
		config.Email.Port = DefaultEmailPort
	}
	if config.Email.From == "" {
		config.Email.From = DefaultEmailFrom
	}
	if config.Email.Subject == "" {
		config.Email.Subject = DefaultEmailSubject
	}
	if config.Incident.URL == "" {
		config.Incident.URL = DefaultIncidentURL
	}
	if config.Incident.EntryPoint == "" {
		config.Incident.EntryPoint = DefaultEntryPoint
	}
	if config.Incident.Timeout == 0 {
		config.Incident.Timeout = DefaultHTTPTimeout
	}
}

// Environment returns name of environment derived from namespace. The
// namespace is expected to be in the form <team>-<group>-<environment>.
func Environment(namespace string) (string, error) {
	parts := strings.Split(namespace, "-")
	if len(parts) < 3 || parts[2] == "" {
		return "", &ConfigurationError{
			Msg: fmt.Sprintf("unable to derive environment from namespace %q", namespace),
		}
	}
	return parts[2], nil
}

// Environment returns name of environment the service is running in
func (config ArgoConfiguration) Environment() (string, error) {
	if config.Namespace == "" {
		return "", &ConfigurationError{Msg: "Argo namespace is not set"}
	}
	return Environment(config.Namespace)
}

// ServerURL returns base URL of Argo server for the current environment.
// Server configured without scheme gets the http:// prefix.
func (config ArgoConfiguration) ServerURL() (string, error) {
	if config.Server != "" {
		return normalizeServerURL(config.Server), nil
	}

	environment, err := config.Environment()
	if err != nil {
		return "", err
	}

	server, found := config.Servers[environment]
	if !found || server == "" {
		return "", &ConfigurationError{
			Msg: fmt.Sprintf("no Argo server configured for environment %q", environment),
		}
	}
	return normalizeServerURL(server), nil
}

func normalizeServerURL(server string) string {
	return strings.TrimSuffix(httputils.SetHTTPPrefix(strings.TrimSpace(server)), "/")
}

// GetLoggingConfiguration returns logging configuration
func GetLoggingConfiguration(config *ConfigStruct) logger.LoggingConfiguration {
	return config.Logging
}

// GetArgoConfiguration returns Argo server configuration
func GetArgoConfiguration(config *ConfigStruct) ArgoConfiguration {
	return config.Argo
}

// GetReportConfiguration returns daily report configuration
func GetReportConfiguration(config *ConfigStruct) ReportConfiguration {
	return config.Report
}

// GetTeamsConfiguration returns MS Teams webhook configuration
func GetTeamsConfiguration(config *ConfigStruct) TeamsConfiguration {
	return config.Teams
}

// GetEmailConfiguration returns email configuration
func GetEmailConfiguration(config *ConfigStruct) EmailConfiguration {
	return config.Email
}

// GetIncidentConfiguration returns incident API configuration
func GetIncidentConfiguration(config *ConfigStruct) IncidentConfiguration {
	return config.Incident
}

// GetKafkaBrokerConfiguration returns kafka broker configuration
func GetKafkaBrokerConfiguration(config *ConfigStruct) KafkaConfiguration {
	return config.Kafka
}

// GetMetricsConfiguration returns metrics configuration
func GetMetricsConfiguration(config *ConfigStruct) MetricsConfiguration {
	return config.Metrics
}
