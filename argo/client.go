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

// Package argo contains a client for the REST API of Argo Workflows server.
// Only listing of workflows in one namespace is needed by the daily report.
package argo

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/argo-batch-tools/argo-notification-service/conf"
	"github.com/argo-batch-tools/argo-notification-service/types"
	"github.com/argo-batch-tools/argo-notification-service/utils"
)

const (
	workflowsEndpoint = "%s/api/v1/workflows/%s"
	bearerPrefix      = "Bearer "
)

// Fetcher is the interface of anything able to list workflows of one
// namespace
type Fetcher interface {
	ListWorkflows(ctx context.Context, namespace string) ([]types.RawWorkflow, error)
}

// Client is an implementation of Fetcher using Argo server REST API
type Client struct {
	ServerURL  string
	HTTPClient *http.Client
}

// New constructs a new instance of Client for the given configuration. The
// access token is read once, when the client is created.
func New(config *conf.ArgoConfiguration) (*Client, error) {
	serverURL, err := config.ServerURL()
	if err != nil {
		return nil, err
	}

	token, err := ReadToken(config.TokenFile, config.Token)
	if err != nil {
		return nil, err
	}

	// #nosec G402
	base := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: config.InsecureSkipVerify},
	}

	client := &Client{
		ServerURL: serverURL,
		HTTPClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{
					AccessToken: token,
					TokenType:   "Bearer",
				}),
				Base: base,
			},
		},
	}

	log.Info().
		Str("server", client.ServerURL).
		Bool("insecure", config.InsecureSkipVerify).
		Msg("Argo client created")
	return client, nil
}

// ReadToken returns bearer token stored in tokenFile when such file exists,
// fallback otherwise. Leading "Bearer " is stripped.
func ReadToken(tokenFile, fallback string) (string, error) {
	token := fallback

	content, err := os.ReadFile(tokenFile)
	switch {
	case err == nil:
		log.Debug().Str("file", tokenFile).Msg("Using token from file")
		token = string(content)
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("file", tokenFile).Msg("Token file does not exist, using configured token")
	default:
		return "", &conf.ConfigurationError{
			Msg: fmt.Sprintf("unable to read token file %s: %v", tokenFile, err),
		}
	}

	token = strings.TrimPrefix(strings.TrimSpace(token), bearerPrefix)
	if token == "" {
		return "", &conf.ConfigurationError{
			Msg: "Argo token is not set and token file " + tokenFile + " does not exist",
		}
	}
	return token, nil
}

// ListWorkflows returns all workflows recorded in the given namespace
func (client *Client) ListWorkflows(ctx context.Context, namespace string) ([]types.RawWorkflow, error) {
	url := fmt.Sprintf(workflowsEndpoint, client.ServerURL, namespace)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Error setting up HTTP GET request")
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := utils.SendRequest(client.HTTPClient, req)
	if err != nil {
		return nil, &FetchError{Namespace: namespace, Err: err}
	}

	var list types.WorkflowList
	if err := json.Unmarshal(body, &list); err != nil {
		log.Error().Err(err).Msg("Unable to decode list of workflows")
		return nil, &FetchError{Namespace: namespace, Err: err}
	}

	log.Info().
		Str("namespace", namespace).
		Int("workflows", len(list.Items)).
		Msg("Workflows fetched")
	return list.Items, nil
}
