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

package utils

import (
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// HTTPStatusError is returned when the remote side responds with status code
// outside of the 2xx range
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected response status code from %s - %s", e.URL, e.Status)
}

// SendRequest sends the given request using the given client, reads the body
// and handles related errors. Any status code outside of 2xx range is
// reported as HTTPStatusError.
func SendRequest(client *http.Client, req *http.Request) ([]byte, error) {
	response, err := client.Do(req)
	if err != nil {
		log.Error().Msgf("Got error while making the HTTP request - %s", err.Error())
		return nil, err
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			log.Error().Msgf("Got error while closing the response body - %s", closeErr.Error())
		}
	}()

	// Read body from response
	body, err := io.ReadAll(response.Body)
	if err != nil {
		log.Error().Msgf("Got error while reading the response's body - %s", err.Error())
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		err := &HTTPStatusError{
			URL:        req.URL.Redacted(),
			StatusCode: response.StatusCode,
			Status:     response.Status,
			Body:       body,
		}
		log.Error().Err(err).Bytes("body", body).Msg("Got unexpected response status code")
		return nil, err
	}

	return body, nil
}
