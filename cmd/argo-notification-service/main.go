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

// Entry point to the Argo notification service.
//
// The service implements two operational flows around Argo Workflows
// cluster. The "report" command runs as a cron job every morning, it reads
// all workflows started since the previous evening from Argo server and
// posts an HTML digest to MS Teams channel and/or sends it by e-mail. The
// digest also lists mandatory workflows that did not run at all.
//
// The "alert" command is run from the exit handler of every workflow. Argo
// substitutes the workflow context (status, failed nodes, labels) into its
// flags and the command sends one incident event per failed node to the
// incident management system, optionally mirroring the events to Kafka.
//
// Both flows push their metrics to Prometheus push gateway when it is
// configured.
package main

import (
	"os"
	_ "time/tzdata"
)

// Exit statuses
const (
	// ExitStatusOK means that the run finished without errors
	ExitStatusOK = iota
	// ExitStatusConfiguration is an error code related to program configuration
	ExitStatusConfiguration
	// ExitStatusFetchError is returned when workflows can not be read from Argo server
	ExitStatusFetchError
	// ExitStatusDeliveryError is returned when report could not be delivered
	ExitStatusDeliveryError
	// ExitStatusAlertError is returned when any alert event could not be produced
	ExitStatusAlertError
)

func main() {
	os.Exit(execute(os.Args[1:]))
}
