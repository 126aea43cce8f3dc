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

// Package sender contains the interface of report delivery channels. The
// implementations live in sub-packages, one per channel.
package sender

import "context"

// Report represents one rendered daily report
type Report struct {
	Title     string
	HTML      string
	PlainText string
}

// Sender is the interface of anything able to deliver rendered report
type Sender interface {
	Name() string
	Send(ctx context.Context, report Report) error
}
