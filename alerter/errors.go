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

package alerter

import "fmt"

// InvalidContextError is returned when workflow context passed to the alert
// command can not be interpreted
type InvalidContextError struct {
	Field string
	Err   error
}

func (e *InvalidContextError) Error() string {
	return fmt.Sprintf("invalid value of %s: %v", e.Field, e.Err)
}

func (e *InvalidContextError) Unwrap() error {
	return e.Err
}

// DispatchError is returned when alert event could not be produced
type DispatchError struct {
	DedupKey string
	Producer string
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("unable to produce event %s via %s: %v", e.DedupKey, e.Producer, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
