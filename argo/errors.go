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

package argo

import "fmt"

// FetchError is returned when list of workflows can not be retrieved from
// Argo server or decoded
type FetchError struct {
	Namespace string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("unable to fetch workflows from namespace %s: %v", e.Namespace, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
