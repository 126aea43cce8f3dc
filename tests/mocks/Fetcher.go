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

package mocks

import (
	context "context"

	types "github.com/argo-batch-tools/argo-notification-service/types"
	mock "github.com/stretchr/testify/mock"
)

// Fetcher is a mock type for the Fetcher type
type Fetcher struct {
	mock.Mock
}

// ListWorkflows provides a mock function with given fields: ctx, namespace
func (_m *Fetcher) ListWorkflows(ctx context.Context, namespace string) ([]types.RawWorkflow, error) {
	ret := _m.Called(ctx, namespace)

	var r0 []types.RawWorkflow
	if rf, ok := ret.Get(0).(func(context.Context, string) []types.RawWorkflow); ok {
		r0 = rf(ctx, namespace)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]types.RawWorkflow)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, namespace)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
