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

package conf_test

// Benchmark for config module

import (
	"testing"

	"github.com/argo-batch-tools/argo-notification-service/conf"
)

const benchmarkConfigFile = "../tests/config1"

func mustLoadBenchmarkConfiguration(b *testing.B) conf.ConfigStruct {
	b.Setenv(conf.ConfigFileEnvVariableName, benchmarkConfigFile)

	configuration, err := conf.LoadConfiguration(conf.ConfigFileEnvVariableName, benchmarkConfigFile)
	if err != nil {
		b.Fatal(err)
	}
	return configuration
}

// BenchmarkGetArgoConfiguration measures the speed of
// GetArgoConfiguration function from the conf module.
func BenchmarkGetArgoConfiguration(b *testing.B) {
	configuration := mustLoadBenchmarkConfiguration(b)

	for i := 0; i < b.N; i++ {
		m := conf.GetArgoConfiguration(&configuration)

		b.StopTimer()
		if m.Namespace != "team-batch-dev" {
			b.Fatal("Wrong configuration: namespace = '" + m.Namespace + "'")
		}
		b.StartTimer()
	}
}

// BenchmarkGetLoggingConfiguration measures the speed of
// GetLoggingConfiguration function from the conf module.
func BenchmarkGetLoggingConfiguration(b *testing.B) {
	configuration := mustLoadBenchmarkConfiguration(b)

	for i := 0; i < b.N; i++ {
		m := conf.GetLoggingConfiguration(&configuration)

		b.StopTimer()
		if !m.Debug {
			b.Fatal("Wrong configuration: debug is set to false")
		}
		b.StartTimer()
	}
}

// BenchmarkServerURL measures the speed of server URL selection
func BenchmarkServerURL(b *testing.B) {
	configuration := mustLoadBenchmarkConfiguration(b)
	argo := conf.GetArgoConfiguration(&configuration)

	for i := 0; i < b.N; i++ {
		url, err := argo.ServerURL()

		b.StopTimer()
		if err != nil || url != "https://argo-dev.example.com" {
			b.Fatal("Wrong server URL: '" + url + "'")
		}
		b.StartTimer()
	}
}
