// Copyright 2025 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slogproblem

import (
	"os"
	"strconv"
	"strings"
	"sync"

	gcppropagator "github.com/GoogleCloudPlatform/opentelemetry-operations-go/propagator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// DisablePropagatorEnv names the variable that, when truthy, stops
// EnsurePropagation from touching the global propagator.
const DisablePropagatorEnv = "SLOGPROBLEM_DISABLE_PROPAGATOR_AUTOSET"

var installPropagatorOnce sync.Once

// EnsurePropagation installs, at most once per process, a composite
// OpenTelemetry propagator that reads Google Cloud's X-Cloud-Trace-Context
// header on ingress in addition to W3C traceparent/tracestate and baggage.
// The request logging middleware calls it when it is constructed, so inbound
// requests from Google front ends correlate with Cloud Trace without extra
// wiring. Applications can replace the global propagator afterwards.
func EnsurePropagation() {
	installPropagatorOnce.Do(func() {
		if propagationDisabled() {
			return
		}
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			gcppropagator.CloudTraceOneWayPropagator{},
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})
}

func propagationDisabled() bool {
	raw := strings.TrimSpace(os.Getenv(DisablePropagatorEnv))
	if raw == "" {
		return false
	}
	disabled, err := strconv.ParseBool(raw)
	return err == nil && disabled
}
