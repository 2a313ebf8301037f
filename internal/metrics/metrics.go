/*
Copyright 2026 The EchoScribe Authors

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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// labels definition
const (
	// result labels
	ResultLaunched = "launched"
	ResultFailed   = "failed"

	// reason labels mirror dispatch.FailureKind values
	ReasonNone = "none"
)

var (
	// per-item dispatch outcomes
	itemsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_items_total",
			Help: "Total number of batch items dispatched, by result and failure reason",
		}, []string{"result", "reason"},
	)

	// duration of a single control plane launch call
	launchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "dispatch_launch_duration_seconds",
			Help: "Duration of a single control plane launch call in seconds",
			// Bucket 1: ~ 0.05s
			// Bucket 2: ~ 0.1s
			// ...
			// Bucket 12: ~ 102.4s
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// batches processed so far
	batchesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_batches_total",
			Help: "Total number of batches processed, by result",
		}, []string{"result"},
	)

	// size of received batches
	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "dispatch_batch_size",
			Help: "Number of messages per dispatched batch",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	// current number of in-flight launch workers
	activeWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_active_workers",
			Help: "Current number of in-flight launch workers",
		},
	)
)

func init() {
	prometheus.MustRegister(itemsDispatched)
	prometheus.MustRegister(launchDuration)
	prometheus.MustRegister(batchesProcessed)
	prometheus.MustRegister(batchSize)
	prometheus.MustRegister(activeWorkers)
}

// Recorder funcs

// RecordItemDispatched increments the per-item outcome count.
func RecordItemDispatched(result string, reason string) {
	itemsDispatched.WithLabelValues(result, reason).Inc()
}

// RecordLaunchDuration observes the time taken by one launch call.
func RecordLaunchDuration(duration time.Duration) {
	launchDuration.Observe(duration.Seconds())
}

// RecordBatchProcessed increments the batch count.
func RecordBatchProcessed(result string) {
	batchesProcessed.WithLabelValues(result).Inc()
}

// RecordBatchSize observes the number of messages in a batch.
func RecordBatchSize(size int) {
	batchSize.Observe(float64(size))
}

// IncActiveWorkers increments the gauge for in-flight workers.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the gauge for in-flight workers.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
