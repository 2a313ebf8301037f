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

// The file drives one batch end to end: decode, build, launch, record.
// The defining property is per-item fault isolation: one bad message never
// blocks or corrupts the rest of the batch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/echoscribe/job-dispatcher/internal/config"
	"github.com/echoscribe/job-dispatcher/internal/metrics"
)

// Coordinator turns an ordered batch of raw messages into a BatchReport,
// issuing at most one launch per item per pass. Launch calls run on a
// bounded worker pool; the report keeps input order regardless.
type Coordinator struct {
	clusterCfg *config.ClusterConfig
	launcher   Launcher
	pool       *workerPool
}

func NewCoordinator(cc *config.ClusterConfig, launcher Launcher, maxWorkers int) *Coordinator {
	return &Coordinator{
		clusterCfg: cc,
		launcher:   launcher,
		pool:       newWorkerPool(maxWorkers),
	}
}

// Dispatch processes every message exactly once and returns a report with
// one entry per input message, in input order.
//
// A decode failure is recorded and the loop continues. A configuration
// failure aborts the whole invocation before any further control plane call,
// since every item would fail identically against an incomplete
// configuration. Cancellation stops issuing launches that have not started;
// launches already issued are not retracted.
func (c *Coordinator) Dispatch(ctx context.Context, msgs []RawMessage) (*BatchReport, error) {
	logger := klog.FromContext(ctx)

	// configuration is batch-fatal, checked before any launch is attempted
	if err := c.clusterCfg.Validate(); err != nil {
		metrics.RecordBatchProcessed("config_error")
		return nil, err
	}

	runID := uuid.NewString()
	logger = logger.WithValues("runID", runID)
	metrics.RecordBatchSize(len(msgs))

	report := &BatchReport{
		RunID: runID,
		Items: make([]ItemResult, len(msgs)),
	}

	var wg sync.WaitGroup
	for i, msg := range msgs {
		req, derr := DecodeRequest(msg)
		if derr != nil {
			logger.Info("Dispatch: skipping undecodable message", "messageID", msg.ID, "kind", derr.Kind)
			report.Items[i] = ItemResult{
				Ref:     msg.ID,
				Outcome: FailedOutcome(derr.FailureKind(), derr.Message),
			}
			metrics.RecordItemDispatched(metrics.ResultFailed, string(derr.FailureKind()))
			continue
		}

		spec, err := BuildLaunchSpec(req, c.clusterCfg)
		if err != nil {
			var confErr *config.ConfigurationError
			if errors.As(err, &confErr) {
				logger.Error(err, "Dispatch: configuration became invalid, aborting batch")
				wg.Wait()
				metrics.RecordBatchProcessed("config_error")
				return nil, err
			}
			report.Items[i] = ItemResult{
				Ref:     msg.ID,
				JobID:   req.JobID,
				Outcome: FailedOutcome(FailureInternal, err.Error()),
			}
			metrics.RecordItemDispatched(metrics.ResultFailed, string(FailureInternal))
			continue
		}

		if !c.pool.Acquire(ctx) {
			report.Items[i] = ItemResult{
				Ref:     msg.ID,
				JobID:   req.JobID,
				Outcome: FailedOutcome(FailureCanceled, "invocation canceled before launch"),
			}
			metrics.RecordItemDispatched(metrics.ResultFailed, string(FailureCanceled))
			continue
		}

		wg.Add(1)
		go func(i int, ref, jobID string, spec *LaunchSpec) {
			itemLogger := logger.WithValues("jobID", jobID)
			itemCtx := klog.NewContext(ctx, itemLogger)

			defer func() {
				if r := recover(); r != nil {
					itemLogger.Error(fmt.Errorf("%v", r), "Panic recovered in launch worker")
					report.Items[i] = ItemResult{
						Ref:     ref,
						JobID:   jobID,
						Outcome: FailedOutcome(FailureInternal, fmt.Sprintf("panic: %v", r)),
					}
				}
				c.pool.Release()
				metrics.DecActiveWorkers()
				wg.Done()
			}()

			metrics.IncActiveWorkers()
			start := time.Now()
			outcome := c.launcher.Launch(itemCtx, spec)
			metrics.RecordLaunchDuration(time.Since(start))

			if outcome.Launched {
				metrics.RecordItemDispatched(metrics.ResultLaunched, metrics.ReasonNone)
			} else {
				metrics.RecordItemDispatched(metrics.ResultFailed, string(outcome.Kind))
			}
			report.Items[i] = ItemResult{Ref: ref, JobID: jobID, Outcome: outcome}
		}(i, msg.ID, req.JobID, spec)
	}
	wg.Wait()

	launched, failed := report.Counts()
	logger.Info("Dispatch: batch complete", "total", len(msgs), "launched", launched, "failed", failed)
	metrics.RecordBatchProcessed("ok")
	return report, nil
}
