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

// this file contains the polling loop that feeds queue batches into the
// dispatcher and acknowledges messages based on their outcome.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/echoscribe/job-dispatcher/internal/config"
	"github.com/echoscribe/job-dispatcher/internal/dispatch"
	"github.com/echoscribe/job-dispatcher/internal/queue"
)

// MessageSource is the queue capability the poller consumes.
type MessageSource interface {
	Receive(ctx context.Context, max int) ([]queue.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Dispatcher turns one batch of raw messages into a report.
type Dispatcher interface {
	Dispatch(ctx context.Context, msgs []dispatch.RawMessage) (*dispatch.BatchReport, error)
}

// Recorder persists per-job outcomes after a batch completes.
type Recorder interface {
	RecordBatch(ctx context.Context, report *dispatch.BatchReport)
}

// Notifier delivers the finished report to an operator endpoint.
type Notifier interface {
	Notify(ctx context.Context, report *dispatch.BatchReport) error
}

type PollerClients struct {
	source     MessageSource
	dispatcher Dispatcher
	recorder   Recorder
	notifier   Notifier
}

// NewPollerClients bundles the poller's collaborators. recorder and notifier
// may be nil; source and dispatcher are required.
func NewPollerClients(source MessageSource, dispatcher Dispatcher, recorder Recorder, notifier Notifier) PollerClients {
	return PollerClients{
		source:     source,
		dispatcher: dispatcher,
		recorder:   recorder,
		notifier:   notifier,
	}
}

type Poller struct {
	cfg     *config.DispatcherConfig
	clients PollerClients
}

func NewPoller(cfg *config.DispatcherConfig, clients PollerClients) *Poller {
	return &Poller{
		cfg:     cfg,
		clients: clients,
	}
}

// pre-flight check
func (p *Poller) prepare(ctx context.Context) error {
	logger := klog.FromContext(ctx)

	if p.clients.source == nil || p.clients.dispatcher == nil {
		return fmt.Errorf("critical clients are missing in Poller")
	}
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	logger.Info("Poller pre-flight check done", "batchSize", p.cfg.QueueBatchSize)
	return nil
}

// RunPollingLoop runs the main polling loop: receive a batch, dispatch it,
// acknowledge terminal items. A configuration error is fatal and stops the
// loop, since every subsequent batch would fail the same way.
func (p *Poller) RunPollingLoop(ctx context.Context) error {
	if err := p.prepare(ctx); err != nil {
		return fmt.Errorf("failed to prepare poller: %w", err)
	}

	logger := klog.FromContext(ctx)
	logger.Info(
		"Polling loop started",
		"pollInterval", p.cfg.PollInterval,
		"batchSize", p.cfg.QueueBatchSize,
	)
	ticker := time.NewTicker(p.cfg.PollInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down polling loop")
			return nil
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				var confErr *config.ConfigurationError
				if errors.As(err, &confErr) {
					return err
				}
				logger.Error(err, "Polling iteration failed")
			}
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	logger := klog.FromContext(ctx)

	received, err := p.clients.source.Receive(ctx, p.cfg.QueueBatchSize)
	if err != nil {
		return fmt.Errorf("failed to receive batch: %w", err)
	}
	if len(received) == 0 {
		return nil
	}

	msgs := make([]dispatch.RawMessage, len(received))
	for i, m := range received {
		msgs[i] = m.RawMessage
	}

	report, err := p.clients.dispatcher.Dispatch(ctx, msgs)
	if err != nil {
		return err
	}

	if p.clients.recorder != nil {
		p.clients.recorder.RecordBatch(ctx, report)
	}

	// acknowledge messages whose outcome a redelivery cannot change;
	// control plane failures stay queued for the next visibility cycle
	acked := 0
	for i, item := range report.Items {
		if !item.Outcome.Terminal() {
			continue
		}
		if err := p.clients.source.Delete(ctx, received[i].ReceiptHandle); err != nil {
			logger.Error(err, "Failed to acknowledge message", "messageID", received[i].ID)
			continue
		}
		acked++
	}

	if p.clients.notifier != nil {
		if err := p.clients.notifier.Notify(ctx, report); err != nil {
			logger.Error(err, "Failed to notify batch report", "runID", report.RunID)
		}
	}

	launched, failed := report.Counts()
	logger.Info("Batch processed",
		"runID", report.RunID,
		"total", len(report.Items),
		"launched", launched,
		"failed", failed,
		"acknowledged", acked,
	)
	return nil
}
