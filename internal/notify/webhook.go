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

// Package notify posts finished batch reports to an operator webhook.
// Delivery is best effort: a failed notification is logged, never surfaced
// into the batch outcome.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"k8s.io/klog/v2"

	"github.com/echoscribe/job-dispatcher/internal/dispatch"
)

type WebhookNotifier struct {
	client *resty.Client
	url    string
}

type WebhookConfig struct {
	URL            string
	Timeout        time.Duration // Request timeout (default: 10 seconds)
	MaxRetries     int           // Maximum number of retry attempts (default: 3)
	InitialBackoff time.Duration // Initial retry wait time (default: 1 second)
	MaxBackoff     time.Duration // Maximum retry wait time (default: 10 seconds)
}

// NewWebhookNotifier creates a notifier for the configured URL. A nil
// notifier is returned when the URL is empty, and a nil notifier is safe to
// call: Notify becomes a no-op.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	if cfg.URL == "" {
		return nil
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 1 * time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.InitialBackoff).
		SetRetryMaxWaitTime(cfg.MaxBackoff)

	// retry on network errors, rate limits and server errors
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		statusCode := r.StatusCode()
		return statusCode == http.StatusTooManyRequests || statusCode >= 500
	})

	return &WebhookNotifier{
		client: client,
		url:    cfg.URL,
	}
}

// Notify posts the report to the webhook URL.
func (n *WebhookNotifier) Notify(ctx context.Context, report *dispatch.BatchReport) error {
	if n == nil {
		return nil
	}
	logger := klog.FromContext(ctx)

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("X-Dispatch-Run-ID", report.RunID).
		SetBody(report).
		Post(n.url)
	if err != nil {
		logger.Error(err, "Notify: failed to deliver batch report", "runID", report.RunID)
		return err
	}
	if resp.IsError() {
		err := fmt.Errorf("webhook returned status %d", resp.StatusCode())
		logger.Error(err, "Notify: webhook rejected batch report", "runID", report.RunID)
		return err
	}
	logger.V(2).Info("Notify: batch report delivered", "runID", report.RunID, "status", resp.StatusCode())
	return nil
}
