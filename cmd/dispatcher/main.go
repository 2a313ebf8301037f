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

// The entry point for the queue-driven dispatcher process.

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/echoscribe/job-dispatcher/internal/config"
	"github.com/echoscribe/job-dispatcher/internal/dispatch"
	"github.com/echoscribe/job-dispatcher/internal/notify"
	"github.com/echoscribe/job-dispatcher/internal/poller"
	"github.com/echoscribe/job-dispatcher/internal/queue"
	"github.com/echoscribe/job-dispatcher/internal/statestore"
	uredis "github.com/echoscribe/job-dispatcher/internal/util/redis"
)

func main() {
	// initialize klog
	klog.InitFlags(nil)
	defer klog.Flush()

	// load configuration & logging setup
	cfg := config.NewConfig()
	fs := flag.NewFlagSet("job-dispatcher", flag.ExitOnError)

	cfgFilePath := fs.String("config", "cmd/dispatcher/config.yaml", "Path to configuration file")
	klog.InitFlags(fs)
	fs.Parse(os.Args[1:])

	if err := cfg.LoadFromYAML(*cfgFilePath); err != nil {
		klog.InfoS("Failed to load config file, using defaults", "path", *cfgFilePath)
	}
	cfg.ApplyEnvOverrides()

	// configuration faults are deployment faults: fail here, not mid-batch
	if err := cfg.Validate(); err != nil {
		klog.ErrorS(err, "Invalid configuration")
		os.Exit(1)
	}
	if cfg.QueueURL == "" {
		klog.ErrorS(nil, "Invalid configuration: queue_url is required for the dispatcher process")
		os.Exit(1)
	}

	// setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 2)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signalChan
		klog.InfoS("Received shutdown signal, starting graceful shutdown...", "signal", sig)
		cancel() // stop polling loop by cancelling context

		sig = <-signalChan
		klog.InfoS("Received second shutdown signal, forcing shutdown...", "signal", sig)
		os.Exit(1) // force exit immediately for second signal
	}()

	// setup metrics and health checks endpoints (background goroutine)
	go func() {
		m := http.NewServeMux()

		m.Handle("/metrics", promhttp.Handler())
		m.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		klog.InfoS("Starting observability server", "address", cfg.MetricsAddress)
		if err := http.ListenAndServe(cfg.MetricsAddress, m); err != nil {
			klog.ErrorS(err, "Observability server failed")
		}
	}()

	// initialize the queue source
	source, err := queue.New(ctx, queue.Config{
		QueueURL:        cfg.QueueURL,
		Region:          cfg.Cluster.Region,
		Endpoint:        cfg.Cluster.Endpoint,
		AccessKeyID:     cfg.Cluster.AccessKeyID,
		SecretAccessKey: cfg.Cluster.SecretAccessKey,
		WaitTime:        cfg.QueueWaitTime.Std(),
	})
	if err != nil {
		klog.ErrorS(err, "Failed to create queue source")
		os.Exit(1)
	}

	// initialize the control plane launcher and the coordinator
	launcher, err := dispatch.NewECSLauncher(ctx, &cfg.Cluster, cfg.LaunchTimeout.Std())
	if err != nil {
		klog.ErrorS(err, "Failed to create task launcher")
		os.Exit(1)
	}
	coordinator := dispatch.NewCoordinator(&cfg.Cluster, launcher, cfg.MaxWorkers)

	// launch record store is optional
	var recorder poller.Recorder
	if cfg.RedisURL != "" {
		store, err := statestore.NewRedisLaunchStore(ctx, &uredis.RedisClientConfig{
			Url:         cfg.RedisURL,
			ServiceName: "job-dispatcher",
		}, cfg.LaunchRecordTTL.Std())
		if err != nil {
			klog.ErrorS(err, "Failed to create launch record store")
			os.Exit(1)
		}
		defer store.Close()
		recorder = store
	}

	notifier := notify.NewWebhookNotifier(notify.WebhookConfig{URL: cfg.ReportWebhookURL})

	// start the main polling loop
	p := poller.NewPoller(cfg, poller.NewPollerClients(source, coordinator, recorder, notifier))
	klog.InfoS("Dispatcher polling loop starting", "pollInterval", cfg.PollInterval.String())
	if err := p.RunPollingLoop(ctx); err != nil {
		klog.ErrorS(err, "Dispatcher polling loop exited with error")
		os.Exit(1)
	}
	klog.InfoS("Dispatcher polling loop exited gracefully")
}
