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

// The entry point for the synchronous dispatch API server.
// It handles server initialization, configuration, and graceful shutdown.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/echoscribe/job-dispatcher/internal/apiserver/dispatchapi"
	"github.com/echoscribe/job-dispatcher/internal/apiserver/server"
	"github.com/echoscribe/job-dispatcher/internal/config"
	"github.com/echoscribe/job-dispatcher/internal/dispatch"
	"github.com/echoscribe/job-dispatcher/internal/statestore"
	uredis "github.com/echoscribe/job-dispatcher/internal/util/redis"
)

func main() {
	cfg := config.NewConfig()

	// load and validate config
	fs := flag.NewFlagSet("job-dispatcher-apiserver", flag.ContinueOnError)
	cfgFilePath := fs.String("config", "cmd/apiserver/config.yaml", "Path to configuration file")
	klog.InitFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		klog.Fatalf("failed to parse flags: %v", err)
	}
	if err := cfg.LoadFromYAML(*cfgFilePath); err != nil {
		klog.InfoS("Failed to load config file, using defaults", "path", *cfgFilePath)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		klog.Fatalf("failed to validate config: %v", err)
	}

	// make sure to flush logs before exiting
	defer klog.Flush()

	// graceful shutdown
	parentCtx := context.Background()
	c := make(chan os.Signal, 2)
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()

	logger := klog.FromContext(ctx)
	logger.Info("starting dispatch api server")

	launcher, err := dispatch.NewECSLauncher(ctx, &cfg.Cluster, cfg.LaunchTimeout.Std())
	if err != nil {
		logger.Error(err, "failed to create task launcher")
		return
	}
	coordinator := dispatch.NewCoordinator(&cfg.Cluster, launcher, cfg.MaxWorkers)

	var records dispatchapi.RecordStore
	if cfg.RedisURL != "" {
		store, err := statestore.NewRedisLaunchStore(ctx, &uredis.RedisClientConfig{
			Url:         cfg.RedisURL,
			ServiceName: "job-dispatcher-apiserver",
		}, cfg.LaunchRecordTTL.Std())
		if err != nil {
			logger.Error(err, "failed to create launch record store")
			return
		}
		defer store.Close()
		records = store
	}

	srv, err := server.New(cfg.ListenAddress, dispatchapi.NewDispatchApiHandler(coordinator, records))
	if err != nil {
		logger.Error(err, "failed to create api server")
		return
	}
	if err := srv.Start(ctx); err != nil {
		logger.Error(err, "failed to start api server")
		return
	}
	logger.Info("api server is terminated")
}
