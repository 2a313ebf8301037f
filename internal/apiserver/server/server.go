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

// The file assembles the API server: route registration, middleware and
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/echoscribe/job-dispatcher/internal/apiserver/common"
	"github.com/echoscribe/job-dispatcher/internal/apiserver/health"
	"github.com/echoscribe/job-dispatcher/internal/apiserver/metrics"
	"github.com/echoscribe/job-dispatcher/internal/apiserver/middleware"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	httpServer *http.Server
}

// New builds the server with the standard health and metrics handlers plus
// the given API handlers, all behind the request middleware.
func New(listenAddress string, handlers ...common.ApiHandler) (*Server, error) {
	mux := http.NewServeMux()
	common.RegisterHandler(mux, health.NewHealthApiHandler())
	common.RegisterHandler(mux, metrics.NewMetricsApiHandler())
	for _, h := range handlers {
		common.RegisterHandler(mux, h)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              listenAddress,
			Handler:           middleware.RequestMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	logger := klog.FromContext(ctx)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down api server")
	return s.httpServer.Shutdown(shutdownCtx)
}
