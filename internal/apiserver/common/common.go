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

// The file provides shared route registration and response helpers for the
// API handlers.
package common

import (
	"context"
	"encoding/json"
	"net/http"

	"k8s.io/klog/v2"
)

type Route struct {
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

type ApiHandler interface {
	GetRoutes() []Route
}

// RegisterHandler registers every route of the handler on the mux using
// method-qualified patterns.
func RegisterHandler(mux *http.ServeMux, handler ApiHandler) {
	for _, route := range handler.GetRoutes() {
		mux.HandleFunc(route.Method+" "+route.Pattern, route.HandlerFunc)
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(ctx context.Context, w http.ResponseWriter, statusCode int, body any) {
	logger := klog.FromContext(ctx)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error(err, "failed to encode response body")
	}
}

func WriteError(ctx context.Context, w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(ctx, w, statusCode, ErrorResponse{Error: message})
}
