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

// The file provides HTTP handlers for synchronous batch dispatch and launch
// record lookup. A dispatched batch returns the full per-item report; only a
// batch-fatal configuration error fails the whole request.
package dispatchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/echoscribe/job-dispatcher/internal/apiserver/common"
	"github.com/echoscribe/job-dispatcher/internal/config"
	"github.com/echoscribe/job-dispatcher/internal/dispatch"
	"github.com/echoscribe/job-dispatcher/internal/statestore"
	"github.com/echoscribe/job-dispatcher/internal/util/logging"
)

const (
	DispatchPath = "/v1/dispatch"
	LaunchPath   = "/v1/launches/{job_id}"

	maxBatchMessages = 100
)

// Dispatcher is the batch coordination capability the handler exposes.
type Dispatcher interface {
	Dispatch(ctx context.Context, msgs []dispatch.RawMessage) (*dispatch.BatchReport, error)
}

// RecordStore reads and writes stored launch records.
type RecordStore interface {
	Get(ctx context.Context, jobID string) (*statestore.LaunchRecord, error)
	RecordBatch(ctx context.Context, report *dispatch.BatchReport)
}

type DispatchApiHandler struct {
	dispatcher Dispatcher
	records    RecordStore
}

// NewDispatchApiHandler creates the handler. records may be nil when no
// state store is configured; record lookups then answer 503.
func NewDispatchApiHandler(dispatcher Dispatcher, records RecordStore) *DispatchApiHandler {
	return &DispatchApiHandler{
		dispatcher: dispatcher,
		records:    records,
	}
}

func (c *DispatchApiHandler) GetRoutes() []common.Route {
	return []common.Route{
		{
			Method:      http.MethodPost,
			Pattern:     DispatchPath,
			HandlerFunc: c.DispatchBatch,
		},
		{
			Method:      http.MethodGet,
			Pattern:     LaunchPath,
			HandlerFunc: c.GetLaunchRecord,
		},
	}
}

// DispatchRequest is the synchronous trigger body: one opaque payload per
// item, processed independently.
type DispatchRequest struct {
	Messages []json.RawMessage `json:"messages"`
}

func (c *DispatchApiHandler) DispatchBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.GetRequestLogger(r)

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(ctx, w, http.StatusBadRequest, "request body is not valid JSON: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		common.WriteError(ctx, w, http.StatusBadRequest, "messages is empty")
		return
	}
	if len(req.Messages) > maxBatchMessages {
		common.WriteError(ctx, w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch exceeds %d messages", maxBatchMessages))
		return
	}

	msgs := make([]dispatch.RawMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = dispatch.RawMessage{
			ID:   fmt.Sprintf("http-%d", i),
			Body: string(m),
		}
	}

	report, err := c.dispatcher.Dispatch(ctx, msgs)
	if err != nil {
		var confErr *config.ConfigurationError
		if errors.As(err, &confErr) {
			logger.Error(err, "DispatchBatch: invocation failed on configuration")
			common.WriteError(ctx, w, http.StatusInternalServerError, err.Error())
			return
		}
		logger.Error(err, "DispatchBatch: invocation failed")
		common.WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	if c.records != nil {
		c.records.RecordBatch(ctx, report)
	}
	common.WriteJSON(ctx, w, http.StatusOK, report)
}

func (c *DispatchApiHandler) GetLaunchRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if c.records == nil {
		common.WriteError(ctx, w, http.StatusServiceUnavailable, "launch record store is not configured")
		return
	}
	jobID := r.PathValue("job_id")
	if jobID == "" {
		common.WriteError(ctx, w, http.StatusBadRequest, "job_id is empty")
		return
	}

	record, err := c.records.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			common.WriteError(ctx, w, http.StatusNotFound, "no launch record for job "+jobID)
			return
		}
		common.WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	common.WriteJSON(ctx, w, http.StatusOK, record)
}
