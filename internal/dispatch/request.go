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

// The file implements decoding of raw queue messages into job launch
// requests. Decoding is a pure function of the payload: a malformed message
// is rejected without side effects and without touching the control plane.
package dispatch

import (
	"encoding/json"
	"fmt"
)

// RawMessage is one opaque queue record. ID is the queue's message
// identifier, kept only for correlation; acknowledgment bookkeeping stays
// with the queue collaborator.
type RawMessage struct {
	ID   string
	Body string
}

// JobLaunchRequest is a validated instruction to start one unit of external
// computation. JobID is the unique correlation key for exactly one launch
// attempt and is never empty.
type JobLaunchRequest struct {
	JobID    string            `json:"job_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type DecodeErrorKind string

const (
	DecodeMalformedPayload DecodeErrorKind = "malformed_payload"
	DecodeMissingJobID     DecodeErrorKind = "missing_job_id"
)

type DecodeError struct {
	Kind    DecodeErrorKind
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed (%s): %s", e.Kind, e.Message)
}

// FailureKind maps the decode error onto the per-item outcome taxonomy.
func (e *DecodeError) FailureKind() FailureKind {
	if e.Kind == DecodeMissingJobID {
		return FailureMissingJobID
	}
	return FailureMalformedPayload
}

// DecodeRequest parses one raw message body into a JobLaunchRequest.
// Unknown fields are ignored; a type mismatch on a known field or a
// non-object payload is malformed; an absent or empty job_id is its own
// error kind since the message is structurally fine but unlaunchable.
func DecodeRequest(msg RawMessage) (*JobLaunchRequest, *DecodeError) {
	var req JobLaunchRequest
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
		return nil, &DecodeError{
			Kind:    DecodeMalformedPayload,
			Message: err.Error(),
		}
	}
	if req.JobID == "" {
		return nil, &DecodeError{
			Kind:    DecodeMissingJobID,
			Message: "payload has no job_id",
		}
	}
	return &req, nil
}
