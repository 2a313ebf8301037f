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

// The file contains unit tests for raw message decoding.
package dispatch

import (
	"reflect"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantJobID string
		wantMeta  map[string]string
		wantKind  DecodeErrorKind
	}{
		{
			name:      "valid payload",
			body:      `{"job_id": "job-123"}`,
			wantJobID: "job-123",
		},
		{
			name:      "valid payload with metadata",
			body:      `{"job_id": "job-123", "metadata": {"source": "upload"}}`,
			wantJobID: "job-123",
			wantMeta:  map[string]string{"source": "upload"},
		},
		{
			name:      "unknown fields ignored",
			body:      `{"job_id": "job-123", "priority": 3, "extra": {"a": 1}}`,
			wantJobID: "job-123",
		},
		{
			name:     "not JSON",
			body:     `this is not json`,
			wantKind: DecodeMalformedPayload,
		},
		{
			name:     "JSON array instead of object",
			body:     `["job-123"]`,
			wantKind: DecodeMalformedPayload,
		},
		{
			name:     "job_id has wrong type",
			body:     `{"job_id": 42}`,
			wantKind: DecodeMalformedPayload,
		},
		{
			name:     "missing job_id",
			body:     `{"metadata": {"source": "upload"}}`,
			wantKind: DecodeMissingJobID,
		},
		{
			name:     "empty job_id",
			body:     `{"job_id": ""}`,
			wantKind: DecodeMissingJobID,
		},
		{
			name:     "empty body",
			body:     ``,
			wantKind: DecodeMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, derr := DecodeRequest(RawMessage{ID: "msg-1", Body: tt.body})

			if tt.wantKind != "" {
				if derr == nil {
					t.Fatalf("expected decode error %q, got request %+v", tt.wantKind, req)
				}
				if derr.Kind != tt.wantKind {
					t.Errorf("expected error kind %q, got %q", tt.wantKind, derr.Kind)
				}
				return
			}

			if derr != nil {
				t.Fatalf("unexpected decode error: %v", derr)
			}
			if req.JobID != tt.wantJobID {
				t.Errorf("expected job ID %q, got %q", tt.wantJobID, req.JobID)
			}
			if tt.wantMeta != nil && !reflect.DeepEqual(req.Metadata, tt.wantMeta) {
				t.Errorf("expected metadata %v, got %v", tt.wantMeta, req.Metadata)
			}
		})
	}
}

// decoding is a pure function of the payload
func TestDecodeRequestIdempotent(t *testing.T) {
	msg := RawMessage{ID: "msg-1", Body: `{"job_id": "job-123", "metadata": {"k": "v"}}`}

	first, derr := DecodeRequest(msg)
	if derr != nil {
		t.Fatalf("unexpected decode error: %v", derr)
	}
	second, derr := DecodeRequest(msg)
	if derr != nil {
		t.Fatalf("unexpected decode error: %v", derr)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("decoding the same message twice differed: %+v vs %+v", first, second)
	}
}

func TestDecodeErrorFailureKind(t *testing.T) {
	malformed := &DecodeError{Kind: DecodeMalformedPayload, Message: "x"}
	if malformed.FailureKind() != FailureMalformedPayload {
		t.Errorf("expected %q, got %q", FailureMalformedPayload, malformed.FailureKind())
	}
	missing := &DecodeError{Kind: DecodeMissingJobID, Message: "x"}
	if missing.FailureKind() != FailureMissingJobID {
		t.Errorf("expected %q, got %q", FailureMissingJobID, missing.FailureKind())
	}
}
