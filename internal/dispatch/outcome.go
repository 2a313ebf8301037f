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

// The file defines the per-item launch outcomes and the batch report.
package dispatch

import "encoding/json"

// FailureKind classifies why a single item failed. Callers branch on the
// kind, not on the reason text.
type FailureKind string

const (
	FailureMalformedPayload FailureKind = "malformed_payload"
	FailureMissingJobID     FailureKind = "missing_job_id"
	FailureControlPlane     FailureKind = "control_plane_error"
	FailureTimeout          FailureKind = "timeout"
	FailureCanceled         FailureKind = "canceled"
	FailureInternal         FailureKind = "internal_error"
)

// LaunchOutcome is the terminal state of one item: either a launch descriptor
// returned by the control plane, or a classified failure.
type LaunchOutcome struct {
	Launched   bool        `json:"launched"`
	Descriptor string      `json:"descriptor,omitempty"`
	Kind       FailureKind `json:"failure_kind,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

func LaunchedOutcome(descriptor string) LaunchOutcome {
	return LaunchOutcome{Launched: true, Descriptor: descriptor}
}

func FailedOutcome(kind FailureKind, reason string) LaunchOutcome {
	return LaunchOutcome{Kind: kind, Reason: reason}
}

// Terminal reports whether redelivering the originating message could change
// the outcome. Decode failures and successful launches are terminal; control
// plane failures, timeouts and cancellations are worth a redelivery.
func (o LaunchOutcome) Terminal() bool {
	if o.Launched {
		return true
	}
	return o.Kind == FailureMalformedPayload || o.Kind == FailureMissingJobID
}

func (o LaunchOutcome) String() string {
	if o.Launched {
		return "launched " + o.Descriptor
	}
	return string(o.Kind) + ": " + o.Reason
}

// ItemResult pairs one input item with its outcome. Ref is the originating
// message ID; JobID is set only when the payload decoded.
type ItemResult struct {
	Ref     string        `json:"ref"`
	JobID   string        `json:"job_id,omitempty"`
	Outcome LaunchOutcome `json:"outcome"`
}

// BatchReport is the complete, order-preserving set of per-item outcomes for
// one dispatcher invocation. It is assembled solely by the Coordinator and
// returned whole.
type BatchReport struct {
	RunID string       `json:"run_id"`
	Items []ItemResult `json:"items"`
}

func (r *BatchReport) Counts() (launched, failed int) {
	for _, item := range r.Items {
		if item.Outcome.Launched {
			launched++
		} else {
			failed++
		}
	}
	return launched, failed
}

func (r *BatchReport) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
