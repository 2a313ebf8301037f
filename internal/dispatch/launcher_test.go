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

// The file contains unit tests for the ECS task launcher.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

type mockECSClient struct {
	calls    int
	lastIn   *ecs.RunTaskInput
	runErr   error
	failures []types.Failure
	taskArn  string
	delay    time.Duration
}

func (m *mockECSClient) RunTask(ctx context.Context, params *ecs.RunTaskInput, _ ...func(*ecs.Options)) (*ecs.RunTaskOutput, error) {
	m.calls++
	m.lastIn = params
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.runErr != nil {
		return nil, m.runErr
	}
	if len(m.failures) > 0 {
		return &ecs.RunTaskOutput{Failures: m.failures}, nil
	}
	return &ecs.RunTaskOutput{
		Tasks: []types.Task{{TaskArn: aws.String(m.taskArn)}},
	}, nil
}

func testLaunchSpec() *LaunchSpec {
	return &LaunchSpec{
		TaskDefinition: "audio-analysis-task",
		Cluster:        "audio-analysis",
		ContainerName:  "analyzer",
		LaunchType:     "FARGATE",
		Subnets:        []string{"subnet-1"},
		SecurityGroups: []string{"sg-1"},
		AssignPublicIP: true,
		Env: map[string]string{
			EnvJobID: "job-123",
			"B_KEY":  "b",
			"A_KEY":  "a",
		},
	}
}

func TestLaunchSuccess(t *testing.T) {
	mock := &mockECSClient{taskArn: "arn:aws:ecs:task/abc"}
	launcher := &ECSLauncher{ecsClient: mock, timeout: time.Second}

	outcome := launcher.Launch(context.Background(), testLaunchSpec())

	if !outcome.Launched {
		t.Fatalf("expected launched outcome, got %v", outcome)
	}
	if outcome.Descriptor != "arn:aws:ecs:task/abc" {
		t.Errorf("wrong descriptor: %q", outcome.Descriptor)
	}
	if mock.calls != 1 {
		t.Errorf("expected exactly one RunTask call, got %d", mock.calls)
	}
}

func TestLaunchBuildsRunTaskInput(t *testing.T) {
	mock := &mockECSClient{taskArn: "arn:x"}
	launcher := &ECSLauncher{ecsClient: mock, timeout: time.Second}

	launcher.Launch(context.Background(), testLaunchSpec())

	in := mock.lastIn
	if in == nil {
		t.Fatal("RunTask was not called")
	}
	if aws.ToString(in.Cluster) != "audio-analysis" {
		t.Errorf("wrong cluster: %q", aws.ToString(in.Cluster))
	}
	if aws.ToString(in.TaskDefinition) != "audio-analysis-task" {
		t.Errorf("wrong task definition: %q", aws.ToString(in.TaskDefinition))
	}
	if in.LaunchType != types.LaunchTypeFargate {
		t.Errorf("wrong launch type: %q", in.LaunchType)
	}
	if aws.ToInt32(in.Count) != 1 {
		t.Errorf("expected count 1, got %d", aws.ToInt32(in.Count))
	}

	vpc := in.NetworkConfiguration.AwsvpcConfiguration
	if len(vpc.Subnets) != 1 || vpc.Subnets[0] != "subnet-1" {
		t.Errorf("wrong subnets: %v", vpc.Subnets)
	}
	if vpc.AssignPublicIp != types.AssignPublicIpEnabled {
		t.Errorf("expected public IP enabled, got %q", vpc.AssignPublicIp)
	}

	overrides := in.Overrides.ContainerOverrides
	if len(overrides) != 1 || aws.ToString(overrides[0].Name) != "analyzer" {
		t.Fatalf("wrong container overrides: %v", overrides)
	}
	env := overrides[0].Environment
	// sorted key order: A_KEY, B_KEY, JOB_ID
	if len(env) != 3 {
		t.Fatalf("expected 3 env overrides, got %d", len(env))
	}
	if aws.ToString(env[0].Name) != "A_KEY" || aws.ToString(env[2].Name) != EnvJobID {
		t.Errorf("env overrides not in sorted order: %v", env)
	}
	if aws.ToString(env[2].Value) != "job-123" {
		t.Errorf("expected %s=job-123, got %q", EnvJobID, aws.ToString(env[2].Value))
	}
}

func TestLaunchControlPlaneError(t *testing.T) {
	mock := &mockECSClient{runErr: errors.New("AccessDeniedException: not authorized")}
	launcher := &ECSLauncher{ecsClient: mock, timeout: time.Second}

	outcome := launcher.Launch(context.Background(), testLaunchSpec())

	if outcome.Launched {
		t.Fatal("expected failed outcome")
	}
	if outcome.Kind != FailureControlPlane {
		t.Errorf("expected kind %q, got %q", FailureControlPlane, outcome.Kind)
	}
	if !strings.Contains(outcome.Reason, "AccessDeniedException") {
		t.Errorf("expected underlying detail preserved, got %q", outcome.Reason)
	}
}

func TestLaunchReportedFailure(t *testing.T) {
	mock := &mockECSClient{
		failures: []types.Failure{{
			Reason: aws.String("RESOURCE:MEMORY"),
			Detail: aws.String("no container instance met requirements"),
		}},
	}
	launcher := &ECSLauncher{ecsClient: mock, timeout: time.Second}

	outcome := launcher.Launch(context.Background(), testLaunchSpec())

	if outcome.Launched {
		t.Fatal("expected failed outcome")
	}
	if outcome.Kind != FailureControlPlane {
		t.Errorf("expected kind %q, got %q", FailureControlPlane, outcome.Kind)
	}
	if !strings.Contains(outcome.Reason, "RESOURCE:MEMORY") || !strings.Contains(outcome.Reason, "no container instance") {
		t.Errorf("expected failure reason and detail, got %q", outcome.Reason)
	}
}

// a response with neither tasks nor failures is still a failure
func TestLaunchEmptyResponse(t *testing.T) {
	launcher := &ECSLauncher{ecsClient: &emptyECSClient{}, timeout: time.Second}

	outcome := launcher.Launch(context.Background(), testLaunchSpec())
	if outcome.Launched || outcome.Kind != FailureControlPlane {
		t.Errorf("expected control plane failure, got %v", outcome)
	}
}

type emptyECSClient struct{}

func (m *emptyECSClient) RunTask(context.Context, *ecs.RunTaskInput, ...func(*ecs.Options)) (*ecs.RunTaskOutput, error) {
	return &ecs.RunTaskOutput{}, nil
}

func TestLaunchCanceledInFlight(t *testing.T) {
	mock := &mockECSClient{taskArn: "arn:x", delay: 200 * time.Millisecond}
	launcher := &ECSLauncher{ecsClient: mock, timeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	outcome := launcher.Launch(ctx, testLaunchSpec())

	if outcome.Launched {
		t.Fatal("expected failed outcome")
	}
	if outcome.Kind != FailureCanceled {
		t.Errorf("expected kind %q, got %q", FailureCanceled, outcome.Kind)
	}
}

func TestLaunchTimeout(t *testing.T) {
	mock := &mockECSClient{taskArn: "arn:x", delay: 200 * time.Millisecond}
	launcher := &ECSLauncher{ecsClient: mock, timeout: 20 * time.Millisecond}

	outcome := launcher.Launch(context.Background(), testLaunchSpec())

	if outcome.Launched {
		t.Fatal("expected failed outcome")
	}
	if outcome.Kind != FailureTimeout {
		t.Errorf("expected kind %q, got %q", FailureTimeout, outcome.Kind)
	}
}
