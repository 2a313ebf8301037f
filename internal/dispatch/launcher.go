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

// The file implements the task launcher against the ECS control plane.
// One Launch call issues exactly one RunTask request and classifies the
// result; retries are left to the layer redelivering the original message.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"k8s.io/klog/v2"

	"github.com/echoscribe/job-dispatcher/internal/config"
)

const DefaultLaunchTimeout = 30 * time.Second

// Launcher starts one task instance for one launch specification.
// Implementations must be safe for concurrent use.
type Launcher interface {
	Launch(ctx context.Context, spec *LaunchSpec) LaunchOutcome
}

type ecsAPI interface {
	RunTask(ctx context.Context, params *ecs.RunTaskInput, optFns ...func(*ecs.Options)) (*ecs.RunTaskOutput, error)
}

// ECSLauncher launches tasks through the ECS RunTask API.
type ECSLauncher struct {
	ecsClient ecsAPI
	timeout   time.Duration
}

var _ Launcher = (*ECSLauncher)(nil)

// NewECSLauncher creates a launcher bound to the configured region and,
// optionally, a non-default endpoint and static credentials.
func NewECSLauncher(ctx context.Context, cc *config.ClusterConfig, timeout time.Duration) (*ECSLauncher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cc.Region))

	if cc.AccessKeyID != "" && cc.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cc.AccessKeyID, cc.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var ecsOpts []func(*ecs.Options)
	if cc.Endpoint != "" {
		ecsOpts = append(ecsOpts, func(o *ecs.Options) {
			o.BaseEndpoint = aws.String(cc.Endpoint)
		})
	}

	if timeout <= 0 {
		timeout = DefaultLaunchTimeout
	}
	return &ECSLauncher{
		ecsClient: ecs.NewFromConfig(awsCfg, ecsOpts...),
		timeout:   timeout,
	}, nil
}

// Launch issues one RunTask call for the given specification and classifies
// the outcome. The call is bounded by the launcher's timeout so a hung
// control plane becomes a timeout failure instead of a pending item.
func (l *ECSLauncher) Launch(ctx context.Context, spec *LaunchSpec) LaunchOutcome {
	logger := klog.FromContext(ctx)

	cctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	out, err := l.ecsClient.RunTask(cctx, buildRunTaskInput(spec))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || cctx.Err() == context.DeadlineExceeded {
			logger.Error(err, "Launch: control plane call timed out")
			return FailedOutcome(FailureTimeout, fmt.Sprintf("launch call exceeded %s", l.timeout))
		}
		if errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled {
			logger.Error(err, "Launch: canceled during control plane call")
			return FailedOutcome(FailureCanceled, "launch canceled in flight")
		}
		logger.Error(err, "Launch: control plane rejected the launch")
		return FailedOutcome(FailureControlPlane, err.Error())
	}

	// RunTask can fail per-task without a transport error
	if len(out.Failures) > 0 {
		f := out.Failures[0]
		reason := aws.ToString(f.Reason)
		if detail := aws.ToString(f.Detail); detail != "" {
			reason = reason + ": " + detail
		}
		logger.Error(fmt.Errorf("%s", reason), "Launch: control plane reported failure")
		return FailedOutcome(FailureControlPlane, reason)
	}
	if len(out.Tasks) == 0 {
		return FailedOutcome(FailureControlPlane, "control plane returned neither a task nor a failure")
	}

	descriptor := aws.ToString(out.Tasks[0].TaskArn)
	logger.Info("Launch: task started", "descriptor", descriptor)
	return LaunchedOutcome(descriptor)
}

func buildRunTaskInput(spec *LaunchSpec) *ecs.RunTaskInput {
	assignPublicIP := types.AssignPublicIpDisabled
	if spec.AssignPublicIP {
		assignPublicIP = types.AssignPublicIpEnabled
	}

	return &ecs.RunTaskInput{
		Cluster:        aws.String(spec.Cluster),
		TaskDefinition: aws.String(spec.TaskDefinition),
		LaunchType:     types.LaunchType(spec.LaunchType),
		Count:          aws.Int32(1),
		NetworkConfiguration: &types.NetworkConfiguration{
			AwsvpcConfiguration: &types.AwsVpcConfiguration{
				Subnets:        spec.Subnets,
				SecurityGroups: spec.SecurityGroups,
				AssignPublicIp: assignPublicIP,
			},
		},
		Overrides: &types.TaskOverride{
			ContainerOverrides: []types.ContainerOverride{
				{
					Name:        aws.String(spec.ContainerName),
					Environment: envOverrides(spec.Env),
				},
			},
		},
	}
}

// envOverrides renders the override map in sorted key order so the built
// input is deterministic for a given specification.
func envOverrides(env map[string]string) []types.KeyValuePair {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]types.KeyValuePair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, types.KeyValuePair{
			Name:  aws.String(k),
			Value: aws.String(env[k]),
		})
	}
	return pairs
}
