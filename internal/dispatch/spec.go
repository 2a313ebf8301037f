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

// The file builds the fully-resolved launch specification for one request.
package dispatch

import (
	"sort"
	"strings"

	"github.com/echoscribe/job-dispatcher/internal/config"
)

const (
	// EnvJobID is the fixed environment key under which the launched task
	// finds its own job identifier.
	EnvJobID = "JOB_ID"

	envMetadataPrefix = "JOB_META_"
)

// LaunchSpec is the parameter set for exactly one task launch. Built fresh
// per request, owned by the launch call that consumes it, never mutated
// after construction.
type LaunchSpec struct {
	TaskDefinition string
	Cluster        string
	ContainerName  string
	LaunchType     string
	Subnets        []string
	SecurityGroups []string
	AssignPublicIP bool
	Env            map[string]string
}

// BuildLaunchSpec maps a validated request plus the process-wide cluster
// configuration into a LaunchSpec. Deterministic and side-effect free:
// identical request and configuration produce an identical specification.
// An incomplete configuration is a deployment fault, not a per-item one.
func BuildLaunchSpec(req *JobLaunchRequest, cc *config.ClusterConfig) (*LaunchSpec, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}

	env := make(map[string]string, len(req.Metadata)+1)
	env[EnvJobID] = req.JobID
	// sorted keys so two metadata keys sanitizing to the same env name
	// resolve the same way on every pass
	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env[envMetadataPrefix+sanitizeEnvKey(k)] = req.Metadata[k]
	}

	return &LaunchSpec{
		TaskDefinition: cc.TaskDefinition,
		Cluster:        cc.Cluster,
		ContainerName:  cc.ContainerName,
		LaunchType:     cc.LaunchType,
		Subnets:        cc.Subnets,
		SecurityGroups: cc.SecurityGroups,
		AssignPublicIP: cc.AssignPublicIP,
		Env:            env,
	}, nil
}

// sanitizeEnvKey upper-cases a metadata key and replaces anything that is
// not valid in an environment variable name.
func sanitizeEnvKey(key string) string {
	key = strings.ToUpper(key)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
