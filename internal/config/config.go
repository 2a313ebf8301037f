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

// The dispatcher's configuration definitions.
// Configuration is loaded once at startup and validated eagerly, so that a
// missing value surfaces as a deployment fault instead of a mid-batch one.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %s", value.Value)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// ConfigurationError reports required configuration that is absent or
// invalid. It is batch-fatal: no launch may be attempted against an
// incomplete configuration.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: missing or invalid fields: %s", strings.Join(e.Missing, ", "))
}

// ClusterConfig holds the process-wide launch parameters shared by every
// launch in every batch. Read-only after startup.
type ClusterConfig struct {
	Cluster        string   `json:"cluster" yaml:"cluster" mapstructure:"cluster"`
	TaskDefinition string   `json:"task_definition" yaml:"task_definition" mapstructure:"task_definition"`
	ContainerName  string   `json:"container_name" yaml:"container_name" mapstructure:"container_name"`
	LaunchType     string   `json:"launch_type" yaml:"launch_type" mapstructure:"launch_type"`
	Subnets        []string `json:"subnets" yaml:"subnets" mapstructure:"subnets"`
	SecurityGroups []string `json:"security_groups" yaml:"security_groups" mapstructure:"security_groups"`
	AssignPublicIP bool     `json:"assign_public_ip" yaml:"assign_public_ip" mapstructure:"assign_public_ip"`

	Region          string `json:"region" yaml:"region" mapstructure:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" mapstructure:"secret_access_key"`
}

// Validate checks the presence of every field a launch call requires.
func (c *ClusterConfig) Validate() error {
	var missing []string
	if c.Cluster == "" {
		missing = append(missing, "cluster")
	}
	if c.TaskDefinition == "" {
		missing = append(missing, "task_definition")
	}
	if c.ContainerName == "" {
		missing = append(missing, "container_name")
	}
	if len(c.Subnets) == 0 {
		missing = append(missing, "subnets")
	}
	if len(c.SecurityGroups) == 0 {
		missing = append(missing, "security_groups")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

type DispatcherConfig struct {
	Cluster ClusterConfig `json:"cluster" yaml:"cluster" mapstructure:"cluster"`

	QueueURL         string   `json:"queue_url" yaml:"queue_url" mapstructure:"queue_url"`
	QueueWaitTime    Duration `json:"queue_wait_time" yaml:"queue_wait_time" mapstructure:"queue_wait_time"`
	QueueBatchSize   int      `json:"queue_batch_size" yaml:"queue_batch_size" mapstructure:"queue_batch_size"`
	PollInterval     Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`
	MaxWorkers       int      `json:"max_workers" yaml:"max_workers" mapstructure:"max_workers"`
	LaunchTimeout    Duration `json:"launch_timeout" yaml:"launch_timeout" mapstructure:"launch_timeout"`
	RedisURL         string   `json:"redis_url" yaml:"redis_url" mapstructure:"redis_url"`
	LaunchRecordTTL  Duration `json:"launch_record_ttl" yaml:"launch_record_ttl" mapstructure:"launch_record_ttl"`
	ReportWebhookURL string   `json:"report_webhook_url" yaml:"report_webhook_url" mapstructure:"report_webhook_url"`
	MetricsAddress   string   `json:"metrics_address" yaml:"metrics_address" mapstructure:"metrics_address"`
	ListenAddress    string   `json:"listen_address" yaml:"listen_address" mapstructure:"listen_address"`
}

// LoadFromYAML loads the configuration from a YAML file.
func (c *DispatcherConfig) LoadFromYAML(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return err
	}
	return nil
}

// ApplyEnvOverrides lets deployment-varying endpoints override the YAML
// values, so the file can stay identical across environments. AWS
// credentials are not handled here; the SDK reads its standard variables
// itself.
func (c *DispatcherConfig) ApplyEnvOverrides() {
	overrides := map[string]*string{
		"JD_QUEUE_URL":          &c.QueueURL,
		"JD_REDIS_URL":          &c.RedisURL,
		"JD_REPORT_WEBHOOK_URL": &c.ReportWebhookURL,
		"JD_METRICS_ADDRESS":    &c.MetricsAddress,
		"JD_LISTEN_ADDRESS":     &c.ListenAddress,
	}
	for key, target := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}
}

// Validate checks the whole dispatcher configuration, cluster section
// included. Queue and store settings are validated only when set, since the
// HTTP-triggered deployment runs without them.
func (c *DispatcherConfig) Validate() error {
	if err := c.Cluster.Validate(); err != nil {
		return err
	}
	var missing []string
	if c.QueueBatchSize < 0 || c.QueueBatchSize > 10 {
		missing = append(missing, "queue_batch_size")
	}
	if c.MaxWorkers <= 0 {
		missing = append(missing, "max_workers")
	}
	if c.LaunchTimeout <= 0 {
		missing = append(missing, "launch_timeout")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// NewConfig returns a new DispatcherConfig with default values.
func NewConfig() *DispatcherConfig {
	return &DispatcherConfig{
		Cluster: ClusterConfig{
			LaunchType: "FARGATE",
		},
		QueueWaitTime:   Duration(10 * time.Second),
		QueueBatchSize:  10,
		PollInterval:    Duration(5 * time.Second),
		MaxWorkers:      10,
		LaunchTimeout:   Duration(30 * time.Second),
		LaunchRecordTTL: Duration(24 * time.Hour),
		MetricsAddress:  ":9090",
		ListenAddress:   ":8080",
	}
}
