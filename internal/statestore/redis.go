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

// Package statestore records per-job launch outcomes in redis so an operator
// can query what happened to a job after the batch has returned. Records are
// best effort with a TTL; losing one never affects a batch report.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gredis "github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	"github.com/echoscribe/job-dispatcher/internal/dispatch"
	uredis "github.com/echoscribe/job-dispatcher/internal/util/redis"
)

const (
	keysPrefix       = "jobdisp:"
	launchKeysPrefix = keysPrefix + "launch:"
	defaultTTL       = 24 * time.Hour
	defaultTimeout   = 5 * time.Second
)

// LaunchRecord is the stored terminal state of one job's launch attempt.
type LaunchRecord struct {
	JobID      string                `json:"job_id"`
	RunID      string                `json:"run_id"`
	Launched   bool                  `json:"launched"`
	Descriptor string                `json:"descriptor,omitempty"`
	Kind       dispatch.FailureKind  `json:"failure_kind,omitempty"`
	Reason     string                `json:"reason,omitempty"`
	RecordedAt time.Time             `json:"recorded_at"`
}

// ErrNotFound is returned when no record exists for a job ID.
var ErrNotFound = fmt.Errorf("launch record not found")

type RedisLaunchStore struct {
	redisClient *gredis.Client
	ttl         time.Duration
	timeout     time.Duration
}

func NewRedisLaunchStore(ctx context.Context, conf *uredis.RedisClientConfig, ttl time.Duration) (*RedisLaunchStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := klog.FromContext(ctx)
	if conf == nil {
		err := fmt.Errorf("empty redis config")
		logger.Error(err, "NewRedisLaunchStore:")
		return nil, err
	}
	redisClient, err := uredis.NewRedisClient(ctx, conf)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger.Info("NewRedisLaunchStore: succeeded", "serviceName", conf.ServiceName)
	return &RedisLaunchStore{
		redisClient: redisClient,
		ttl:         ttl,
		timeout:     timeout,
	}, nil
}

func getKeyForLaunch(jobID string) string {
	return launchKeysPrefix + jobID
}

// RecordBatch stores a record for every item of the report that carries a
// job ID. Failures are logged and skipped so one bad write does not lose the
// rest of the records.
func (s *RedisLaunchStore) RecordBatch(ctx context.Context, report *dispatch.BatchReport) {
	logger := klog.FromContext(ctx)
	for _, item := range report.Items {
		if item.JobID == "" {
			continue
		}
		record := &LaunchRecord{
			JobID:      item.JobID,
			RunID:      report.RunID,
			Launched:   item.Outcome.Launched,
			Descriptor: item.Outcome.Descriptor,
			Kind:       item.Outcome.Kind,
			Reason:     item.Outcome.Reason,
			RecordedAt: time.Now().UTC(),
		}
		if err := s.Set(ctx, record); err != nil {
			logger.Error(err, "RecordBatch: failed to store launch record", "jobID", item.JobID)
		}
	}
}

func (s *RedisLaunchStore) Set(ctx context.Context, record *LaunchRecord) error {
	if record == nil || record.JobID == "" {
		return fmt.Errorf("launch record has no job ID")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal launch record: %w", err)
	}

	cctx, ccancel := context.WithTimeout(ctx, s.timeout)
	defer ccancel()
	if err := s.redisClient.Set(cctx, getKeyForLaunch(record.JobID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store launch record: %w", err)
	}
	return nil
}

func (s *RedisLaunchStore) Get(ctx context.Context, jobID string) (*LaunchRecord, error) {
	cctx, ccancel := context.WithTimeout(ctx, s.timeout)
	defer ccancel()

	data, err := s.redisClient.Get(cctx, getKeyForLaunch(jobID)).Bytes()
	if err == gredis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get launch record: %w", err)
	}
	var record LaunchRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal launch record: %w", err)
	}
	return &record, nil
}

func (s *RedisLaunchStore) Close() error {
	if s.redisClient != nil {
		return s.redisClient.Close()
	}
	return nil
}
