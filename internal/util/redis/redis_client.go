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

// This file provides redis client utilities.

package redis

import (
	"context"
	"fmt"
	"os"
	"time"

	gredis "github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	utls "github.com/echoscribe/job-dispatcher/internal/util/tls"
)

const REDIS_PING_WAIT_SEC = 10

type RedisClientConfig struct {
	Url         string
	DbIdx       int
	EnableTLS   bool
	Insecure    bool
	CaCertFile  string
	ServiceName string
	Timeout     time.Duration // Timeout for socket operations: dial, read, write.
	MaxRetries  int           // Maximum number of retries before giving up. Default is 3 retries; -1 (not 0) disables retries.
}

func NewRedisClient(ctx context.Context, cnf *RedisClientConfig) (*gredis.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := klog.FromContext(ctx)
	if cnf == nil {
		err := fmt.Errorf("redis config was not provided")
		logger.Error(err, "NewRedisClient")
		return nil, err
	}
	if cnf.Url == "" {
		err := fmt.Errorf("redis config has empty url")
		logger.Error(err, "NewRedisClient")
		return nil, err
	}
	redisOps, err := gredis.ParseURL(cnf.Url)
	if err != nil {
		logger.Error(err, "NewRedisClient")
		return nil, err
	}
	if redisOps.ClientName == "" {
		hostname, _ := os.Hostname()
		if cnf.ServiceName != "" {
			redisOps.ClientName = fmt.Sprintf("%s-%s-%d", cnf.ServiceName, hostname, os.Getpid())
		} else {
			redisOps.ClientName = fmt.Sprintf("%s-%d", hostname, os.Getpid())
		}
	}
	if cnf.DbIdx >= 0 {
		redisOps.DB = cnf.DbIdx
	}
	if cnf.Timeout != 0 {
		redisOps.DialTimeout = cnf.Timeout
		redisOps.ReadTimeout = cnf.Timeout
		redisOps.WriteTimeout = cnf.Timeout
	}
	redisOps.ContextTimeoutEnabled = true
	if cnf.MaxRetries != 0 {
		redisOps.MaxRetries = cnf.MaxRetries
	}
	if cnf.EnableTLS {
		tlsConfig, err := utls.GetClientTlsConfig(cnf.Insecure, cnf.CaCertFile)
		if err != nil {
			logger.Error(err, "NewRedisClient: failed to build TLS config")
			return nil, err
		}
		redisOps.TLSConfig = tlsConfig
	}

	client := gredis.NewClient(redisOps)

	pingCtx, cancel := context.WithTimeout(ctx, REDIS_PING_WAIT_SEC*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error(err, "NewRedisClient: ping failed")
		client.Close()
		return nil, err
	}
	return client, nil
}
