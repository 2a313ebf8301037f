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

// Test for the redis launch record store.

package statestore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/echoscribe/job-dispatcher/internal/dispatch"
	"github.com/echoscribe/job-dispatcher/internal/statestore"
	uredis "github.com/echoscribe/job-dispatcher/internal/util/redis"
)

func TestRedisLaunchStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Redis Launch Store Suite")
}

var (
	redisUrl string
	minirds  *miniredis.Miniredis = nil
)

func init() {
	redisUrl = os.Getenv("JD_REDIS_URL")
}

var _ = BeforeSuite(func() {
	if redisUrl == "" {
		minirds = miniredis.RunT(GinkgoT())
		Expect(minirds).ToNot(BeNil())
		redisUrl = "redis://" + minirds.Addr()
	}
})

var _ = Describe("Redis Launch Store", func() {
	var store *statestore.RedisLaunchStore
	var err error

	BeforeEach(func() {
		store, err = statestore.NewRedisLaunchStore(context.Background(), &uredis.RedisClientConfig{
			Url:         redisUrl,
			ServiceName: "test-service",
		}, time.Hour)
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	It("should store and retrieve a launch record", func() {
		record := &statestore.LaunchRecord{
			JobID:      "job-1",
			RunID:      "run-1",
			Launched:   true,
			Descriptor: "task/abc",
			RecordedAt: time.Now().UTC(),
		}
		Expect(store.Set(context.Background(), record)).To(Succeed())

		got, err := store.Get(context.Background(), "job-1")
		Expect(err).To(BeNil())
		Expect(got.JobID).To(Equal("job-1"))
		Expect(got.Launched).To(BeTrue())
		Expect(got.Descriptor).To(Equal("task/abc"))
	})

	It("should return ErrNotFound for an unknown job", func() {
		_, err := store.Get(context.Background(), "no-such-job")
		Expect(err).To(MatchError(statestore.ErrNotFound))
	})

	It("should reject a record without a job ID", func() {
		Expect(store.Set(context.Background(), &statestore.LaunchRecord{})).ToNot(Succeed())
	})

	It("should record every item of a report that has a job ID", func() {
		report := &dispatch.BatchReport{
			RunID: "run-2",
			Items: []dispatch.ItemResult{
				{Ref: "job-a", JobID: "job-a", Outcome: dispatch.LaunchedOutcome("task/a")},
				{Ref: "m-raw", Outcome: dispatch.FailedOutcome(dispatch.FailureMalformedPayload, "bad")},
				{Ref: "job-b", JobID: "job-b", Outcome: dispatch.FailedOutcome(dispatch.FailureControlPlane, "capacity")},
			},
		}
		store.RecordBatch(context.Background(), report)

		got, err := store.Get(context.Background(), "job-a")
		Expect(err).To(BeNil())
		Expect(got.Launched).To(BeTrue())
		Expect(got.RunID).To(Equal("run-2"))

		got, err = store.Get(context.Background(), "job-b")
		Expect(err).To(BeNil())
		Expect(got.Launched).To(BeFalse())
		Expect(got.Kind).To(Equal(dispatch.FailureControlPlane))
		Expect(got.Reason).To(Equal("capacity"))
	})

	It("should fail to create a store with an invalid URL", func() {
		storeInv, errInv := statestore.NewRedisLaunchStore(context.Background(), &uredis.RedisClientConfig{
			Url: "not-a-url",
		}, time.Hour)
		Expect(errInv).ToNot(BeNil())
		Expect(storeInv).To(BeNil())
	})
})
