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

package dispatch

import "context"

// workerPool bounds the number of concurrent launch calls with a semaphore.
type workerPool struct {
	sem chan struct{}
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = 1
	}
	return &workerPool{
		sem: make(chan struct{}, size),
	}
}

// Acquire blocks until a worker slot is free or the context is done.
// Returns false on cancellation, in which case no slot is held. A context
// that is already done always loses, even when a slot is free.
func (wp *workerPool) Acquire(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case wp.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (wp *workerPool) Release() {
	<-wp.sem
}
