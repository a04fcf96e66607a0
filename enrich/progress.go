// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package enrich

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/uniterare/core"
)

// ProgressTracker prints a running tally of finished records.
// It is safe for concurrent use.
type ProgressTracker struct {
	writer io.Writer
	total  int
	every  int

	mu           sync.Mutex
	done         int
	stored       int
	failed       int
	lastReported int
	startTime    time.Time
	started      bool
}

// NewProgressTracker reports to writer once every `every` records out of total.
func NewProgressTracker(writer io.Writer, total, every int) *ProgressTracker {
	if every < 1 {
		every = 1
	}
	return &ProgressTracker{
		writer: writer,
		total:  total,
		every:  every,
	}
}

// Start resets the tally and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.done = 0
	p.stored = 0
	p.failed = 0
	p.lastReported = 0
}

// Observe counts one finished record.
func (p *ProgressTracker) Observe(status core.GenerationStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.done >= p.total {
		return
	}

	p.done++
	if status == core.StatusSuccess {
		p.stored++
	} else {
		p.failed++
	}

	if p.done-p.lastReported >= p.every {
		p.report()
		p.lastReported = p.done
	}
}

// Finish prints the final tally unless it was just printed.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	if p.lastReported != p.done || p.done == 0 {
		p.report()
	}
	p.started = false
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startTime.IsZero() {
		return 0
	}
	return time.Since(p.startTime)
}

// report must be called with the lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.done) / elapsed
	}

	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.done) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "Progress: %d/%d (%.1f%%) stored=%d failed=%d - %.2f records/s\n",
		p.done, p.total, percentage, p.stored, p.failed, rate)
}
