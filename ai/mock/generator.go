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

package mock

import (
	"context"
	"sync"
	"time"
)

// MockGenerator is a test double for ai.Generator.
// It is safe for concurrent use and tracks how many calls overlap.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, Generate echoes the prompt wrapped in a reasoning block.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// Delay holds each call open for this long before returning.
	// It makes overlap between concurrent calls observable.
	Delay time.Duration

	mu          sync.Mutex
	callCount   int
	inFlight    int
	maxInFlight int
	prompts     []string
}

// NewMockGenerator creates a mock generator with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// WithGenerateFunc sets GenerateFunc and returns the mock for chaining.
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, prompt string) (string, error)) *MockGenerator {
	m.GenerateFunc = fn
	return m
}

// WithDelay sets Delay and returns the mock for chaining.
func (m *MockGenerator) WithDelay(d time.Duration) *MockGenerator {
	m.Delay = d
	return m
}

// Generate records the call and returns the injected or default response.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.prompts = append(m.prompts, prompt)
	fn := m.GenerateFunc
	delay := m.Delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if fn != nil {
		return fn(ctx, prompt)
	}

	// Default: mimic a reasoning model
	return "<think>drafting</think>\n" + prompt, nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MaxInFlight returns the highest number of simultaneous Generate calls seen.
func (m *MockGenerator) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// Prompts returns a copy of every prompt received, in call order.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Reset clears the counters and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.inFlight = 0
	m.maxInFlight = 0
	m.prompts = nil
	m.GenerateFunc = nil
	m.Delay = 0
}
