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

package ai

import "context"

// Generator produces free text for a prompt.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate sends a single-turn prompt and returns the raw completion,
	// including any reasoning block the model emitted.
	// Returns an error if the call fails, times out, or yields no content.
	Generate(ctx context.Context, prompt string) (string, error)
}

// AIProvider manages the lifecycle of a Generator and the client behind it.
type AIProvider interface {
	// Generator returns the text generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Close releases resources held by the provider.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
