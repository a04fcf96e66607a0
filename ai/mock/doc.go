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

// Package mock provides test doubles for the ai package.
//
// # Usage
//
//	gen := mock.NewMockGenerator().
//	    WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
//	        return "<think>...</think>A description.", nil
//	    }).
//	    WithDelay(20 * time.Millisecond)
//
//	// After the run
//	count := gen.CallCount()
//	peak := gen.MaxInFlight()
//
// # Default Behavior
//
//   - MockGenerator: echoes the prompt after a short reasoning block
//   - MockProvider: wraps a MockGenerator
package mock
