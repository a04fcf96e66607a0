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

// Package ai provides the text generation abstraction used to write disease
// descriptions.
//
// The package defines two interfaces:
//
//   - Generator: turns a prompt into raw completion text
//   - AIProvider: owns a Generator and its client lifecycle
//
// Reasoning models wrap their chain of thought in <think>...</think>.
// StripReasoning removes those blocks; callers store only what remains.
//
// # Implementation Packages
//
//   - ai/openai: production implementation for OpenAI-compatible APIs (Groq by default)
//   - ai/mock: test doubles with call counting and concurrency tracking
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("GROQ_API_KEY")))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	raw, err := provider.Generator().Generate(ctx, "Fabry disease: give long description, ...")
//	text := ai.StripReasoning(raw)
package ai
