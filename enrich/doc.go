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


// Package enrich fills in missing record descriptions by calling a text
// generator for every pending record under a bounded worker pool.
//
// A run fetches the pending set once, submits each record to the pool
// exactly once and reports every outcome as soon as its worker finishes.
// Failures are confined to the record that produced them: the record
// stays pending and the next run picks it up again.
package enrich
