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


package search

import "strings"

// normalizeQuery collapses runs of whitespace and strips punctuation
// a user might type around a name, such as quotes or a trailing question mark.
func normalizeQuery(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	joined := strings.Join(words, " ")
	return strings.TrimSpace(strings.Trim(joined, ".,!?;:'\"()[]{}"))
}

// startsWithFold reports whether name begins with prefix, ignoring case.
func startsWithFold(name, prefix string) bool {
	return len(name) >= len(prefix) && strings.EqualFold(name[:len(prefix)], prefix)
}
