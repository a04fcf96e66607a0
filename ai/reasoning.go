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

import (
	"regexp"
	"strings"
)

// Markers delimiting the reasoning block emitted by reasoning models.
const (
	ReasoningOpen  = "<think>"
	ReasoningClose = "</think>"
)

// reasoningBlock matches the shortest opener..closer span, across newlines.
var reasoningBlock = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(ReasoningOpen) + `.*?` + regexp.QuoteMeta(ReasoningClose))

// StripReasoning removes every reasoning block from text and trims the result.
//
// Removal repeats until no block remains, since deleting one span can join
// the pieces of another. An opener without a closer is left as is.
// StripReasoning(StripReasoning(x)) == StripReasoning(x) for any x.
func StripReasoning(text string) string {
	for reasoningBlock.MatchString(text) {
		text = reasoningBlock.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
