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

	"github.com/poiesic/uniterare/core"
)

const promptTemplate = "%s: give long description, symptoms, Clinical Significance, related disorders, treatment, and key aspects."

// PromptBuilder turns a record into the text sent to the generator.
type PromptBuilder func(record *core.Record) string

// BuildPrompt is the default PromptBuilder.
func BuildPrompt(record *core.Record) string {
	return fmt.Sprintf(promptTemplate, record.Name)
}

func newRequest(build PromptBuilder, record *core.Record) core.GenerationRequest {
	return core.GenerationRequest{
		RecordId: record.Id,
		Name:     record.Name,
		Prompt:   build(record),
	}
}
