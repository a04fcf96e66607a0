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

import "errors"

var (
	// ErrRepositoryRequired is returned when a record repository is not provided.
	ErrRepositoryRequired = errors.New("record repository required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrStore marks a failure to read the pending set. It aborts the run.
	ErrStore = errors.New("store error")

	// ErrGeneration marks a failed or empty generator call for one record.
	ErrGeneration = errors.New("generation error")

	// ErrPersist marks a failed description write for one record.
	ErrPersist = errors.New("persist error")

	// ErrPanic wraps a value recovered from a panicking stage.
	ErrPanic = errors.New("panic")
)

// Stages of the per-record flow.
const (
	StageSubmit   = "submit"
	StageGenerate = "generate"
	StagePersist  = "persist"
)

// StageError reports which stage of the per-record flow failed.
// It matches ErrGeneration or ErrPersist under errors.Is, depending on Stage,
// and unwraps to the underlying cause.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	switch e.Stage {
	case StageGenerate:
		return target == ErrGeneration
	case StagePersist:
		return target == ErrPersist
	}
	return false
}
