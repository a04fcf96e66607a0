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

package badger

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/uniterare/core"
	"github.com/poiesic/uniterare/storage"
)

// session implements storage.Session on top of a RecordRepository.
type session struct {
	repo   *RecordRepository
	closed atomic.Bool
}

var _ storage.Session = (*session)(nil)

func (s *session) UpdateDescription(ctx context.Context, id core.ID, description string) error {
	if s.closed.Load() {
		return storage.ErrSessionClosed
	}
	return s.repo.UpdateDescription(ctx, id, description)
}

func (s *session) Close() error {
	s.closed.Store(true)
	return nil
}
