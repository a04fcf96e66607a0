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

package sqlstore

import (
	"context"
	"database/sql"
	"sync"

	"github.com/poiesic/uniterare/core"
	"github.com/poiesic/uniterare/storage"
)

// session holds one pooled connection for the duration of a single write.
type session struct {
	repo *Repository

	mu   sync.Mutex
	conn *sql.Conn
}

var _ storage.Session = (*session)(nil)

func (s *session) UpdateDescription(ctx context.Context, id core.ID, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return storage.ErrSessionClosed
	}
	return s.repo.updateDescription(ctx, s.conn, id, description)
}

// Close returns the connection to the pool.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
