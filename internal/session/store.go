// Package session хранит незавершённые диалоги пользователей в памяти процесса.
package session

import (
	"sync"
	"time"

	"github.com/mmeshcher/lavita-bot/internal/conversation"
)

// Store хранит сессии в памяти и блокирует их по пользователю.
//
// Обработка одного события держит блокировку пользователя от чтения сессии
// до записи результата, поэтому события одного пользователя не перемешиваются,
// а разные пользователи обрабатываются параллельно.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]conversation.Session
	locks    map[int64]*userLock
	now      func() time.Time
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore создаёт пустое хранилище сессий.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]conversation.Session),
		locks:    make(map[int64]*userLock),
		now:      time.Now,
	}
}

// Lock захватывает блокировку пользователя и возвращает функцию её освобождения.
func (s *Store) Lock(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// Get возвращает сессию пользователя, если она есть.
func (s *Store) Get(userID int64) (conversation.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	return sess, ok
}

// Put сохраняет сессию. Сессия в начальном состоянии удаляется: хранить в ней нечего.
func (s *Store) Put(sess conversation.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.State == conversation.StateIdle {
		delete(s.sessions, sess.UserID)
		return
	}
	sess.UpdatedAt = s.now()
	s.sessions[sess.UserID] = sess
}

// Delete удаляет сессию пользователя.
func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}

// Len возвращает количество активных сессий.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep удаляет сессии, не обновлявшиеся дольше ttl, и возвращает их количество.
// Сессии пользователей, чьё событие сейчас обрабатывается, не трогаются.
func (s *Store) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := s.now().Add(-ttl)
	removed := 0
	for id, sess := range s.sessions {
		if _, busy := s.locks[id]; busy {
			continue
		}
		if sess.UpdatedAt.Before(deadline) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
