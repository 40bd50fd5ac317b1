// Package outputlog keeps the bounded per-item output history shown in the
// queue UI and forwards every change to a publisher.
package outputlog

import (
	"strings"
	"sync"

	"github.com/cesargomez89/tidarr/internal/constants"
)

// Publisher receives the rendered output of an item after every change.
type Publisher interface {
	PublishOutput(id, output string)
}

// Store holds output lines per item id. A history exists only between
// Create and Delete; appends to any other id are dropped.
type Store struct {
	mu       sync.RWMutex
	lines    map[string][]string
	maxLines int
	pub      Publisher

	// pubMu is taken before mu is released so publishes leave in the order
	// the changes were made.
	pubMu sync.Mutex
}

type Option func(*Store)

// WithMaxLines overrides the number of lines kept per item.
func WithMaxLines(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxLines = n
		}
	}
}

func New(pub Publisher, opts ...Option) *Store {
	s := &Store{
		lines:    make(map[string][]string),
		maxLines: constants.MaxOutputLines,
		pub:      pub,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts an empty history for id, keeping an existing one.
func (s *Store) Create(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[id]; !ok {
		s.lines[id] = nil
	}
}

// Reset empties the history of id without removing it.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	if _, ok := s.lines[id]; !ok {
		s.mu.Unlock()
		return
	}
	s.lines[id] = nil
	s.publishUnlock(id, "")
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, id)
}

func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lines[id]
	return ok
}

// Append adds a line to the history of id. With replaceLast the newest line
// is overwritten instead, which is how progress bars are coalesced.
func (s *Store) Append(id, line string, replaceLast bool) {
	line = Sanitize(line)

	s.mu.Lock()
	history, ok := s.lines[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	if replaceLast && len(history) > 0 {
		history[len(history)-1] = line
	} else {
		history = append(history, line)
		if over := len(history) - s.maxLines; over > 0 {
			history = append(history[:0], history[over:]...)
		}
	}
	s.lines[id] = history
	s.publishUnlock(id, strings.Join(history, constants.OutputSeparator))
}

// Get returns the last lines of id joined by newlines, or "" when unknown.
func (s *Store) Get(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.lines[id]
	if len(history) > s.maxLines {
		history = history[len(history)-s.maxLines:]
	}
	return strings.Join(history, constants.OutputSeparator)
}

// publishUnlock releases mu, which the caller holds, and publishes output
// ahead of any change made after it.
func (s *Store) publishUnlock(id, output string) {
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()
	if s.pub != nil {
		s.pub.PublishOutput(id, output)
	}
}
