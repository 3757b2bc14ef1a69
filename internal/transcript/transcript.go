package transcript

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrInvalidRole is returned by Append when the role is empty or unknown.
var ErrInvalidRole = errors.New("transcript: invalid role")

// Entry is one immutable message in the conversation log. Content is a
// markup fragment that has already been escaped or rendered by the caller.
type Entry struct {
	Seq       int       `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is an append-only, ordered log of entries. The only way to remove
// entries is ResetAll, which drops all of them at once.
type Store struct {
	mu       sync.Mutex
	entries  []Entry
	next     int
	onChange func()
}

// NewStore creates an empty transcript store.
func NewStore() *Store {
	return &Store{entries: make([]Entry, 0, 32)}
}

// OnChange registers a callback invoked after every append or reset. It is
// called without the store lock held.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Append adds an entry to the end of the log.
func (s *Store) Append(content string, role Role) (Entry, error) {
	if role != RoleUser && role != RoleAssistant {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	s.mu.Lock()
	s.next++
	e := Entry{
		Seq:       s.next,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.entries = append(s.entries, e)
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return e, nil
}

// ResetAll clears the whole log in one step.
func (s *Store) ResetAll() {
	s.mu.Lock()
	s.entries = s.entries[:0]
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Entries returns a copy of the log in append order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Entry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

// Since returns the entries appended after the entry with sequence number
// seq. Passing 0 returns everything.
func (s *Store) Since(seq int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}
