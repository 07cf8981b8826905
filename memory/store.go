package memory

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultMaxMessages is the per-conversation history cap used by NewStore.
const DefaultMaxMessages = 21

// Store maps conversation ids to message sequences. Conversations are loaded
// lazily from the backend on first access and persisted on every mutation.
// Locking is per conversation id, so appends to different conversations never
// wait on each other and never interleave in storage.
type Store struct {
	backend     Backend
	maxMessages int

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu     sync.Mutex
	loaded bool
	msgs   []Message
}

type StoreOption func(*Store)

// WithMaxMessages caps each conversation's history; n <= 0 disables the cap.
func WithMaxMessages(n int) StoreOption {
	return func(s *Store) { s.maxMessages = n }
}

// NewStore returns a store over backend; a nil backend keeps history in memory only.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		backend:     backend,
		maxMessages: DefaultMaxMessages,
		entries:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) entry(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}
	return e
}

// load must be called with e.mu held.
func (s *Store) load(id string, e *entry) error {
	if e.loaded {
		return nil
	}
	msgs, err := s.backend.Load(id)
	if err != nil {
		return err
	}
	e.msgs = msgs
	e.loaded = true
	return nil
}

// GetOrCreate returns a snapshot of conversation id. Unknown ids yield an
// empty conversation; nothing is written until the first Append.
func (s *Store) GetOrCreate(id string) (Conversation, error) {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.load(id, e); err != nil {
		return Conversation{ID: id}, err
	}
	return Conversation{ID: id, Messages: cloneMessages(e.msgs)}, nil
}

// Append validates and appends msgs to conversation id, trims it to the
// history cap and persists it. If persisting fails the in-memory conversation
// is left as it was.
func (s *Store) Append(id string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.load(id, e); err != nil {
		return err
	}
	if err := Validate(e.msgs, msgs...); err != nil {
		return err
	}
	next := make([]Message, 0, len(e.msgs)+len(msgs))
	next = append(next, e.msgs...)
	next = Trim(append(next, msgs...), s.maxMessages)
	if err := s.backend.Save(id, next); err != nil {
		return err
	}
	e.msgs = next
	return nil
}

// Persist writes the current in-memory sequence of conversation id.
func (s *Store) Persist(id string) error {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.load(id, e); err != nil {
		return err
	}
	return s.backend.Save(id, e.msgs)
}

// Clear empties conversation id and persists the empty sequence.
func (s *Store) Clear(id string) error {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.backend.Save(id, nil); err != nil {
		return err
	}
	e.msgs = nil
	e.loaded = true
	return nil
}

// Transcript renders conversation id as "name: content" lines. Messages
// without an author name use their role.
func (s *Store) Transcript(id string) (string, error) {
	c, err := s.GetOrCreate(id)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(c.Messages))
	for _, m := range c.Messages {
		name := m.Name
		if name == "" {
			name = string(m.Role)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, m.Content))
	}
	return strings.Join(lines, "\n"), nil
}

// TruncatedTranscript returns at most the last n runes of the transcript.
func (s *Store) TruncatedTranscript(id string, n int) (string, error) {
	t, err := s.Transcript(id)
	if err != nil {
		return "", err
	}
	r := []rune(t)
	if n >= 0 && len(r) > n {
		r = r[len(r)-n:]
	}
	return string(r), nil
}
