package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Backend persists whole conversations, one record per conversation id.
// Load returns (nil, nil) for an id that was never saved.
type Backend interface {
	Load(id string) ([]Message, error)
	Save(id string, msgs []Message) error
}

// MemoryBackend keeps conversations in process memory only.
type MemoryBackend struct {
	mu    sync.RWMutex
	convs map[string][]Message
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{convs: make(map[string][]Message)}
}

func (b *MemoryBackend) Load(id string) ([]Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneMessages(b.convs[id]), nil
}

func (b *MemoryBackend) Save(id string, msgs []Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.convs[id] = cloneMessages(msgs)
	return nil
}

// FileBackend stores each conversation as one structured-text file in Dir.
type FileBackend struct {
	Dir    string
	Format Format
}

// NewFileBackend creates dir if needed and returns a backend writing files in format.
func NewFileBackend(dir string, format Format) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if format == "" {
		format = FormatJSON
	}
	return &FileBackend{Dir: dir, Format: format}, nil
}

// Path returns the file used for conversation id.
func (b *FileBackend) Path(id string) string {
	return filepath.Join(b.Dir, EscapeID(id)+b.Format.Ext())
}

func (b *FileBackend) Load(id string) ([]Message, error) {
	msgs, err := LoadConversation(b.Path(id))
	if err != nil {
		return nil, fmt.Errorf("load conversation %q: %w", id, err)
	}
	return msgs, nil
}

func (b *FileBackend) Save(id string, msgs []Message) error {
	if err := SaveConversation(b.Path(id), id, msgs); err != nil {
		return fmt.Errorf("save conversation %q: %w", id, err)
	}
	return nil
}

// EscapeID maps an opaque conversation id onto a safe file name. Letters,
// digits, '-' and '_' pass through; every other byte becomes %XX.
func EscapeID(id string) string {
	if id == "" {
		return "%"
	}
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			sb.WriteByte(c)
		default:
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0f])
		}
	}
	return sb.String()
}
