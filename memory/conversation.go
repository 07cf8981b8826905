package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Conversation is a snapshot of one conversation's ordered messages.
type Conversation struct {
	ID       string    `json:"id" yaml:"id"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// Len returns the number of messages in the conversation.
func (c Conversation) Len() int { return len(c.Messages) }

// Format selects the structured-text encoding of a persisted conversation.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension; JSON is the default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Ext returns the file extension used for f.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

func (f Format) marshal(c Conversation) ([]byte, error) {
	if f == FormatYAML {
		return yaml.Marshal(c)
	}
	return json.MarshalIndent(c, "", " ")
}

func (f Format) unmarshal(b []byte, c *Conversation) error {
	if f == FormatYAML {
		return yaml.Unmarshal(b, c)
	}
	return json.Unmarshal(b, c)
}

// LoadConversation reads a conversation file. A missing file yields (nil, nil).
func LoadConversation(path string) ([]Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var c Conversation
	if err := FormatFromPath(path).unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return c.Messages, nil
}

// SaveConversation writes msgs to path, replacing any previous content
// atomically (write to a temp file in the same directory, then rename).
func SaveConversation(path, id string, msgs []Message) error {
	if msgs == nil {
		msgs = []Message{}
	}
	b, err := FormatFromPath(path).marshal(Conversation{ID: id, Messages: msgs})
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".conv-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
