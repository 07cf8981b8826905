package memory_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/simplechat/memory"
)

func TestStore_AppendThenGetOrCreate_PreservesOrder(t *testing.T) {
	s := memory.NewStore(nil, memory.WithMaxMessages(0))
	var want []memory.Message
	for i := 0; i < 10; i++ {
		m := memory.UserMessage("u", fmt.Sprintf("m%d", i))
		require.NoError(t, s.Append("a", m))
		want = append(want, m)
	}
	c, err := s.GetOrCreate("a")
	require.NoError(t, err)
	assertSame(t, c.Messages, want)

	other, err := s.GetOrCreate("b")
	require.NoError(t, err)
	require.Zero(t, other.Len())
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := memory.NewStore(nil)
	require.NoError(t, s.Append("a", memory.UserMessage("u", "one")))
	c, err := s.GetOrCreate("a")
	require.NoError(t, err)
	c.Messages[0].Content = "mutated"

	again, err := s.GetOrCreate("a")
	require.NoError(t, err)
	require.Equal(t, "one", again.Messages[0].Content)
}

func TestStore_PersistAndReload_FileBackend(t *testing.T) {
	for _, f := range []memory.Format{memory.FormatJSON, memory.FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			dir := t.TempDir()
			b, err := memory.NewFileBackend(dir, f)
			require.NoError(t, err)
			s := memory.NewStore(b)
			in := sample()
			require.NoError(t, s.Append("Group 1", in...))

			b2, err := memory.NewFileBackend(dir, f)
			require.NoError(t, err)
			reloaded, err := memory.NewStore(b2).GetOrCreate("Group 1")
			require.NoError(t, err)
			assertSame(t, reloaded.Messages, in)
			require.FileExists(t, filepath.Join(dir, "Group%201"+f.Ext()))
		})
	}
}

func TestStore_PersistAndReload_SQLite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "chat.db")
	b, err := memory.OpenSQLite(p)
	require.NoError(t, err)
	s := memory.NewStore(b)
	in := sample()
	require.NoError(t, s.Append("x", in[:2]...))
	require.NoError(t, s.Append("x", in[2:]...))
	require.NoError(t, s.Append("y", memory.UserMessage("u", "other")))
	require.NoError(t, b.Close())

	b2, err := memory.OpenSQLite(p)
	require.NoError(t, err)
	defer b2.Close()
	c, err := memory.NewStore(b2).GetOrCreate("x")
	require.NoError(t, err)
	assertSame(t, c.Messages, in)

	ids, err := b2.IDs()
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, ids)
}

type failingBackend struct {
	*memory.MemoryBackend
	failSave bool
}

func (f *failingBackend) Save(id string, msgs []memory.Message) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.MemoryBackend.Save(id, msgs)
}

func TestStore_SaveFailure_KeepsInMemoryState(t *testing.T) {
	fb := &failingBackend{MemoryBackend: memory.NewMemoryBackend()}
	s := memory.NewStore(fb)
	require.NoError(t, s.Append("a", memory.UserMessage("u", "kept")))

	fb.failSave = true
	err := s.Append("a", memory.UserMessage("u", "lost"))
	require.ErrorContains(t, err, "disk full")

	c, err := s.GetOrCreate("a")
	require.NoError(t, err)
	require.Len(t, c.Messages, 1)
	require.Equal(t, "kept", c.Messages[0].Content)
}

func TestStore_PersistRetriesAfterSaveFailure(t *testing.T) {
	fb := &failingBackend{MemoryBackend: memory.NewMemoryBackend()}
	s := memory.NewStore(fb)
	require.NoError(t, s.Append("a", memory.UserMessage("u", "one")))

	fb.failSave = true
	require.Error(t, s.Persist("a"))

	fb.failSave = false
	require.NoError(t, s.Persist("a"))
	stored, err := fb.Load("a")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "one", stored[0].Content)
}

func TestStore_RejectsOrphanFunctionMessage(t *testing.T) {
	s := memory.NewStore(nil)
	require.NoError(t, s.Append("a", memory.UserMessage("u", "hi")))
	err := s.Append("a", memory.FunctionResult(memory.ToolCall{ID: "1", Name: "x"}, "42"))
	require.ErrorIs(t, err, memory.ErrInvalidSequence)

	c, err := s.GetOrCreate("a")
	require.NoError(t, err)
	require.Len(t, c.Messages, 1)
}

func TestStore_HistoryCap_DropsWholeToolExchanges(t *testing.T) {
	s := memory.NewStore(nil, memory.WithMaxMessages(3))
	call := memory.ToolCall{ID: "c1", Name: "lookup"}
	require.NoError(t, s.Append("a",
		memory.UserMessage("u", "q1"),
		memory.ToolCallMessage("bot", []memory.ToolCall{call}),
		memory.FunctionResult(call, "r"),
		memory.AssistantMessage("bot", "a1"),
	))
	require.NoError(t, s.Append("a", memory.UserMessage("u", "q2")))

	c, err := s.GetOrCreate("a")
	require.NoError(t, err)
	require.Len(t, c.Messages, 2)
	require.Equal(t, "a1", c.Messages[0].Content)
	require.Equal(t, "q2", c.Messages[1].Content)
}

func TestStore_ClearAndTranscript(t *testing.T) {
	s := memory.NewStore(nil)
	require.NoError(t, s.Append("a",
		memory.UserMessage("Steve", "Where is Alaska?"),
		memory.AssistantMessage("Botto", "North America."),
	))
	tr, err := s.Transcript("a")
	require.NoError(t, err)
	require.Equal(t, "Steve: Where is Alaska?\nBotto: North America.", tr)

	short, err := s.TruncatedTranscript("a", 14)
	require.NoError(t, err)
	require.Equal(t, "North America.", short)

	require.NoError(t, s.Clear("a"))
	tr, err = s.Transcript("a")
	require.NoError(t, err)
	require.Empty(t, tr)
}

func TestStore_ConcurrentAppendsAcrossConversations(t *testing.T) {
	s := memory.NewStore(nil, memory.WithMaxMessages(0))
	var wg sync.WaitGroup
	for c := 0; c < 8; c++ {
		id := fmt.Sprintf("conv-%d", c)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if !assert.NoError(t, s.Append(id, memory.UserMessage("u", fmt.Sprint(i)))) {
					return
				}
			}
		}()
	}
	wg.Wait()
	for c := 0; c < 8; c++ {
		conv, err := s.GetOrCreate(fmt.Sprintf("conv-%d", c))
		require.NoError(t, err)
		require.Len(t, conv.Messages, 25)
		for i, m := range conv.Messages {
			require.Equal(t, fmt.Sprint(i), m.Content)
		}
	}
}
