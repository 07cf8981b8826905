package memory_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petasbytes/simplechat/memory"
)

func sample() []memory.Message {
	ok := memory.ToolCall{ID: "c1", Name: "lookup", Arguments: `{"q":"x"}`}
	bad := memory.ToolCall{ID: "c2", Name: "missing"}
	return []memory.Message{
		memory.UserMessage("Steve", "hi"),
		memory.ToolCallMessage("Botto", []memory.ToolCall{ok, bad}),
		memory.FunctionResult(ok, "42"),
		memory.FunctionError(bad, errors.New("tool not found: missing")),
		memory.AssistantMessage("Botto", "hello"),
	}
}

func assertSame(t *testing.T, got, want []memory.Message) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, got[i].Equal(want[i]), "message %d: got %+v want %+v", i, got[i], want[i])
	}
}

func TestConversation_RoundTrip(t *testing.T) {
	for _, name := range []string{"conv.json", "conv.yaml"} {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), name)
			in := sample()
			require.NoError(t, memory.SaveConversation(p, "default", in))

			out, err := memory.LoadConversation(p)
			require.NoError(t, err)
			assertSame(t, out, in)
			require.False(t, out[2].IsError)
			require.True(t, out[3].IsError)
		})
	}
}

func TestConversation_LoadMissing_ReturnsNil(t *testing.T) {
	msgs, err := memory.LoadConversation(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	require.Nil(t, msgs)
}

func TestConversation_LoadInvalidJSON_ReturnsError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(p, []byte("{oops"), 0o664))

	_, err := memory.LoadConversation(p)
	require.Error(t, err)
}

func TestConversation_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "c.json")
	for i := 0; i < 3; i++ {
		require.NoError(t, memory.SaveConversation(p, "c", sample()))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "c.json", entries[0].Name())
}

func TestConversation_Len(t *testing.T) {
	require.Zero(t, memory.Conversation{}.Len())
	require.Equal(t, 5, memory.Conversation{Messages: sample()}.Len())
}

func TestEscapeID(t *testing.T) {
	tests := map[string]string{
		"default":   "default",
		"Group 1":   "Group%201",
		"../etc":    "%2E%2E%2Fetc",
		"a_b-c":     "a_b-c",
		"":          "%",
		"chat/room": "chat%2Froom",
	}
	for in, want := range tests {
		require.Equal(t, want, memory.EscapeID(in), "EscapeID(%q)", in)
	}
}
