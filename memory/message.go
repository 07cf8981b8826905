package memory

// Role identifies the author class of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
		return true
	}
	return false
}

// ToolCall is a function invocation requested by an assistant message.
// Arguments holds the raw JSON object produced by the model.
type ToolCall struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Arguments string `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// Message is a single chat turn. Messages are treated as immutable once
// appended to a conversation.
type Message struct {
	Role       Role       `json:"role" yaml:"role"`
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
	Content    string     `json:"content" yaml:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
	// IsError marks a function result that reports a failed dispatch.
	IsError bool `json:"is_error,omitempty" yaml:"is_error,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Name: "System", Content: content}
}

func UserMessage(name, content string) Message {
	return Message{Role: RoleUser, Name: name, Content: content}
}

func AssistantMessage(name, content string) Message {
	return Message{Role: RoleAssistant, Name: name, Content: content}
}

// ToolCallMessage is an assistant message requesting the given calls.
func ToolCallMessage(name string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Name: name, ToolCalls: append([]ToolCall(nil), calls...)}
}

// FunctionResult is the function-role reply to call.
func FunctionResult(call ToolCall, content string) Message {
	return Message{Role: RoleFunction, Name: call.Name, Content: content, ToolCallID: call.ID}
}

// FunctionError is a function-role reply reporting that call failed with err.
func FunctionError(call ToolCall, err error) Message {
	m := FunctionResult(call, err.Error())
	m.IsError = true
	return m
}

// Equal reports whether m and o carry the same role, author, content and calls.
func (m Message) Equal(o Message) bool {
	if m.Role != o.Role || m.Name != o.Name || m.Content != o.Content || m.ToolCallID != o.ToolCallID || m.IsError != o.IsError {
		return false
	}
	if len(m.ToolCalls) != len(o.ToolCalls) {
		return false
	}
	for i := range m.ToolCalls {
		if m.ToolCalls[i] != o.ToolCalls[i] {
			return false
		}
	}
	return true
}

func cloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
