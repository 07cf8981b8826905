package memory

import (
	"errors"
	"fmt"
)

// ErrInvalidSequence is returned when an append would break conversation ordering rules.
var ErrInvalidSequence = errors.New("invalid message sequence")

// GroupKind denotes the atomic unit type used when trimming or windowing history.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupToolExchange
)

// Group describes a contiguous span of messages [Start, End).
// A tool exchange is an assistant message carrying tool calls together with
// the function results that immediately follow it.
type Group struct {
	Kind  GroupKind
	Start int // inclusive
	End   int // exclusive
}

// Len returns the number of messages in g.
func (g Group) Len() int { return g.End - g.Start }

// GroupMessages partitions msgs into atomic units that keep tool exchanges whole.
func GroupMessages(msgs []Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		m := msgs[i]
		if m.Role == RoleAssistant && len(m.ToolCalls) > 0 {
			j := i + 1
			for j < len(msgs) && msgs[j].Role == RoleFunction {
				j++
			}
			if j > i+1 {
				groups = append(groups, Group{Kind: GroupToolExchange, Start: i, End: j})
				i = j
				continue
			}
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

// Validate checks that appending next to prev keeps the ordering rules:
//   - a system message may only be the first message;
//   - a function message must answer a call of the assistant message that
//     precedes the current run of function messages, once per call.
func Validate(prev []Message, next ...Message) error {
	seq := cloneMessages(prev)
	for _, m := range next {
		if err := checkAppend(seq, m); err != nil {
			return err
		}
		seq = append(seq, m)
	}
	return nil
}

func checkAppend(prev []Message, m Message) error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidSequence, m.Role)
	}
	switch m.Role {
	case RoleSystem:
		if len(prev) != 0 {
			return fmt.Errorf("%w: system message must be the first message", ErrInvalidSequence)
		}
	case RoleFunction:
		i := len(prev) - 1
		for i >= 0 && prev[i].Role == RoleFunction {
			i--
		}
		if i < 0 || prev[i].Role != RoleAssistant || len(prev[i].ToolCalls) == 0 {
			return fmt.Errorf("%w: function %q does not follow a tool request", ErrInvalidSequence, m.Name)
		}
		calls := prev[i].ToolCalls
		used := make([]bool, len(calls))
		for _, r := range prev[i+1:] {
			if k := matchCall(calls, used, r); k >= 0 {
				used[k] = true
			}
		}
		if matchCall(calls, used, m) < 0 {
			return fmt.Errorf("%w: function %q was not requested or already answered", ErrInvalidSequence, m.Name)
		}
	}
	return nil
}

// matchCall returns the index of the first unanswered call that m replies to, or -1.
func matchCall(calls []ToolCall, used []bool, m Message) int {
	for k, c := range calls {
		if used[k] {
			continue
		}
		if m.ToolCallID != "" {
			if c.ID == m.ToolCallID && (m.Name == "" || m.Name == c.Name) {
				return k
			}
			continue
		}
		if c.Name == m.Name {
			return k
		}
	}
	return -1
}

// Trim drops the oldest groups until at most max messages remain. A leading
// system message is always kept and the newest group is never split, so the
// result may exceed max when that group alone is larger. max <= 0 disables trimming.
func Trim(msgs []Message, max int) []Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	var head []Message
	rest := msgs
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		head, rest = msgs[:1], msgs[1:]
	}
	groups := GroupMessages(rest)
	total := len(head) + len(rest)
	start := 0
	for gi := 0; gi < len(groups)-1 && total > max; gi++ {
		total -= groups[gi].Len()
		start = groups[gi+1].Start
	}
	out := make([]Message, 0, len(head)+len(rest)-start)
	out = append(out, head...)
	return append(out, rest[start:]...)
}
