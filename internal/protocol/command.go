package protocol

// CmdConnected is the greeting announced to every new peer.
const CmdConnected = "connected"

// Command is one decoded wire command. The command name lives under the
// "command" key; any other keys ride along untouched.
type Command map[string]any

// New returns a command carrying only its name.
func New(name string) Command {
	return Command{"command": name}
}

// Name returns the command name, or "" when the key is absent or not a
// string.
func (c Command) Name() string {
	s, _ := c["command"].(string)
	return s
}

// NewBatch wraps cmds in a single batch envelope.
func NewBatch(cmds []Command) Command {
	return Command{"batch": true, "commands": cmds}
}

// IsBatch reports whether c is a batch envelope.
func (c Command) IsBatch() bool {
	b, _ := c["batch"].(bool)
	return b
}

// BatchCommands unpacks one level of batch envelope. Entries that are not
// objects are dropped. Returns nil when c carries no command list.
func (c Command) BatchCommands() []Command {
	switch v := c["commands"].(type) {
	case []Command:
		return v
	case []any:
		out := make([]Command, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Command(m))
			}
		}
		return out
	default:
		return nil
	}
}
