package conversation

// DefaultWindow is the number of recent turns sent to the provider.
const DefaultWindow = 6

// BuildContext prefixes the last window turns with the system prompt. The
// result never holds more than window+1 turns.
func BuildContext(turns []Turn, systemPrompt string, window int) []Turn {
	if window < 0 {
		window = 0
	}
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	out := make([]Turn, 0, len(turns)+1)
	out = append(out, Turn{Role: RoleSystem, Content: systemPrompt})
	return append(out, turns...)
}
