package tools

// Registry returns the tool definitions offered to the model. shell_exec is
// included only when shell access is enabled.
func Registry(shell bool) []ToolDefinition {
	defs := []ToolDefinition{ListDirDefinition, ReadFileDefinition, WriteFileDefinition}
	if shell {
		defs = append(defs, ShellExecDefinition)
	}
	return defs
}

// Lookup finds a tool by name among all known tools, regardless of which
// are currently offered.
func Lookup(name string) (ToolDefinition, bool) {
	for _, d := range Registry(true) {
		if d.Name == name {
			return d, true
		}
	}
	return ToolDefinition{}, false
}
