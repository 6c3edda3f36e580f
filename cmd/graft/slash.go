package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/petasbytes/graft/internal/cacheplan"
	"github.com/petasbytes/graft/internal/provider"
	"github.com/petasbytes/graft/internal/runner"
	"github.com/petasbytes/graft/internal/sandbox"
	"github.com/petasbytes/graft/memory"
)

const (
	maxTokensLimit = 128000
	thinkingLimit  = 128000
)

const helpText = `Commands:
  /save [name]        save the conversation (asks for a name if it has none)
  /load <name>        load a saved conversation
  /list               list saved conversations
  /new                start a new conversation
  /rename <name>      rename the conversation (and its saved file)
  /delete <name>      delete a saved conversation
  /cache [on|off|5m|1h]
                      show or set prompt caching
  /model [name]       show or set the model
  /max_tokens [n]     show or set the response limit (1-128000)
  /thinking [n|off]   show or set the thinking budget (1024-128000)
  /web [on|off]       show or toggle web search
  /tools [path|off]   show, enable (rooted at path) or disable file tools
  /shell [on|off]     show or toggle shell_exec (needs /tools)
  /tokens             estimate the conversation size
  /compress           have Claude rewrite the history shorter (keeps a backup)
  /system [text|clear]
                      show, set or clear the system prompt
  /stats              session usage totals
  /help               this text
  /quit               exit`

// command runs one slash command and reports whether the REPL should exit.
func (s *session) command(line string) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return !s.dirty() || s.confirm("Unsaved changes. Quit anyway? [y/N] ")
	case "help", "h", "?":
		fmt.Fprintln(s.out, helpText)
	case "save":
		s.save(arg)
	case "load":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: /load <name>")
			return false
		}
		if s.dirty() && !s.confirm("Current conversation has unsaved changes. Discard? [y/N] ") {
			return false
		}
		s.load(arg)
	case "list":
		if err := printList(s.out, s.app.store); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	case "new":
		if s.dirty() && !s.confirm("Current conversation has unsaved changes. Discard? [y/N] ") {
			return false
		}
		s.switchTo(s.app.newConversation(""), "")
		fmt.Fprintln(s.out, "Started new conversation.")
	case "rename":
		s.rename(arg)
	case "delete":
		s.delete(arg)
	case "cache":
		s.cache(arg)
	case "model":
		s.model(arg)
	case "max_tokens":
		s.maxTokens(arg)
	case "thinking":
		s.thinking(arg)
	case "web":
		s.web(arg)
	case "tools":
		s.tools(arg)
	case "shell":
		s.shell(arg)
	case "tokens":
		c := s.conv()
		fmt.Fprintf(s.out, "~%s tokens (%d messages)\n", commas(int64(c.TokenEstimate())), c.Len())
	case "compress":
		s.compress()
	case "system":
		s.system(arg)
	case "stats":
		fmt.Fprintln(s.out, formatStats(s.runner.Stats()))
	default:
		fmt.Fprintf(s.out, "Unknown command: /%s (try /help)\n", name)
	}
	return false
}

func (s *session) save(arg string) {
	c := s.conv()
	name := arg
	if name == "" {
		name = c.Name
	}
	if name == "" {
		line, st := s.readLine("Conversation name: ")
		name = strings.TrimSpace(line)
		if st != readOK || name == "" {
			fmt.Fprintln(s.out, "Save cancelled.")
			return
		}
	}
	if err := memory.ValidateName(name); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if name != s.savedAs && s.app.store.Exists(name) &&
		!s.confirm(fmt.Sprintf("'%s' already exists. Overwrite? [y/N] ", name)) {
		fmt.Fprintln(s.out, "Save cancelled.")
		return
	}

	prev := c.Name
	c.Name = name
	if err := s.app.store.Save(c); err != nil {
		c.Name = prev
		fmt.Fprintf(s.out, "Error saving: %v\n", err)
		return
	}
	s.savedAs = name
	fmt.Fprintf(s.out, "Saved '%s' (%d messages)\n", name, c.Len())
}

func (s *session) rename(arg string) {
	if arg == "" {
		fmt.Fprintln(s.out, "Usage: /rename <name>")
		return
	}
	if err := memory.ValidateName(arg); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	c := s.conv()
	if s.savedAs != "" && s.app.store.Exists(s.savedAs) {
		if err := s.app.store.Rename(s.savedAs, arg); err != nil {
			fmt.Fprintf(s.out, "Error renaming: %v\n", err)
			return
		}
		s.savedAs = arg
	}
	c.Name = arg
	fmt.Fprintf(s.out, "Renamed to '%s'\n", arg)
}

func (s *session) delete(arg string) {
	if arg == "" {
		fmt.Fprintln(s.out, "Usage: /delete <name>")
		return
	}
	if !s.app.store.Exists(arg) {
		fmt.Fprintf(s.out, "Conversation '%s' not found.\n", arg)
		return
	}
	if !s.confirm(fmt.Sprintf("Delete '%s'? [y/N] ", arg)) {
		fmt.Fprintln(s.out, "Cancelled.")
		return
	}
	if err := s.app.store.Delete(arg); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if arg == s.savedAs {
		s.savedAs = ""
		s.conv().Unsaved = true
	}
	fmt.Fprintf(s.out, "Deleted '%s'\n", arg)
}

func (s *session) cache(arg string) {
	if arg == "" {
		fmt.Fprintf(s.out, "Cache: %s\n", s.runner.Options().CacheTTL)
		return
	}
	ttl, err := cacheplan.ParseTTL(arg)
	if err != nil {
		fmt.Fprintln(s.out, "Usage: /cache on|off|5m|1h")
		return
	}
	s.runner.UpdateOptions(func(o *runner.Options) { o.CacheTTL = ttl })
	fmt.Fprintf(s.out, "Cache: %s\n", ttl)
}

func (s *session) model(arg string) {
	c := s.conv()
	if arg == "" {
		model := c.Model
		if model == "" {
			model = provider.DefaultModel
		}
		fmt.Fprintf(s.out, "Model: %s\n", model)
		return
	}
	c.Model = arg
	c.Unsaved = true
	fmt.Fprintf(s.out, "Model: %s\n", arg)
}

func (s *session) maxTokens(arg string) {
	if arg == "" {
		fmt.Fprintf(s.out, "max_tokens: %s\n", commas(s.effectiveMaxTokens()))
		return
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 1 || n > maxTokensLimit {
		fmt.Fprintf(s.out, "max_tokens must be between 1 and %s\n", commas(maxTokensLimit))
		return
	}
	if b := s.runner.Options().ThinkingBudget; b > 0 && b >= n {
		fmt.Fprintf(s.out, "max_tokens must be greater than the thinking budget (%s)\n", commas(b))
		return
	}
	s.runner.UpdateOptions(func(o *runner.Options) { o.MaxTokens = n })
	fmt.Fprintf(s.out, "max_tokens: %s\n", commas(n))
}

func (s *session) effectiveMaxTokens() int64 {
	if n := s.runner.Options().MaxTokens; n > 0 {
		return n
	}
	return runner.DefaultMaxTokens
}

func (s *session) thinking(arg string) {
	if arg == "" {
		if b := s.runner.Options().ThinkingBudget; b > 0 {
			fmt.Fprintf(s.out, "Thinking budget: %s\n", commas(b))
		} else {
			fmt.Fprintln(s.out, "Thinking: off")
		}
		return
	}
	var budget int64
	if on, ok := parseSwitch(arg); ok && !on {
		budget = 0
	} else {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || n < provider.MinThinkingBudget || n > thinkingLimit {
			fmt.Fprintf(s.out, "Thinking budget must be off or between %s and %s\n",
				commas(provider.MinThinkingBudget), commas(thinkingLimit))
			return
		}
		if limit := s.effectiveMaxTokens(); n >= limit {
			fmt.Fprintf(s.out, "Thinking budget must be less than max_tokens (%s)\n", commas(limit))
			return
		}
		budget = n
	}
	s.runner.UpdateOptions(func(o *runner.Options) { o.ThinkingBudget = budget })
	if budget == 0 {
		fmt.Fprintln(s.out, "Thinking: off")
		return
	}
	fmt.Fprintf(s.out, "Thinking budget: %s\n", commas(budget))
}

func (s *session) web(arg string) {
	c := s.conv()
	if arg != "" {
		on, ok := parseSwitch(arg)
		if !ok {
			fmt.Fprintln(s.out, "Usage: /web on|off")
			return
		}
		c.WebSearch = on
		c.Unsaved = true
	}
	fmt.Fprintf(s.out, "Web search: %s\n", onOff(c.WebSearch))
}

func (s *session) tools(arg string) {
	c := s.conv()
	switch {
	case arg == "":
		if c.ToolsPath == "" {
			fmt.Fprintln(s.out, "Tools: off")
			return
		}
		fmt.Fprintf(s.out, "Tools: %s (shell %s)\n", c.ToolsPath, onOff(c.ShellEnabled))
		return
	case isOff(arg):
		c.ToolsPath = ""
		c.ShellEnabled = false
		c.Unsaved = true
		s.runner.SetExecutor(nil)
		fmt.Fprintln(s.out, "Tools: off")
		return
	}

	sb, err := sandbox.New(arg)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	c.ToolsPath = sb.Root()
	c.Unsaved = true
	if err := s.applyTools(); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Tools enabled: %s\n", c.ToolsPath)
}

func (s *session) shell(arg string) {
	c := s.conv()
	if arg == "" {
		fmt.Fprintf(s.out, "Shell: %s\n", onOff(c.ShellEnabled))
		return
	}
	on, ok := parseSwitch(arg)
	if !ok {
		fmt.Fprintln(s.out, "Usage: /shell on|off")
		return
	}
	if on && c.ToolsPath == "" {
		fmt.Fprintln(s.out, "Enable tools first with /tools <path>")
		return
	}
	c.ShellEnabled = on
	c.Unsaved = true
	if err := s.applyTools(); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Shell: %s\n", onOff(on))
}

func (s *session) system(arg string) {
	c := s.conv()
	switch {
	case arg == "":
		if c.SystemPrompt == "" {
			fmt.Fprintln(s.out, "System prompt: (none)")
			return
		}
		fmt.Fprintf(s.out, "System prompt: %s\n", c.SystemPrompt)
		return
	case strings.EqualFold(arg, "clear"):
		c.SystemPrompt = ""
		fmt.Fprintln(s.out, "System prompt cleared.")
	default:
		c.SystemPrompt = arg
		fmt.Fprintln(s.out, "System prompt set.")
	}
	c.Unsaved = true
}

// parseSwitch accepts on/true/yes/1 and off/false/no/0.
func parseSwitch(s string) (on, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, true
	case "off", "false", "no", "0":
		return false, true
	}
	return false, false
}

func isOff(s string) bool {
	on, ok := parseSwitch(s)
	return ok && !on
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
