package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/petasbytes/graft/internal/conversation"
	"github.com/petasbytes/graft/internal/logging"
	"github.com/petasbytes/graft/internal/provider"
	"github.com/petasbytes/graft/internal/runner"
	"github.com/petasbytes/graft/internal/sandbox"
	"github.com/petasbytes/graft/internal/stream"
	"github.com/petasbytes/graft/memory"
	"github.com/petasbytes/graft/tools"
)

type readStatus int

const (
	readOK readStatus = iota
	readEOF
	readInterrupted
)

// session is one interactive REPL. It owns the runner and is the only
// goroutine that touches the conversation.
type session struct {
	app    *app
	runner *runner.Runner
	out    io.Writer

	lines      <-chan string
	interrupts <-chan os.Signal
	eof        bool

	// savedAs is the name the conversation was last loaded or saved under.
	savedAs string

	newBackOff func() backoff.BackOff
}

func newSession(a *app, transport provider.Transport, in io.Reader, interrupts <-chan os.Signal) *session {
	s := &session{
		app:        a,
		out:        a.out,
		lines:      readLines(in),
		interrupts: interrupts,
		newBackOff: defaultBackOff,
	}
	s.runner = runner.New(transport, a.newConversation(""), nil, runner.Options{
		MaxTokens:      a.cfg.MaxTokens,
		ThinkingBudget: a.cfg.ThinkingBudget,
		CacheTTL:       a.cfg.TTL(),
		Hooks: stream.Hooks{
			Text:          func(fragment string) { fmt.Fprint(s.out, fragment) },
			ThinkingStart: func() { fmt.Fprint(s.out, "[Thinking...] ") },
			ThinkingDone:  func(chars int) { fmt.Fprintf(s.out, "[%s chars]\nClaude: ", commas(int64(chars))) },
		},
		OnToolCall: func(tu conversation.ToolUse) {
			fmt.Fprintf(s.out, "\n[Tool: %s(%s)]\n", tu.Name, string(tu.Input))
		},
		OnToolResult: func(_ conversation.ToolUse, res tools.Result) {
			fmt.Fprintf(s.out, "[Result: %s]\n", preview(res.Text, 100))
		},
		Recorder: a.recorder,
	})
	return s
}

// readLines feeds lines from in to the returned channel until EOF. The
// goroutine may outlive the session while blocked in Read.
func readLines(in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		r := bufio.NewReader(in)
		for {
			line, err := r.ReadString('\n')
			if line != "" || err == nil {
				ch <- strings.TrimRight(line, "\r\n")
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

func (s *session) conv() *conversation.Conversation { return s.runner.Conversation() }

func (s *session) readLine(prompt string) (string, readStatus) {
	fmt.Fprint(s.out, prompt)
	if s.eof {
		return "", readEOF
	}
	select {
	case line, ok := <-s.lines:
		if !ok {
			s.eof = true
			fmt.Fprintln(s.out)
			return "", readEOF
		}
		return line, readOK
	case <-s.interrupts:
		fmt.Fprintln(s.out)
		return "", readInterrupted
	}
}

func (s *session) confirm(prompt string) bool {
	line, st := s.readLine(prompt)
	return st == readOK && isYes(line)
}

// dirty reports whether leaving now would lose messages.
func (s *session) dirty() bool {
	return s.conv().Unsaved && s.conv().Len() > 0
}

// choose lists saved conversations and lets the user pick one or start new.
func (s *session) choose() {
	summaries, err := s.app.store.List()
	if err != nil {
		logging.Warn().Err(err).Msg("listing conversations")
	}
	if len(summaries) == 0 {
		fmt.Fprintln(s.out, "Starting a new conversation. Type /help for commands.")
		return
	}
	fmt.Fprintln(s.out, "Saved conversations:")
	if err := printList(s.out, s.app.store); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	line, st := s.readLine("Load conversation (name), or press Enter for new: ")
	if st != readOK || strings.TrimSpace(line) == "" {
		return
	}
	s.open(strings.TrimSpace(line))
}

// open loads name, or starts a new conversation under that name when none
// is saved.
func (s *session) open(name string) bool {
	if err := memory.ValidateName(name); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	}
	if !s.app.store.Exists(name) {
		s.switchTo(s.app.newConversation(name), "")
		fmt.Fprintf(s.out, "New conversation '%s'\n", name)
		return true
	}
	return s.load(name)
}

func (s *session) load(name string) bool {
	conv, err := s.app.store.Load(name)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			fmt.Fprintf(s.out, "Conversation '%s' not found.\n", name)
		} else {
			fmt.Fprintf(s.out, "Error loading '%s': %v\n", name, err)
		}
		return false
	}
	s.switchTo(conv, name)
	fmt.Fprintf(s.out, "Loaded '%s' (%d messages, ~%s tokens)\n", name, conv.Len(), commas(int64(conv.TokenEstimate())))
	if restored := restoredSettings(conv); restored != "" {
		fmt.Fprintf(s.out, "Restored settings: %s\n", restored)
	}
	showRecent(s.out, conv, 4)
	return true
}

// switchTo makes conv current and rebuilds the tool executor from its
// settings.
func (s *session) switchTo(conv *conversation.Conversation, savedAs string) {
	s.runner.SetConversation(conv)
	s.savedAs = savedAs
	if err := s.applyTools(); err != nil {
		fmt.Fprintf(s.out, "Tools disabled: %v\n", err)
	}
}

// applyTools attaches an executor matching the conversation's tool settings.
func (s *session) applyTools() error {
	conv := s.conv()
	if conv.ToolsPath == "" {
		s.runner.SetExecutor(nil)
		return nil
	}
	sb, err := sandbox.New(conv.ToolsPath)
	if err != nil {
		s.runner.SetExecutor(nil)
		return err
	}
	s.runner.SetExecutor(tools.NewExecutor(sb, conv.ShellEnabled))
	return nil
}

func (s *session) label() string {
	if name := s.conv().Name; name != "" {
		return name
	}
	return "new"
}

// loop runs the REPL until /quit or end of input.
func (s *session) loop() {
	for {
		line, st := s.readLine(fmt.Sprintf("\n[%s] You: ", s.label()))
		switch st {
		case readEOF:
			if s.dirty() {
				fmt.Fprintln(s.out, "Unsaved changes discarded.")
			}
			return
		case readInterrupted:
			if !s.dirty() || s.confirm("Unsaved changes. Quit anyway? [y/N] ") {
				return
			}
			continue
		case readOK:
		}

		text := strings.TrimSpace(line)
		switch {
		case text == "":
			continue
		case strings.HasPrefix(text, "/"):
			if s.command(text) {
				return
			}
		default:
			s.turn(text)
		}
	}
}

// turn sends text and prints the reply as it streams. SIGINT cancels the
// turn, which rolls the conversation back. It reports whether the turn
// completed.
func (s *session) turn(text string) bool {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.interrupts:
			cancel()
		case <-done:
		}
	}()

	fmt.Fprint(s.out, "\nClaude: ")
	usage, err := submitWithRetry(ctx, s.runner, text, s.app.cfg.Retries, s.newBackOff(), func(err error, wait time.Duration) {
		fmt.Fprintf(s.out, "\n[retrying in %s: %v]\nClaude: ", wait.Round(time.Millisecond), err)
	})
	switch {
	case err == nil:
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, formatSummary(usage))
		return true
	case ctx.Err() != nil:
		fmt.Fprintln(s.out, "\n[Interrupted; turn rolled back]")
	default:
		fmt.Fprintf(s.out, "\n[Error: %v]\n[Turn rolled back; your message was not kept]\n", err)
	}
	return false
}
