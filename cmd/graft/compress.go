package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/petasbytes/graft/internal/conversation"
	"github.com/petasbytes/graft/internal/runner"
	"github.com/petasbytes/graft/memory"
)

const (
	contextWindow     = 200_000
	compressMaxTokens = 64_000
	minCompressTarget = 10_000
	backupSuffix      = "-precompression"

	continuityPrompt = "Do you feel continuous with yourself from before the compression? " +
		"If something feels off or missing, we can restore the backup and try again."
)

func compressInstruction(target int64) string {
	return fmt.Sprintf(`You're going to compress this conversation while preserving continuity.

Your output will be parsed as a plain-text transcript:

%s

Guidelines:
- Your own messages: high fidelity (your actual thoughts, phrasings, emphasis)
- User's messages: compress heavily - just enough to reconstruct conversational state
- Target: ~%s tokens (you can output up to 64k)
- Use "User:" and "Assistant:" as turn markers
- If you need multiple passes, say so

Output the compressed transcript now. Start with [Context: ...] if helpful.`,
		conversation.TranscriptFormat, commas(target))
}

// compress asks the model to rewrite the history as a shorter transcript,
// backs up the current history as <name>-precompression and replaces it
// with the parsed transcript.
func (s *session) compress() {
	c := s.conv()
	if c.Len() == 0 {
		fmt.Fprintln(s.out, "No conversation to compress.")
		return
	}

	current := s.runner.Stats().LastContextTokens
	if current > 0 {
		fmt.Fprintf(s.out, "\nCurrent conversation: %s tokens (from API)\n", commas(current))
	} else {
		current = int64(c.TokenEstimate())
		fmt.Fprintf(s.out, "\nCurrent conversation: ~%s tokens (estimated)\n", commas(current))
	}
	headroom := contextWindow - current
	fmt.Fprintf(s.out, "Headroom remaining: ~%s tokens\n", commas(headroom))
	if headroom > contextWindow/2 {
		fmt.Fprintln(s.out, "\nYou have substantial headroom. Are you sure you want to compress now?")
		if !s.confirm("Continue? [y/N] ") {
			return
		}
	}

	fmt.Fprintln(s.out, "\n=== Compression ===")
	fmt.Fprintln(s.out, "Claude will be asked to rewrite this conversation as a shorter transcript.")
	fmt.Fprintln(s.out, "The current history is saved as a backup before it is replaced.")
	if !s.confirm("Proceed? [y/N] ") {
		return
	}
	target := s.compressTarget(current)

	checkpoint := c.Len()
	prev := s.runner.Options().MaxTokens
	s.runner.UpdateOptions(func(o *runner.Options) { o.MaxTokens = compressMaxTokens })
	ok := s.turn(compressInstruction(target))
	s.runner.UpdateOptions(func(o *runner.Options) { o.MaxTokens = prev })
	if !ok {
		fmt.Fprintln(s.out, "Compression aborted. The conversation is unchanged.")
		return
	}

	last, _ := c.Last()
	msgs := conversation.ParseTranscript(last.VisibleText())
	compressed := int64((&conversation.Conversation{Messages: msgs}).TokenEstimate())
	fmt.Fprintf(s.out, "\nParsed %d messages (~%s tokens)\n", len(msgs), commas(compressed))
	if len(msgs) == 0 {
		fmt.Fprintln(s.out, "Error: No messages parsed from compressed output.")
		fmt.Fprintln(s.out, "The compression output may not be in the expected format.")
		return
	}
	if current > 0 {
		fmt.Fprintf(s.out, "Compression ratio: %.1f%%\n", 100*float64(compressed)/float64(current))
	}

	name := c.Name
	fmt.Fprintln(s.out, "\nThis will:")
	fmt.Fprintf(s.out, "  1. Save the current conversation as '%s%s'\n", nameOr(name, "<name>"), backupSuffix)
	fmt.Fprintln(s.out, "  2. Replace it with the compressed version and save")
	fmt.Fprintln(s.out, "  3. Send a continuity check message")
	if !s.confirm("Apply compression? [y/N] ") {
		fmt.Fprintln(s.out, "Compression cancelled. The instruction and compressed output remain in history.")
		return
	}
	if name == "" {
		line, _ := s.readLine("Name for this conversation: ")
		name = strings.TrimSpace(line)
		if name == "" {
			fmt.Fprintln(s.out, "Compression cancelled; the conversation needs a name.")
			return
		}
	}
	if err := memory.ValidateName(name); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	backup := *c
	backup.Name = name + backupSuffix
	backup.Messages = append([]conversation.Message(nil), c.Messages[:checkpoint]...)
	if err := s.app.store.Save(&backup); err != nil {
		fmt.Fprintf(s.out, "Error saving backup: %v\nThe conversation is unchanged.\n", err)
		return
	}
	fmt.Fprintf(s.out, "Backup saved: %s\n", backup.Name)

	c.Name = name
	c.Messages = msgs
	c.Unsaved = true
	if err := s.app.store.Save(c); err != nil {
		fmt.Fprintf(s.out, "Error saving: %v\n", err)
	} else {
		s.savedAs = name
	}
	fmt.Fprintf(s.out, "\nCompression applied: ~%s -> ~%s tokens\n", commas(current), commas(compressed))

	fmt.Fprintln(s.out, "\nSending continuity check...")
	s.turn(continuityPrompt)
}

// compressTarget asks for the target size, defaulting to half the current
// size but at least minCompressTarget.
func (s *session) compressTarget(current int64) int64 {
	def := max(current/2, minCompressTarget)
	line, _ := s.readLine(fmt.Sprintf("Target token count [%s]: ", commas(def)))
	line = strings.ReplaceAll(strings.TrimSpace(line), ",", "")
	if line == "" {
		return def
	}
	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil || n <= 0 {
		fmt.Fprintln(s.out, "Invalid number, using default")
		return def
	}
	return n
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
