package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/petasbytes/graft/memory"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(flags, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()
			return printList(a.out, a.store)
		},
	}
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var (
		opts memory.ImportOptions
		save bool
	)
	cmd := &cobra.Command{
		Use:   "import <file> [name]",
		Short: "Import an exported conversation",
		Long: `Import a conversation from a JSON export: a bare array of API messages,
an object with "messages" (including files written by graft), or a chat
exporter file with "chat_messages".

The imported conversation opens unsaved; use /save to keep it, or pass
--save to store it and exit.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			if len(args) == 2 {
				opts.Name = args[1]
			}
			conv, err := memory.ImportFile(afero.NewOsFs(), args[0], opts)
			if err != nil {
				return err
			}
			if conv.Model == "" {
				conv.Model = a.cfg.DefaultModel
			}
			fmt.Fprintf(a.out, "Imported %d messages (~%s tokens)\n", conv.Len(), commas(int64(conv.TokenEstimate())))

			if save {
				if a.store.Exists(conv.Name) {
					return fmt.Errorf("%w: %q", memory.ErrExists, conv.Name)
				}
				if err := a.store.Save(conv); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Saved '%s'\n", conv.Name)
				return nil
			}
			fmt.Fprintf(a.out, "Default name: '%s' (use /save to confirm or /rename to change)\n", conv.Name)

			s, stop, err := a.startSession(cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer stop()
			s.switchTo(conv, "")
			s.loop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.NoThinking, "no-thinking", false, "drop thinking blocks")
	cmd.Flags().BoolVar(&opts.NoToolUse, "no-tool-use", false, "drop tool calls and results")
	cmd.Flags().BoolVar(&save, "save", false, "save the imported conversation and exit")
	return cmd
}

func newDeleteCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			name := args[0]
			if !a.store.Exists(name) {
				return fmt.Errorf("%w: %q", memory.ErrNotFound, name)
			}
			if !yes && !confirmOnce(cmd.InOrStdin(), a.out, fmt.Sprintf("Delete '%s'? [y/N] ", name)) {
				fmt.Fprintln(a.out, "Cancelled.")
				return nil
			}
			if err := a.store.Delete(name); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted '%s'\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirmOnce asks a single yes/no question outside the REPL.
func confirmOnce(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	var answer string
	if _, err := fmt.Fscanln(in, &answer); err != nil {
		return false
	}
	return isYes(answer)
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// printList writes the saved conversations, one per line.
func printList(w io.Writer, store *memory.Store) error {
	summaries, err := store.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No saved conversations.")
		return nil
	}
	for _, s := range summaries {
		if s.Err != nil {
			fmt.Fprintf(w, "  %s (error: %v)\n", s.Name, s.Err)
			continue
		}
		fmt.Fprintf(w, "  %-30s %4d msgs  %s\n", s.Name, s.Messages, s.Modified.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
