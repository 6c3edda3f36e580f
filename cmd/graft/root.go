package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/petasbytes/graft/internal/config"
	"github.com/petasbytes/graft/internal/conversation"
	"github.com/petasbytes/graft/internal/logging"
	"github.com/petasbytes/graft/internal/provider"
	"github.com/petasbytes/graft/internal/telemetry"
	"github.com/petasbytes/graft/memory"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "graft [name]",
		Short: "Conversation harness for the Anthropic API",
		Long: `graft keeps long-running conversations with Claude, with prompt caching,
saved conversations and optional sandboxed file and shell tools.

Examples:
  graft                       # pick a saved conversation or start a new one
  graft notes                 # open (or create) the conversation "notes"
  graft list                  # list saved conversations
  graft import export.json    # import an exported conversation
  graft delete notes          # delete a saved conversation`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			s, stop, err := a.startSession(cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer stop()
			if len(args) == 1 {
				if !s.open(args[0]) {
					return fmt.Errorf("could not open %q", args[0])
				}
			} else {
				s.choose()
			}
			s.loop()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.graft/config.toml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error, off")

	root.AddCommand(newListCmd(flags), newImportCmd(flags), newDeleteCmd(flags))
	return root
}

// app is what every command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	dir      string
	store    *memory.Store
	recorder *telemetry.Recorder
	out      io.Writer
}

func setup(flags *globalFlags, out io.Writer) (*app, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	path := flags.configPath
	if path == "" {
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
		if _, err := config.WriteDefault(path); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(level),
		Output: os.Stderr,
		Pretty: isatty.IsTerminal(os.Stderr.Fd()),
	})

	rec, err := telemetry.Open(cfg.EventsPath)
	if err != nil {
		logging.Warn().Err(err).Msg("event recording disabled")
		rec = nil
	}
	return &app{
		cfg:      cfg,
		dir:      dir,
		store:    memory.NewOSStore(cfg.ConversationsDir),
		recorder: rec,
		out:      out,
	}, nil
}

func (a *app) close() {
	if err := a.recorder.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing event log")
	}
}

// newConversation applies the configured defaults.
func (a *app) newConversation(name string) *conversation.Conversation {
	c := conversation.New(a.cfg.DefaultModel)
	c.Name = name
	c.WebSearch = a.cfg.WebSearch
	return c
}

// startSession resolves the API key and returns a session reading from in.
// SIGINT is routed to the session until stop is called.
func (a *app) startSession(in io.Reader) (*session, func(), error) {
	env, err := config.LoadEnv(config.EnvPaths(a.dir)...)
	if err != nil {
		return nil, nil, err
	}
	key := config.APIKey(env)
	if key == "" {
		return nil, nil, fmt.Errorf("%s not found; set it in the environment or in one of: ./.env, ~/.env, %s/.env", config.APIKeyEnv, a.dir)
	}
	transport := provider.NewTransport(provider.NewAnthropicClient(key))

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	s := newSession(a, transport, in, interrupts)
	return s, func() { signal.Stop(interrupts) }, nil
}
