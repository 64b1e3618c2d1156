// Package cli implements the disfl command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/disfl/config"
	"github.com/happyhackingspace/disfl/decoder"
)

// CLI encapsulates the command-line interface with its dependencies.
type CLI struct {
	version     string
	verbose     bool
	silent      bool
	initialized bool
	configPath  string
	grammarPath string
	strategy    string
	workers     int
	rootCmd     *cobra.Command
}

// New creates a new CLI instance with the given version string.
func New(version string) *CLI {
	c := &CLI{version: version}
	c.setupCommands()
	return c
}

// setupCommands initializes all CLI commands and their configurations.
func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:           "disfl",
		Short:         "Disfluency tagger for spoken-language transcripts",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.initApp(cmd.ErrOrStderr())
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := c.rootCmd.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose/debug output")
	flags.BoolVarP(&c.silent, "silent", "s", false, "Suppress all logging")
	flags.StringVarP(&c.configPath, "config", "c", "", "Path to YAML config file")
	flags.StringVarP(&c.grammarPath, "grammar", "g", "", "Path to YAML grammar file (overrides config)")
	flags.StringVar(&c.strategy, "strategy", "", "Decoding strategy: constrained, independent or crf (overrides config)")
	flags.IntVarP(&c.workers, "workers", "w", -1, "Concurrent decoding workers, 0 = all CPUs (overrides config)")

	c.rootCmd.AddCommand(c.newDecodeCommand())
	c.rootCmd.AddCommand(c.newTagCommand())
	c.rootCmd.AddCommand(c.newGrammarCommand())
	c.rootCmd.AddCommand(c.newUpCommand())
}

// Run executes the CLI and returns any error.
func (c *CLI) Run() error {
	return c.rootCmd.Execute()
}

// initApp initializes logging.
func (c *CLI) initApp(w io.Writer) {
	if c.initialized {
		return
	}
	c.initialized = true

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	if c.silent {
		level = slog.Level(100)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})))
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if c.configPath != "" {
		loaded, err := config.LoadFromFile(c.configPath)
		if err != nil {
			return nil, err
		}
		slog.Debug("Loaded config", "path", c.configPath)
		cfg = loaded
	}
	if c.grammarPath != "" {
		g, err := config.LoadGrammar(c.grammarPath)
		if err != nil {
			return nil, err
		}
		slog.Debug("Loaded grammar", "path", c.grammarPath, "labels", len(g.Labels))
		cfg.Grammar = g
	}
	if c.strategy != "" {
		cfg.Decode.Strategy = c.strategy
	}
	if c.workers >= 0 {
		cfg.Decode.Workers = c.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// openInput returns the named file, or stdin when no file is given.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return f, args[0], nil
}

func writeSequences(w io.Writer, seqs []decoder.Sequence) error {
	for _, s := range seqs {
		if _, err := fmt.Fprintln(w, s.String()); err != nil {
			return err
		}
	}
	return nil
}
