// Package commands implements the newscast command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sevigo/newscast/config"
	"github.com/sevigo/newscast/documentloaders"
	"github.com/sevigo/newscast/parsers"
	"github.com/sevigo/newscast/parsers/text"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "newscast",
		Short: "Summarize the day's top stories into a podcast episode",
		Long: `newscast crawls a news source, condenses every story with a language
model under a fixed token budget and, when enabled, narrates the result and
publishes it as a podcast episode.

Configuration is read from newscast.yaml (or --config), a .env file and the
environment, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newRunCmd(opts),
		newSummarizeCmd(opts),
		newChunkCmd(opts),
		newTitleCmd(opts),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// load reads the configuration with the global flags and any command
// overrides applied, and builds the logger writing to the command's stderr.
func (o *globalOptions) load(cmd *cobra.Command, overrides ...func(*config.Config)) (*config.Config, *slog.Logger, error) {
	if o.logLevel != "" {
		overrides = append(overrides, func(c *config.Config) { c.Log.Level = o.logLevel })
	}
	cfg, err := config.Load(o.configPath, overrides...)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// readInput returns the named file, or stdin when no file is given or the
// name is "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	input := string(data)
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("no text provided")
	}
	return input, nil
}

// readSegments returns the paragraphs of the input. A named file is parsed
// by its extension, so PDF, HTML and Markdown files work as well as text.
func readSegments(cmd *cobra.Command, args []string, logger *slog.Logger) ([]string, error) {
	if len(args) == 0 || args[0] == "-" {
		input, err := readInput(cmd, args)
		if err != nil {
			return nil, err
		}
		return text.Paragraphs(input), nil
	}

	registry, err := parsers.RegisterDefaultParsers(logger)
	if err != nil {
		return nil, err
	}
	article, err := documentloaders.LoadFile(cmd.Context(), args[0], registry)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return article.TextList, nil
}
