package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/newscast/config"
	"github.com/sevigo/newscast/pipeline"
)

// chunkBudget makes maxTokens the chunk budget by widening the input window
// around the reserved response tokens.
func chunkBudget(maxTokens int) func(*config.Config) {
	return func(c *config.Config) {
		if maxTokens > 0 {
			c.LLM.MaxInputTokens = maxTokens + c.LLM.MaxResponseTokens
		}
	}
}

func newSummarizeCmd(global *globalOptions) *cobra.Command {
	var (
		mock      bool
		maxTokens int
	)

	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Summarize a text file or stdin",
		Long: `Summarize a document with the recursive summarizer. Text read from
stdin is split into paragraphs at blank lines; a named file is parsed by its
extension (.txt, .md, .html or .pdf).

Examples:
  newscast summarize report.pdf
  curl -s https://example.com/post.txt | newscast summarize --max-tokens 1000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.load(cmd, chunkBudget(maxTokens), func(c *config.Config) {
				if mock {
					c.LLM.Mock = true
				}
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			model, err := pipeline.NewModel(ctx, cfg, logger)
			if err != nil {
				return err
			}
			tok, err := pipeline.NewTokenizer(cfg, model, logger)
			if err != nil {
				return err
			}
			chain, err := pipeline.NewSummarizer(cfg, model, tok, logger)
			if err != nil {
				return err
			}

			segments, err := readSegments(cmd, args, logger)
			if err != nil {
				return err
			}
			summary, err := chain.Call(ctx, segments)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "Use the offline mock model instead of a real provider")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Token budget per chunk (default: max_input_tokens - max_response_tokens)")
	return cmd
}
