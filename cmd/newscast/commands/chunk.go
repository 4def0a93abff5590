package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/newscast/config"
	"github.com/sevigo/newscast/llms"
	"github.com/sevigo/newscast/pipeline"
	"github.com/sevigo/newscast/textsplitter"
)

func newChunkCmd(global *globalOptions) *cobra.Command {
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "chunk [file]",
		Short: "Show how a document is split into chunks",
		Long: `Split a text file or stdin into the token-bounded chunks the summarizer
would send, printing each chunk with its token count.

Examples:
  newscast chunk article.txt --max-tokens 200`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.load(cmd, chunkBudget(maxTokens), func(c *config.Config) {
				// Only the model tokenizer needs a real provider.
				if c.Tokenizer.Kind != config.TokenizerModel {
					c.LLM.Mock = true
				}
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var model llms.Model
			if cfg.Tokenizer.Kind == config.TokenizerModel {
				if model, err = pipeline.NewModel(ctx, cfg, logger); err != nil {
					return err
				}
			}
			tok, err := pipeline.NewTokenizer(cfg, model, logger)
			if err != nil {
				return err
			}
			splitter, err := textsplitter.NewTokenSplitter(tok,
				textsplitter.WithMaxTokens(cfg.MaxLength()),
				textsplitter.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			segments, err := readSegments(cmd, args, logger)
			if err != nil {
				return err
			}
			chunks, err := splitter.Chunk(ctx, segments)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, chunk := range chunks {
				n, err := splitter.CountTokens(ctx, chunk)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "--- chunk %d/%d (%d tokens)\n%s\n\n", i+1, len(chunks), n, chunk)
			}
			fmt.Fprintf(out, "%d chunks, budget %d tokens\n", len(chunks), splitter.MaxTokens())
			return nil
		},
	}

	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Token budget per chunk (default: max_input_tokens - max_response_tokens)")
	return cmd
}
