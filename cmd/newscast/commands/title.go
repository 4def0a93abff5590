package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sevigo/newscast/chains"
	"github.com/sevigo/newscast/config"
	"github.com/sevigo/newscast/parsers/text"
	"github.com/sevigo/newscast/pipeline"
)

func newTitleCmd(global *globalOptions) *cobra.Command {
	var (
		mock       bool
		paragraphs []int
	)

	cmd := &cobra.Command{
		Use:   "title [file]",
		Short: "Suggest an episode title for a news digest",
		Long: `Sample a digest of stories and ask the model for an eye catching title.
Each story in the digest starts with a "# news N" line followed by one
paragraph per line.

Examples:
  newscast title digest.txt
  newscast title --paragraphs 1,3 < digest.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			sample, err := text.Sample(strings.NewReader(input), paragraphs)
			if err != nil {
				return err
			}
			count := strings.Count(sample, "\n story ")
			if count == 0 {
				return fmt.Errorf("no \"# news N\" stories found in input")
			}

			cfg, logger, err := global.load(cmd, func(c *config.Config) {
				if mock {
					c.LLM.Mock = true
				}
			})
			if err != nil {
				return err
			}
			model, err := pipeline.NewModel(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			chain, err := chains.NewTitle(model, chains.WithLogger(logger))
			if err != nil {
				return err
			}

			title, err := chain.CallDigest(cmd.Context(), strings.TrimSpace(sample), count)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), title)
			return nil
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "Use the offline mock model instead of a real provider")
	cmd.Flags().IntSliceVar(&paragraphs, "paragraphs", text.DefaultSampleParagraphs, "1-based paragraph numbers sampled from each story")
	return cmd
}
