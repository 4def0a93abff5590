package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/newscast/config"
	"github.com/sevigo/newscast/pipeline"
)

func newRunCmd(global *globalOptions) *cobra.Command {
	var (
		mock      bool
		noPublish bool
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce today's episode",
		Long: `Crawl the configured source, summarize up to max_summaries stories and
write them to stories.json. With tts enabled the episode audio and show notes
are composed, and with publishing enabled the episode is uploaded to Castos.

Examples:
  newscast run --mock
  newscast run --no-publish --output-dir out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.load(cmd, func(c *config.Config) {
				if mock {
					c.LLM.Mock = true
				}
				if noPublish {
					c.Castos.Enabled = false
				}
				if outputDir != "" {
					c.Pipeline.OutputDir = outputDir
				}
			})
			if err != nil {
				return err
			}

			p, err := pipeline.FromConfig(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %d stories summarized, %d skipped\n", res.RunID, len(res.Stories), res.Skipped)
			fmt.Fprintf(out, "Stories: %s\n", res.StoriesPath)
			if res.AudioPath != "" {
				fmt.Fprintf(out, "Audio:   %s\n", res.AudioPath)
				fmt.Fprintf(out, "Notes:   %s\n", res.NotesPath)
			}
			if res.Episode != nil {
				fmt.Fprintf(out, "Published: %s\n", res.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "Use the offline mock model instead of a real provider")
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "Skip uploading the episode")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for stories.json and episode files")
	return cmd
}
