package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielolaszy/nudge/internal/config"
	"github.com/danielolaszy/nudge/internal/server"
	"github.com/danielolaszy/nudge/pkg/models"
	"github.com/spf13/cobra"
)

// digestCmd produces a single digest from the command line.
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Post a single review digest",
	Long: `Run one JQL search and post the ranked digest to a Slack channel.

With --dry-run the digest is printed instead of posted, and Slack
credentials are not required.

Example:
  nudge digest --jql 'project = MBE and status = "Awaiting Review"' --channel '#mbe-reviews' --at '@mbe-devs'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jql, _ := cmd.Flags().GetString("jql")
		channel, _ := cmd.Flags().GetString("channel")
		mention, _ := cmd.Flags().GetString("at")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if err := validateDigestFlags(jql, channel, dryRun); err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if dryRun {
			err = config.ValidateJiraConfig(cfg)
		} else {
			err = config.ValidateConfig(cfg)
		}
		if err != nil {
			return err
		}

		pipeline, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if cfg.Server.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Server.RunTimeout)
			defer cancel()
		}

		query := server.EncodeJQL(jql)
		if dryRun {
			text, err := pipeline.Preview(ctx, query, mention)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}

		return pipeline.Run(ctx, models.PipelineInput{
			Query:         query,
			Channel:       strings.TrimSpace(channel),
			MentionTarget: mention,
		})
	},
}

func validateDigestFlags(jql, channel string, dryRun bool) error {
	if strings.TrimSpace(jql) == "" {
		return fmt.Errorf("%w: --jql is required", models.ErrValidationFailed)
	}
	if !dryRun && strings.TrimSpace(channel) == "" {
		return fmt.Errorf("%w: --channel is required unless --dry-run is set", models.ErrValidationFailed)
	}
	return nil
}

func init() {
	digestCmd.Flags().String("jql", "", "JQL search selecting the issues to list")
	digestCmd.Flags().String("channel", "", "Slack channel to post to")
	digestCmd.Flags().String("at", "", "Mention placed at the start of the digest, e.g. @team")
	digestCmd.Flags().Bool("dry-run", false, "Print the digest instead of posting it")
}
