// Package cmd provides the command-line interface for nudge.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/danielolaszy/nudge/internal/auth"
	"github.com/danielolaszy/nudge/internal/config"
	"github.com/danielolaszy/nudge/internal/digest"
	"github.com/danielolaszy/nudge/internal/jira"
	"github.com/danielolaszy/nudge/internal/logging"
	"github.com/danielolaszy/nudge/internal/slack"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Nudge posts JIRA review digests to Slack",
	Long: `Nudge turns a standing JIRA review queue into a Slack reminder.

It runs a JQL search, ranks the matching issues by priority and then by how
long they have been waiting, and posts the list to a Slack channel with a
mention of the team that owns the queue.

Run it as an HTTP service that a scheduler triggers ('nudge serve'), or
produce a single digest from the shell ('nudge digest').`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			return
		}
		logging.SetupLogger(os.Stdout, logging.ParseLevel(level), logging.ParseFormat(os.Getenv("LOG_FORMAT")))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Optional config file (YAML, JSON or TOML); environment variables take precedence")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(digestCmd)
}

// loadConfig reads the configuration named by the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(path)
}

// newPipeline wires the JIRA and Slack clients into a digest pipeline.
func newPipeline(cfg *config.Config) (*digest.Pipeline, error) {
	jiraClient, err := jira.NewClient(cfg.Jira.URL, auth.Basic(cfg.Jira.Username, cfg.Jira.Token), cfg.Jira.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jira client: %w", err)
	}

	slackClient := slack.NewClient(cfg.Slack.URL, auth.Bearer(cfg.Slack.Token), cfg.Slack.Timeout, cfg.Slack.RatePerSec)

	logging.Debug("clients initialized",
		"jira_url", cfg.Jira.URL,
		"jira_user", cfg.Jira.Username,
		"jira_token", logging.MaskSensitive(cfg.Jira.Token),
		"slack_url", cfg.Slack.URL,
		"slack_token", logging.MaskSensitive(cfg.Slack.Token))

	return digest.NewPipeline(jiraClient, digest.NewFormatter(cfg.Jira.URL), slackClient), nil
}
