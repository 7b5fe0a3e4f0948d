package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/pkg/config"
	zlog "github.com/tagsweep/tagsweep/pkg/log"
	"github.com/tagsweep/tagsweep/pkg/registry"
	"github.com/tagsweep/tagsweep/pkg/retention"
)

func newRunCmd(conf *config.Config) *cobra.Command {
	var repositories []string

	runCmd := &cobra.Command{
		Use:   "run <config>",
		Short: "`run` applies the retention policies and deletes expired tags",
		Long: "`run` lists the tags of every given repository, evaluates the matching " +
			"retention policy and deletes the tags selected for deletion. Per-tag deletion " +
			"failures are reported, not fatal.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zlog.NewLogger("info", "")

			if err := config.Load(conf, args[0], logger); err != nil {
				return err
			}

			// Do not show usage on errors which are not related to command line arguments
			cmd.SilenceUsage = true

			logger = zlog.NewLogger(conf.Log.Level, conf.Log.Output)

			return runRetention(cmd.Context(), conf, repositories, conf.Retention.DryRun,
				logger, cmd.OutOrStdout())
		},
	}

	runCmd.Flags().StringSliceVarP(&repositories, "repository", "r", nil,
		"repository to process, may be repeated")
	_ = runCmd.MarkFlagRequired("repository")

	return runCmd
}

func newPlanCmd(conf *config.Config) *cobra.Command {
	var repositories []string

	planCmd := &cobra.Command{
		Use:   "plan <config>",
		Short: "`plan` shows what a retention run would keep and delete",
		Long:  "`plan` evaluates the retention policies without deleting anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zlog.NewLogger("info", "")

			if err := config.Load(conf, args[0], logger); err != nil {
				return err
			}

			cmd.SilenceUsage = true

			logger = zlog.NewLogger(conf.Log.Level, conf.Log.Output)

			return runRetention(cmd.Context(), conf, repositories, true, logger, cmd.OutOrStdout())
		},
	}

	planCmd.Flags().StringSliceVarP(&repositories, "repository", "r", nil,
		"repository to process, may be repeated")
	_ = planCmd.MarkFlagRequired("repository")

	return planCmd
}

func runRetention(ctx context.Context, conf *config.Config, repositories []string, dryRun bool,
	logger zlog.Logger, out io.Writer,
) error {
	auditLog := zlog.NewAuditLogger(conf.Log.Level, conf.Log.Audit)

	client, err := registry.NewRemoteRegistry(conf.Registry, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create registry client")

		return err
	}

	evaluator := retention.NewEvaluator(dryRun, logger, auditLog)
	executor := retention.NewExecutor(client, conf.Retention.Workers, logger, auditLog)

	// one timestamp per run so age cutoffs are stable across repositories
	now := time.Now()

	for _, repo := range repositories {
		policy, err := conf.PolicyForRepo(repo)
		if err != nil {
			logger.Error().Err(err).Str("repository", repo).Msg("no retention policy matches repository")

			return err
		}

		// a listing failure aborts before anything is mutated, so the whole
		// run is safe to retry
		tags, err := client.ListTags(ctx, repo)
		if err != nil {
			logger.Error().Err(err).Str("repository", repo).
				Msg("failed to list tags, nothing was deleted")

			return err
		}

		decision := evaluator.Evaluate(repo, policy, tags, now)

		PrintDecision(out, repo, decision, now)

		if dryRun {
			continue
		}

		outcomes, status := executor.Apply(ctx, repo, decision.Delete)
		report := retention.BuildReport(repo, decision, outcomes, status)

		PrintReport(out, report)

		if !report.Successful() {
			logger.Warn().Str("repository", repo).Int("failed", report.Failed).
				Str("status", string(report.Status)).Msg("retention run was only partially successful")
		}
	}

	return nil
}
