package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/pkg/backup"
	"github.com/tagsweep/tagsweep/pkg/config"
	zlog "github.com/tagsweep/tagsweep/pkg/log"
	"github.com/tagsweep/tagsweep/pkg/registry"
)

func newBackupCmd(conf *config.Config) *cobra.Command {
	var repository, tag, runID string

	backupCmd := &cobra.Command{
		Use:   "backup <config>",
		Short: "`backup` snapshots a mutable tag before a deploy repoints it",
		Long: "`backup` creates a uniquely named tag pointing at the digest the given tag " +
			"currently resolves to. A non-zero exit means no backup exists and the deploy " +
			"must not overwrite the tag.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zlog.NewLogger("info", "")

			if err := config.Load(conf, args[0], logger); err != nil {
				return err
			}

			cmd.SilenceUsage = true

			logger = zlog.NewLogger(conf.Log.Level, conf.Log.Output)

			client, err := registry.NewRemoteRegistry(conf.Registry, logger)
			if err != nil {
				logger.Error().Err(err).Msg("failed to create registry client")

				return err
			}

			step := backup.NewStep(client, conf.Backup.Prefix, logger)

			record, err := step.Run(cmd.Context(), repository, tag, runID)
			if err != nil {
				logger.Error().Err(err).Str("repository", repository).Str("tag", tag).
					Msg("backup failed, the deploy must not proceed")

				return err
			}

			if record == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%s does not exist, nothing to back up\n",
					repository, tag)

				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s:%s backed up as %s (%s)\n",
				record.Repository, record.SourceTag, record.BackupTag, record.Digest)

			return nil
		},
	}

	backupCmd.Flags().StringVarP(&repository, "repository", "r", "", "repository holding the tag")
	backupCmd.Flags().StringVarP(&tag, "tag", "t", "latest", "mutable tag about to be overwritten")
	backupCmd.Flags().StringVar(&runID, "run-id", "",
		"uniqueness token embedded in the backup tag name, generated when empty")
	_ = backupCmd.MarkFlagRequired("repository")

	return backupCmd
}
