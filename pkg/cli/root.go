// Package cli wires the retention engine into a cobra command tree. It is
// the adapter an external orchestrator (CI job, cron) invokes; the engine
// itself schedules nothing.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/pkg/config"
	zlog "github.com/tagsweep/tagsweep/pkg/log"
)

func NewRootCmd() *cobra.Command {
	showVersion := false
	conf := config.New()

	rootCmd := &cobra.Command{
		Use:   "tagsweep",
		Short: "`tagsweep`",
		Long:  "`tagsweep` applies tag retention policies to container registries",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zlog.NewLogger("info", "")

			if showVersion {
				logger.Info().Str("commit", config.Commit).Str("release", config.ReleaseTag).
					Str("go version", config.GoVersion).Msg("version")
			} else {
				_ = cmd.Usage()
				cmd.SilenceErrors = false
			}

			return nil
		},
	}

	// "run"
	rootCmd.AddCommand(newRunCmd(conf))
	// "plan"
	rootCmd.AddCommand(newPlanCmd(conf))
	// "backup"
	rootCmd.AddCommand(newBackupCmd(conf))
	// "version"
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")

	return rootCmd
}
