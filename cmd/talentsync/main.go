// Command talentsync runs one-shot pulls and pushes against the same
// database and connector stack the server uses. Runs triggered here are
// recorded in sync.sync_runs like any other run.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/lib/pq"
)

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	root := &cobra.Command{
		Use:           "talentsync",
		Short:         "Incremental sync between talent record systems",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPullCmd(logger), newPushCmd(logger), newMigrateCmd(logger))

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
