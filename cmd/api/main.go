package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string
	a := &app{}

	root := &cobra.Command{
		Use:           "coop-ledger",
		Short:         "Cooperative loan and savings ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "optional dotenv file read before the environment")

	root.AddCommand(serveCommand(a))
	root.AddCommand(workerCommand(a))
	root.AddCommand(migrateCommand(a))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("coop-ledger exited")
		os.Exit(1)
	}
}
