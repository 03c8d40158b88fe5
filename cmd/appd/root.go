package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const _homeFlag = "home"

func defaultHome() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".appcore")
	}
	return ".appcore"
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "appd <command> [arguments]",
		Short:         "appd serves a deterministic blockchain application to a consensus engine.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       "appd run --home ~/.appcore",
	}
	root.PersistentFlags().String(_homeFlag, defaultHome(), "node home directory")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newValidateGenesisCmd(),
		newRunCmd(),
		newInstallCmd(),
	)
	return root
}

func homeDir(cmd *cobra.Command) (string, error) {
	home, err := cmd.Flags().GetString(_homeFlag)
	if err != nil {
		return "", err
	}
	return filepath.Abs(home)
}
