package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/appcore/app"
)

var (
	commitHash = ""
	buildDate  = ""
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print the application version.",
		Example: "appd version",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s-%s %s\n", app.Name, app.Version, commitHash, buildDate)
		},
	}
}
