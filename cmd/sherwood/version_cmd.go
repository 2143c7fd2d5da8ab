package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	// VersionMajor is the major number in sherwood's version
	VersionMajor = 1
	// VersionMinor is the minor number in sherwood's version
	VersionMinor = 0
	// VersionPatch is the patch number in sherwood's version
	VersionPatch = 0
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sherwood",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sherwood v%d.%d.%d\n", VersionMajor, VersionMinor, VersionPatch)
		},
	}
}
