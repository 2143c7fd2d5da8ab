// Command sherwood trains decision forests from tab-delimited or .npy data,
// applies them to new points and renders their trees.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

func main() {
	if err := errors.SafeExecute("sherwood", cliParser().Execute); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sherwood",
		Short:         "sherwood trains and applies decision forests",
		Long:          `A tool to train classification, regression and density forests from your data and apply them to new points.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to a YAML, TOML or JSON config file")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.String("log-file", "", "write logs to this file, rotated by size, instead of stderr")
	flags.BoolP("verbose", "v", false, "log one record per trained node")
	rootCmd.AddCommand(versionCmd(), trainCmd(), applyCmd(), drawCmd())
	return rootCmd
}
