package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "autotag",
		Short: "Write metadata tags into media files and rename them",
		Long: `autotag applies already-resolved metadata to media files. For every file in a
manifest it writes tags (title, overview, genres, episode numbering, cover art)
into the container and renames the file according to a configurable pattern.

Runs show a live progress view by default; pass --instant for plain console output.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newTagCmd(), newUndoCmd(), newConfigCmd())
	return root
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
