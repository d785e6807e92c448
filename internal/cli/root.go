// Package cli is the importctl command line: offline previews of a
// spreadsheet through the import pipeline, the reference tables, and schema
// migrations.
package cli

import (
	"github.com/spf13/cobra"
)

var Version = "dev"

// NewRootCmd creates the importctl root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "importctl",
		Short:         "Client and policy spreadsheet import tools",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewPreviewCommand(), NewFieldsCommand(), NewMigrateCommand())
	return root
}
