package cli

import (
	"fmt"
	"strings"

	"AdvisorDesk/internal/config"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewFieldsCommand prints the reference tables.
func NewFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List canonical fields, product codes and fund types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ref := config.DefaultReference()
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "reference tables v%d\n", ref.Version)
			_, _ = fmt.Fprintf(w, "fields: %s\n", strings.Join(ref.CanonicalFields, ", "))
			_, _ = fmt.Fprintf(w, "fund types (%s): %s\n", ref.InvestmentLinked, strings.Join(ref.FundTypes, ", "))

			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Product type", "Code"})
			for _, p := range ref.ProductTypes {
				t.AppendRow(table.Row{p.Name, p.Code})
			}
			t.Render()
		},
	}
}
