package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"AdvisorDesk/internal/config"
	"AdvisorDesk/internal/directory"
	"AdvisorDesk/internal/pipeline"
	"AdvisorDesk/internal/workbook"

	"github.com/jedib0t/go-pretty/v6/table"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

const directoryTimeout = 5 * time.Second

type previewOptions struct {
	timezone    string
	dsn         string
	asJSON      bool
	blockedOnly bool
	overrides   []string
	now         func() time.Time
	loader      directory.Loader
}

// NewPreviewCommand enriches a spreadsheet without saving anything.
func NewPreviewCommand() *cobra.Command {
	opts := &previewOptions{now: time.Now}
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the enriched rows of a spreadsheet",
		Long: `Read the first sheet of an .xlsx, .xls or .csv file, map its headers,
assign client ids and print every row with its note.

With --dsn the client directory is read from Postgres so existing clients
keep their ids.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.timezone, "tz", config.DefaultTimeZone, "time zone for dates and policy status")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Postgres connection string for the client directory")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print rows as JSON")
	cmd.Flags().BoolVar(&opts.blockedOnly, "blocked-only", false, "only print rows that block approval")
	cmd.Flags().StringArrayVar(&opts.overrides, "map", nil, "header=field override, repeatable")
	return cmd
}

func runPreview(ctx context.Context, out, errOut io.Writer, path string, opts *previewOptions) error {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("time zone %q: %w", opts.timezone, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sheet, err := workbook.Read(filepath.Base(path), data)
	if err != nil {
		return err
	}

	ref := config.DefaultReference()
	mapper := pipeline.NewHeaderMapper(ref)
	mapping := mapper.Map(sheet.Headers)
	if len(opts.overrides) > 0 {
		ov := make(map[string]string, len(opts.overrides))
		for _, o := range opts.overrides {
			h, f, ok := strings.Cut(o, "=")
			if !ok {
				return fmt.Errorf("--map %q: want header=field", o)
			}
			ov[h] = f
		}
		for _, h := range mapper.ApplyOverrides(mapping, ov) {
			_, _ = fmt.Fprintf(errOut, "ignored override for %q\n", h)
		}
	}
	for _, h := range pipeline.NeedsReview(sheet.Headers, mapping) {
		_, _ = fmt.Fprintf(errOut, "header %q needs review (suggested %q)\n", h, mapping[h].SuggestedField)
	}

	loader := opts.loader
	if loader == nil && opts.dsn != "" {
		db, err := sql.Open("postgres", opts.dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		loader = directory.NewSQLDirectory(db)
	}
	var dir *pipeline.Directory
	if loader != nil {
		dir, err = loadDirectory(ctx, loader)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "client directory unavailable, ids assigned without existing clients: %v\n", err)
		}
	}

	records := make([]pipeline.Record, len(sheet.Rows))
	for i, raw := range sheet.Rows {
		records[i] = pipeline.ApplyMapping(sheet.Headers, raw, mapping)
	}
	rows := pipeline.NewEnricher(ref, loc, opts.now).Enrich(records, dir, nil)

	indices := make([]int, 0, len(rows))
	if opts.blockedOnly {
		indices = pipeline.Blocked(rows)
	} else {
		for i := range rows {
			indices = append(indices, i)
		}
	}

	if opts.asJSON {
		selected := make([]pipeline.EnrichedRow, len(indices))
		for i, idx := range indices {
			selected[i] = rows[idx]
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(selected)
	}
	renderRows(out, rows, indices)
	return nil
}

func loadDirectory(ctx context.Context, loader directory.Loader) (*pipeline.Directory, error) {
	dctx, cancel := context.WithTimeout(ctx, directoryTimeout)
	defer cancel()
	dir, err := loader.Load(dctx)
	if err != nil {
		return nil, err
	}
	return dir, nil
}

func renderRows(w io.Writer, rows []pipeline.EnrichedRow, indices []int) {
	if len(indices) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Client", "ID", "Product", "Code", "Status", "Note"})
	for _, i := range indices {
		r := rows[i]
		t.AppendRow(table.Row{i, r.ClientName, r.ClientID, r.ProductType, r.PolicyTypeID, r.Status, r.Note})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows, %d blocked)\n", len(indices), len(pipeline.Blocked(rows)))
}
