package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/filterkeeper/internal/conditions"
	"github.com/solatis/filterkeeper/internal/dataset"
	"github.com/solatis/filterkeeper/internal/filter"
	"github.com/solatis/filterkeeper/internal/rules"
	"github.com/solatis/filterkeeper/internal/types"
	"github.com/solatis/filterkeeper/internal/workspace"
)

var (
	filterDatasets  []string
	filterCondition string
	filterExpr      string
)

var filterCmd = &cobra.Command{
	Use:   "filter WORKSPACE",
	Short: "Print the visible rows of a YAML workspace",
	Long: `Loads a workspace, applies its easy filters, sorts, condition trees and
expression, and prints the visible rows of every dataset in display order.
A stored condition can replace the condition tree of the selected datasets.`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().StringSliceVar(&filterDatasets, "dataset", nil, "datasets to print (default all)")
	filterCmd.Flags().StringVar(&filterCondition, "condition", "", "stored condition to apply to the selected datasets")
	filterCmd.Flags().StringVar(&filterExpr, "expr", "", "filter expression over the row's columns")
	filterCmd.Flags().Bool("case-sensitive", false, "compare text case sensitively")
	filterCmd.Flags().String("locale", "en", "collation locale (BCP 47)")
	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	w, err := workspace.Load(args[0], workspace.Options{
		Validation:    cfg.Filter.Validation,
		CaseSensitive: cfg.Filter.CaseSensitive,
	})
	if err != nil {
		return err
	}

	engine := filter.New(w.Record, w.Lookups, rules.NewEngine(cfg.Filter.Locale),
		filter.WithLogger(logger),
		filter.WithSortOptions(cfg.Filter.CompareOptions()),
	)
	defer engine.Close()

	if err := w.Apply(engine); err != nil {
		return err
	}

	datasets := filterDatasets
	if len(datasets) == 0 {
		datasets = w.Record.Datasets()
	}

	if filterCondition != "" {
		st, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()
		for _, ds := range datasets {
			tree := conditions.New()
			if _, err := st.Load(cmd.Context(), filterCondition, tree); err != nil {
				return err
			}
			engine.SetCondition(ds, tree)
		}
	}

	if filterExpr != "" {
		x, err := filter.NewExprFilter(filterExpr, datasets...)
		if err != nil {
			return err
		}
		engine.InstallExternal(x)
	}

	out := cmd.OutOrStdout()
	for _, ds := range datasets {
		if err := printDataset(out, engine, w.Record, ds); err != nil {
			return err
		}
	}
	return nil
}

func printDataset(out io.Writer, engine *filter.Engine, record *dataset.Record, ds string) error {
	info, err := record.Describe(types.Dataset(ds))
	if err != nil {
		return err
	}
	headers := make([]string, 0, len(info.Columns))
	for _, c := range info.Columns {
		headers = append(headers, c.ID)
	}
	fmt.Fprintf(out, "# %s\n%s\n", ds, strings.Join(headers, "\t"))
	return printRows(out, engine, record, ds, headers, types.TopLevel, 0)
}

// printRows prints the visible rows under parent, children indented below
// their parent row.
func printRows(out io.Writer, engine *filter.Engine, record *dataset.Record, ds string, columns []string, parent types.RowKey, depth int) error {
	rows, err := engine.Rows(ds, parent)
	if err != nil {
		return err
	}
	for _, r := range rows {
		loc := types.RowOf(ds, r, parent)
		values, _, err := engine.RowValues(loc, types.RoleDisplay)
		if err != nil {
			return err
		}
		cells := make([]string, 0, len(columns))
		for _, c := range columns {
			cells = append(cells, cellText(values[c]))
		}
		fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), strings.Join(cells, "\t"))

		if err := printRows(out, engine, record, ds, columns, record.ChildKey(loc), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	return types.FromNative(v).String()
}
