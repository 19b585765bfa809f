package cmd

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/filterkeeper/internal/conditions"
	"github.com/solatis/filterkeeper/internal/store"
	"github.com/solatis/filterkeeper/internal/workspace"
)

var (
	conditionWorkspace string
	conditionBinary    bool
)

var conditionCmd = &cobra.Command{
	Use:   "condition",
	Short: "Manage stored condition trees",
}

var conditionSaveCmd = &cobra.Command{
	Use:   "save NAME FILE",
	Short: "Store the condition tree of a YAML document under NAME",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := loadConditionFile(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		e, err := st.Save(ctx, args[0], tree)
		if err != nil {
			return err
		}
		logger.Info("condition saved",
			slog.String("name", e.Name),
			slog.String("etag", e.ETag),
			slog.Int("nodes", e.Nodes))
		return nil
	},
}

var conditionShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a stored condition tree as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		if conditionBinary {
			e, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(e.Body))
			return nil
		}

		tree := conditions.New()
		if _, err := st.Load(ctx, args[0], tree); err != nil {
			return err
		}
		data, err := workspace.MarshalCondition(tree)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var conditionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored condition trees",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		entries, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\t%s\n", e.Name, e.ETag, e.Nodes, e.UpdatedAt.UTC().Format(time.RFC3339))
		}
		return nil
	},
}

var conditionDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a stored condition tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()
		return st.Delete(cmd.Context(), args[0])
	},
}

var conditionCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate the condition tree of a YAML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := workspace.LoadCondition(args[0])
		if err != nil {
			return err
		}
		describe, err := workspaceDescriber()
		if err != nil {
			return err
		}

		tree, err := workspace.BuildTree(doc, describe, false)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		invalid := tree.FindInvalid()
		for _, h := range invalid {
			n := tree.Node(h)
			fmt.Fprintf(out, "%s\t%s\t%v\n", n.ID, n.Kind, n.Problems())
		}
		if len(invalid) > 0 {
			return fmt.Errorf("%d invalid condition nodes", len(invalid))
		}
		fmt.Fprintf(out, "valid (%d nodes)\n", tree.Len())
		return nil
	},
}

func init() {
	conditionShowCmd.Flags().BoolVar(&conditionBinary, "binary", false, "print the encoded tree as hex")
	conditionCheckCmd.Flags().StringVar(&conditionWorkspace, "workspace", "", "workspace whose field and column types coerce compare values")
	conditionSaveCmd.Flags().StringVar(&conditionWorkspace, "workspace", "", "workspace whose field and column types coerce compare values")

	conditionCmd.AddCommand(conditionSaveCmd, conditionShowCmd, conditionListCmd, conditionDeleteCmd, conditionCheckCmd)
	rootCmd.AddCommand(conditionCmd)
}

// loadConditionFile builds the tree of a condition document in the
// configured validation mode.
func loadConditionFile(path string) (*conditions.Tree, error) {
	doc, err := workspace.LoadCondition(path)
	if err != nil {
		return nil, err
	}
	describe, err := workspaceDescriber()
	if err != nil {
		return nil, err
	}
	tree, err := workspace.BuildTree(doc, describe, cfg.Filter.Validation)
	if err != nil {
		return nil, fmt.Errorf("condition %s: %w", path, err)
	}
	return tree, nil
}

// workspaceDescriber returns the record of the --workspace file, or nil.
func workspaceDescriber() (workspace.Describer, error) {
	if conditionWorkspace == "" {
		return nil, nil
	}
	w, err := workspace.Load(conditionWorkspace, workspace.Options{})
	if err != nil {
		return nil, err
	}
	return w.Record, nil
}

// openStore opens the configured database and its condition store.
func openStore(cmd *cobra.Command) (*store.Store, func(), error) {
	database, err := openDB(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(database)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return st, func() { database.Close() }, nil
}
