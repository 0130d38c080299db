package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viant/sqlite-kdtree/internal/kd/tree"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the k-d tree",
	Long:  `Prints every node of the index in pre-order, indented by depth.`,
	Args:  cobra.NoArgs,
	RunE:  runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, _ []string) error {
	store, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	idx, err := store.Index(context.Background())
	if err != nil {
		return fmt.Errorf("tree failed: %w", err)
	}
	if idx.Len() == 0 {
		cmd.Println("Empty tree.")
		return nil
	}
	idx.Tree().Walk(func(node *tree.Node, depth int) bool {
		cmd.Printf("%s%s %s\n", strings.Repeat("  ", depth), node.String(), idx.ID(node.Point()))
		return true
	})
	cmd.Printf("points=%d height=%d mode=%s\n", idx.Len(), idx.Height(), idx.Mode())
	return nil
}
